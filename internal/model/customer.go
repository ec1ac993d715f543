package model

import "time"

// CustomerStatus is the lifecycle state of a customer account.
type CustomerStatus string

const (
	CustomerActive    CustomerStatus = "active"
	CustomerInactive  CustomerStatus = "inactive"
	CustomerTrial     CustomerStatus = "trial"
	CustomerSuspended CustomerStatus = "suspended"
)

// Valid reports whether s is a known customer status.
func (s CustomerStatus) Valid() bool {
	switch s {
	case CustomerActive, CustomerInactive, CustomerTrial, CustomerSuspended:
		return true
	}
	return false
}

// Plan is the subscription tier of a customer.
type Plan string

const (
	PlanFree       Plan = "free"
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanBasic, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Customer is a tenant-owned customer account shown in the dashboard.
type Customer struct {
	// ID is the unique identifier for this customer.
	ID string `json:"id" db:"id"`

	// TenantID is the owning tenant. Stamped by the store on insert.
	TenantID string `json:"tenant_id" db:"tenant_id"`

	// Name is the contact person's display name.
	Name string `json:"name" db:"name"`

	// Email is the primary contact address.
	Email string `json:"email" db:"email"`

	// Company is the customer's organization name.
	Company string `json:"company" db:"company"`

	// Status is the account lifecycle state.
	Status CustomerStatus `json:"status" db:"status"`

	// Plan is the subscription tier.
	Plan Plan `json:"plan" db:"plan"`

	// MonthlyValue is recurring revenue in euros.
	MonthlyValue float64 `json:"monthly_value" db:"monthly_value"`

	// DocumentsProcessed counts documents run through OCR for this customer.
	DocumentsProcessed int `json:"documents_processed" db:"documents_processed"`

	// LastActiveAt is the last time the customer used the product.
	LastActiveAt *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CustomerPatch holds the mutable fields of a customer. Nil fields are
// left unchanged.
type CustomerPatch struct {
	Name         *string         `json:"name,omitempty"`
	Email        *string         `json:"email,omitempty"`
	Company      *string         `json:"company,omitempty"`
	Status       *CustomerStatus `json:"status,omitempty"`
	Plan         *Plan           `json:"plan,omitempty"`
	MonthlyValue *float64        `json:"monthly_value,omitempty"`
}

// Validate checks enum fields of the patch.
func (p CustomerPatch) Validate() error {
	var fields []FieldError
	if p.Status != nil && !p.Status.Valid() {
		fields = append(fields, FieldError{Field: "status", Message: "unknown status", Code: "invalid_enum"})
	}
	if p.Plan != nil && !p.Plan.Valid() {
		fields = append(fields, FieldError{Field: "plan", Message: "unknown plan", Code: "invalid_enum"})
	}
	if p.Email != nil && !ValidEmail(*p.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "invalid email address", Code: "invalid_format"})
	}
	if p.MonthlyValue != nil && *p.MonthlyValue < 0 {
		fields = append(fields, FieldError{Field: "monthly_value", Message: "must not be negative", Code: "too_small"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Apply returns c with the non-nil patch fields applied.
func (p CustomerPatch) Apply(c Customer) Customer {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.Company != nil {
		c.Company = *p.Company
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.Plan != nil {
		c.Plan = *p.Plan
	}
	if p.MonthlyValue != nil {
		c.MonthlyValue = *p.MonthlyValue
	}
	return c
}

// ContactRequest asks the support team to get in touch with a customer.
type ContactRequest struct {
	Email   string `json:"email"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message,omitempty"`
}

// Validate checks the contact request fields.
func (r ContactRequest) Validate() error {
	var fields []FieldError
	if !ValidEmail(r.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "invalid email address", Code: "invalid_format"})
	}
	if len(r.Subject) > 140 {
		fields = append(fields, FieldError{Field: "subject", Message: "at most 140 characters", Code: "too_long"})
	}
	if len(r.Message) > 5000 {
		fields = append(fields, FieldError{Field: "message", Message: "at most 5000 characters", Code: "too_long"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
