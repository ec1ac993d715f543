package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/docflow/internal/model"
)

const customersTable = "customers"

// CustomerFilter narrows a customer listing. Empty fields match all.
type CustomerFilter struct {
	Status model.CustomerStatus
	Plan   model.Plan
}

// CustomerStore manages tenant-owned customer accounts.
type CustomerStore struct {
	db  *DB
	now func() time.Time
}

// NewCustomerStore returns a CustomerStore backed by db.
func NewCustomerStore(db *DB) *CustomerStore {
	return &CustomerStore{db: db, now: time.Now}
}

// List returns one page of customers, most recently created first.
func (s *CustomerStore) List(ctx context.Context, id model.Identity, f CustomerFilter, page PageRequest) ([]model.Customer, PageResult, error) {
	q := Query{Table: customersTable, Eq: map[string]any{}, Desc: true}
	if f.Status != "" {
		q.Eq["status"] = string(f.Status)
	}
	if f.Plan != "" {
		q.Eq["plan"] = string(f.Plan)
	}

	var (
		out []model.Customer
		res PageResult
	)
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		var err error
		res, err = tx.Paginate(ctx, q, page, &out)
		return err
	})
	if err != nil {
		return nil, PageResult{}, fmt.Errorf("listing customers: %w", err)
	}
	if out == nil {
		out = []model.Customer{}
	}
	return out, res, nil
}

// Get returns one customer. Customers of other tenants are not found.
func (s *CustomerStore) Get(ctx context.Context, id model.Identity, customerID string) (model.Customer, error) {
	var c model.Customer
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		return tx.GetByID(ctx, customersTable, customerID, &c)
	})
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

// Create validates and stores a new customer.
func (s *CustomerStore) Create(ctx context.Context, id model.Identity, c model.Customer) (model.Customer, error) {
	if c.Status == "" {
		c.Status = model.CustomerTrial
	}
	if c.Plan == "" {
		c.Plan = model.PlanFree
	}
	if err := validateCustomer(c); err != nil {
		return model.Customer{}, err
	}

	now := s.now().UTC()
	c.ID = uuid.New().String()
	c.TenantID = id.TenantID
	c.CreatedAt = now
	c.UpdatedAt = now

	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		return tx.Insert(ctx, customersTable, Row{
			"id":                  c.ID,
			"name":                c.Name,
			"email":               c.Email,
			"company":             c.Company,
			"status":              string(c.Status),
			"plan":                string(c.Plan),
			"monthly_value":       c.MonthlyValue,
			"documents_processed": c.DocumentsProcessed,
			"last_active_at":      c.LastActiveAt,
			"created_at":          c.CreatedAt,
			"updated_at":          c.UpdatedAt,
		})
	})
	if err != nil {
		return model.Customer{}, fmt.Errorf("creating customer: %w", err)
	}
	return c, nil
}

// Update applies patch to the customer and returns the result.
func (s *CustomerStore) Update(ctx context.Context, id model.Identity, customerID string, patch model.CustomerPatch) (model.Customer, error) {
	if err := patch.Validate(); err != nil {
		return model.Customer{}, err
	}

	var updated model.Customer
	err := s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		var current model.Customer
		if err := tx.GetByID(ctx, customersTable, customerID, &current); err != nil {
			return err
		}
		updated = patch.Apply(current)
		updated.UpdatedAt = s.now().UTC()
		return tx.Update(ctx, customersTable, customerID, Row{
			"name":          updated.Name,
			"email":         updated.Email,
			"company":       updated.Company,
			"status":        string(updated.Status),
			"plan":          string(updated.Plan),
			"monthly_value": updated.MonthlyValue,
			"updated_at":    updated.UpdatedAt,
		})
	})
	if err != nil {
		return model.Customer{}, err
	}
	return updated, nil
}

// Delete removes the customer.
func (s *CustomerStore) Delete(ctx context.Context, id model.Identity, customerID string) error {
	return s.db.WithTenantContext(ctx, id, func(tx *Tx) error {
		return tx.Delete(ctx, customersTable, customerID)
	})
}

func validateCustomer(c model.Customer) error {
	var fields []model.FieldError
	if c.Name == "" {
		fields = append(fields, model.FieldError{Field: "name", Message: "name is required", Code: "required"})
	}
	if !model.ValidEmail(c.Email) {
		fields = append(fields, model.FieldError{Field: "email", Message: "invalid email address", Code: "invalid_format"})
	}
	if !c.Status.Valid() {
		fields = append(fields, model.FieldError{Field: "status", Message: "unknown status", Code: "invalid_enum"})
	}
	if !c.Plan.Valid() {
		fields = append(fields, model.FieldError{Field: "plan", Message: "unknown plan", Code: "invalid_enum"})
	}
	if c.MonthlyValue < 0 {
		fields = append(fields, model.FieldError{Field: "monthly_value", Message: "must not be negative", Code: "too_small"})
	}
	if len(fields) > 0 {
		return &model.ValidationError{Fields: fields}
	}
	return nil
}
