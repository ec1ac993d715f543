package model

import (
	"strings"
	"time"
)

// DefaultLeadSource is recorded when a lead form does not say where it
// was submitted from.
const DefaultLeadSource = "storybrand"

// Lead is a prospect captured by a marketing form.
type Lead struct {
	ID        string    `json:"id" db:"id"`
	TenantID  string    `json:"tenant_id" db:"tenant_id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Company   string    `json:"company,omitempty" db:"company"`
	Phone     string    `json:"phone,omitempty" db:"phone"`
	Message   string    `json:"message,omitempty" db:"message"`
	Source    string    `json:"source" db:"source"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Normalize trims fields and applies the default source.
func (l *Lead) Normalize() {
	l.Name = strings.TrimSpace(l.Name)
	l.Email = strings.TrimSpace(strings.ToLower(l.Email))
	l.Company = strings.TrimSpace(l.Company)
	l.Phone = strings.TrimSpace(l.Phone)
	if strings.TrimSpace(l.Source) == "" {
		l.Source = DefaultLeadSource
	}
}

// Validate checks that name and a well-formed email are present.
func (l Lead) Validate() error {
	var fields []FieldError
	if l.Name == "" {
		fields = append(fields, FieldError{Field: "name", Message: "name is required", Code: "required"})
	}
	switch {
	case l.Email == "":
		fields = append(fields, FieldError{Field: "email", Message: "email is required", Code: "required"})
	case !ValidEmail(l.Email):
		fields = append(fields, FieldError{Field: "email", Message: "invalid email address", Code: "invalid_format"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
