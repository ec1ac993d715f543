package model

// Role names understood by the auth layer.
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RoleUser    = "user"
)

// DefaultTenant is assigned when a credential carries no tenant claim.
const DefaultTenant = "default"

// Identity is the authenticated caller of an API request.
type Identity struct {
	// UserID is the subject of the credential.
	UserID string `json:"user_id"`

	// Email is the caller's address, if the credential carries one.
	Email string `json:"email,omitempty"`

	// TenantID scopes every data access made on behalf of this identity.
	TenantID string `json:"tenant_id"`

	// Role is one of the Role* constants.
	Role string `json:"role"`

	// OverrideReason is recorded with cross-tenant admin access.
	OverrideReason string `json:"-"`
}

// IsStaff reports whether the identity may act across tenants.
func (i Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleSupport
}

// WithTenant returns a copy of the identity scoped to tenantID.
func (i Identity) WithTenant(tenantID string) Identity {
	i.TenantID = tenantID
	return i
}
