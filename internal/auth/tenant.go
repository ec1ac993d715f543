package auth

import (
	"context"
	"fmt"

	"github.com/nhle/docflow/internal/model"
)

// TenantHeader lets staff select the tenant a request acts on.
const TenantHeader = "X-Tenant-ID"

// ResolveTenant scopes id to the requested tenant. An empty request or the
// caller's own tenant keeps id unchanged. Only admin and support roles may
// act on another tenant; everyone else gets model.ErrForbidden.
func ResolveTenant(id model.Identity, requested string) (model.Identity, error) {
	if requested == "" || requested == id.TenantID {
		return id, nil
	}
	if !id.IsStaff() {
		return model.Identity{}, fmt.Errorf("%w: tenant %q is not accessible", model.ErrForbidden, requested)
	}
	scoped := id.WithTenant(requested)
	scoped.OverrideReason = fmt.Sprintf("%s %s acting on tenant %s", id.Role, id.UserID, requested)
	return scoped, nil
}

// CanAccessTenant reports whether id may read data of tenantID.
func CanAccessTenant(id model.Identity, tenantID string) bool {
	return id.TenantID == tenantID || id.IsStaff()
}

// CacheKey builds a tenant-partitioned cache key.
func CacheKey(tenantID, resource, id string) string {
	return fmt.Sprintf("tenant:%s:%s:%s", tenantID, resource, id)
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

// RequireIdentity is IdentityFrom that fails with model.ErrUnauthorized
// when no identity is present.
func RequireIdentity(ctx context.Context) (model.Identity, error) {
	id, ok := IdentityFrom(ctx)
	if !ok {
		return model.Identity{}, model.ErrUnauthorized
	}
	return id, nil
}

// HasRole reports whether id holds one of roles.
func HasRole(id model.Identity, roles ...string) bool {
	for _, r := range roles {
		if id.Role == r {
			return true
		}
	}
	return false
}
