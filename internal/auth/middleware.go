package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/nhle/docflow/internal/envelope"
	"github.com/nhle/docflow/internal/model"
)

// Middleware authenticates the request with a bearer token taken from the
// Authorization header, or from the token query parameter for websocket
// upgrades, and stores the tenant-scoped identity in the request context.
func Middleware(iss *Issuer, devMode bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := ExtractBearer(c.GetHeader("Authorization"))
		if err != nil {
			token = c.Query("token")
		}
		if token == "" {
			envelope.Error(c, err, devMode)
			return
		}

		id, err := iss.Verify(token)
		if err != nil {
			envelope.Error(c, err, devMode)
			return
		}

		requested := c.GetHeader(TenantHeader)
		if requested == "" {
			requested = c.Query("tenant_id")
		}
		id, err = ResolveTenant(id, requested)
		if err != nil {
			envelope.Error(c, err, devMode)
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// RequireRole aborts with FORBIDDEN unless the caller holds one of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := IdentityFrom(c.Request.Context())
		if !ok {
			envelope.Error(c, model.ErrUnauthorized, false)
			return
		}
		if !HasRole(id, roles...) {
			envelope.Error(c, model.ErrForbidden, false)
			return
		}
		c.Next()
	}
}
