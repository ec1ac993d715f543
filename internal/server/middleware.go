package server

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nhle/docflow/internal/auth"
	"github.com/nhle/docflow/internal/envelope"
	"github.com/nhle/docflow/internal/ratelimit"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-Id"

// requestID reuses the caller's X-Request-Id or assigns a new one, and
// echoes it on the response.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.New().String()
		}
		c.Set(envelope.RequestIDKey, rid)
		c.Header(RequestIDHeader, rid)
		c.Next()
	}
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"request_id", c.GetString(envelope.RequestIDKey),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}
		if id, ok := auth.IdentityFrom(c.Request.Context()); ok {
			attrs = append(attrs, "tenant_id", id.TenantID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			log.Error("http request", attrs...)
		case status >= 400:
			log.Warn("http request", attrs...)
		default:
			log.Info("http request", attrs...)
		}
	}
}

// rateLimit counts each request against its tenant and route template.
// A failing limiter lets the request through.
func rateLimit(l ratelimit.Limiter, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c.Request.Context())
		if !ok {
			c.Next()
			return
		}
		endpoint := c.Request.Method + " " + c.FullPath()
		res, err := l.Allow(c.Request.Context(), ratelimit.Key(id.TenantID, endpoint))
		if err != nil {
			log.Warn("rate limiter unavailable", "tenant_id", id.TenantID, "endpoint", endpoint, "error", err)
			c.Next()
			return
		}
		if !res.Allowed {
			envelope.RateLimited(c, res.RetryAfter)
			return
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Next()
	}
}
