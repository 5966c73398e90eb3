package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kjlinux/pourier-back/internal/authz"
	"go.uber.org/zap"
)

const (
	RequestIDKey = "request_id"
	principalKey = "principal"
)

// Logger emits one structured line per request.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(RequestIDKey)))
	}
}

// RequestID assigns each request an id, honoring one supplied upstream.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// Identity extracts the authenticated principal forwarded by the API
// gateway. Token verification happens upstream; this service trusts the
// identity headers on its internal listener.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := authz.Principal{
			UserID:      c.GetHeader("X-User-ID"),
			AccountType: authz.AccountType(c.GetHeader("X-Account-Type")),
		}
		if p.AccountType == "" {
			p.AccountType = authz.AccountCustomer
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// PrincipalFrom returns the caller identity set by Identity. Zero value
// means unauthenticated.
func PrincipalFrom(c *gin.Context) authz.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(authz.Principal); ok {
			return p
		}
	}
	return authz.Principal{}
}
