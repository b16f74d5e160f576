package controller

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/algorithm-ninja/task-wizard/internal/auth"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/contextkey"
	"github.com/algorithm-ninja/task-wizard/pkg/utils/response"
)

const (
	traceIDHeader  = "X-Trace-Id"
	authContextKey = "auth_context"
)

// TraceMiddleware ensures each request has a trace ID for logs and responses.
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := strings.TrimSpace(c.GetHeader(traceIDHeader))
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set("trace_id", traceID)
		ctx := context.WithValue(c.Request.Context(), contextkey.TraceID, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(traceIDHeader, traceID)
		c.Next()
	}
}

// AuthMiddleware resolves the caller identity from a bearer JWT. Requests
// without a token proceed anonymously; the per-operation guards decide what
// anonymous callers may do. A present but invalid token is rejected so the
// client can re-authenticate.
func AuthMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.Set(authContextKey, auth.Anonymous())
			c.Next()
			return
		}

		claims, err := auth.ParseToken(secret, token)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(authContextKey, auth.Identified(claims.User))
		ctx := context.WithValue(c.Request.Context(), contextkey.UserID, claims.User)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authContextOf(c *gin.Context) auth.AuthContext {
	if value, ok := c.Get(authContextKey); ok {
		if a, ok := value.(auth.AuthContext); ok {
			return a
		}
	}
	return auth.Anonymous()
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
