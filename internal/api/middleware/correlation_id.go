package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	correlationIDKey    = "correlationID"
	correlationHeader   = "X-Correlation-ID"
	maxCorrelationIDLen = 128
)

type correlationCtxKey struct{}

// CorrelationIDMiddleware 确保每个请求都带有 Correlation ID，并写入请求的 context.Context。
// 过长或为空的入站值会被替换。
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(correlationHeader))
		if id == "" || len(id) > maxCorrelationIDLen {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(correlationHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))

		c.Next()
	}
}

// GetCorrelationID 从 gin 上下文中取出 Correlation ID。
func GetCorrelationID(c *gin.Context) string {
	if value, ok := c.Get(correlationIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return CorrelationIDFrom(c.Request.Context())
}

// CorrelationIDFrom 从 context.Context 中取出 Correlation ID。
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}
