package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resumeghana/internal/auth"
)

const userIDKey = "userID"

// TokenValidator 校验访问令牌，由外部认证服务签发。
type TokenValidator interface {
	ValidateToken(token string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// AuthMiddleware 校验 Bearer 访问令牌并将 userID 注入上下文。
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateToken(rawToken)
		if err != nil || claims.TokenType != auth.TokenTypeAccess || claims.UserID == 0 {
			abortUnauthorized(c)
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// UserIDFromContext 取出 AuthMiddleware 注入的用户 ID。
func UserIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return 0, false
	}
	switch v := value.(type) {
	case uint:
		return v, v != 0
	case int:
		if v <= 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), v != 0
	default:
		return 0, false
	}
}
