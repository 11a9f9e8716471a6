package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	userIDKey   = "userId"
	userRoleKey = "userRole"
)

// RequireAuth validates the Bearer token and stashes user id/role in the
// context for downstream handlers.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		if claims, ok := token.Claims.(jwt.MapClaims); ok {
			if id, ok := claims["user_id"].(float64); ok {
				c.Set(userIDKey, int64(id))
			}
			if role, ok := claims["role"].(string); ok {
				c.Set(userRoleKey, role)
			}
		}
		c.Next()
	}
}

// RequireRoles only allows requests whose authenticated role is listed.
// Assumes RequireAuth already ran and set the role in context.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: role missing from context"})
			return
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden: role not allowed"})
			return
		}
		c.Next()
	}
}

// GetUserID returns the authenticated user id, 0 when anonymous.
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
