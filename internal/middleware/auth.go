package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shaneb74/senior-navigator-core/internal/auth"
	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

// ClaimsKey is the gin context key carrying the validated token claims.
const ClaimsKey = "auth_claims"

// SessionAuth validates the Bearer token and, when the route carries a
// session id parameter, requires the token to be bound to that session.
func SessionAuth(manager *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := manager.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		if sessionID := c.Param("id"); sessionID != "" && sessionID != claims.SessionID {
			abortUnauthorized(c, "token is not bound to this session")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":           domain.ErrAuthentication,
		"error":          message,
		"correlation_id": c.GetString("correlation_id"),
	})
}
