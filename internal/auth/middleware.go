package auth

import (
	"net/http"
	"strings"
	"time"

	"paricus-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

const authorizationHeader = "Authorization"

// RequireAccessToken verifies a bearer access token and puts the caller's Identity in the
// request context. RBAC and tenant scoping belong to internal/rbac.
func RequireAccessToken(m *Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, tok, ok := strings.Cut(strings.TrimSpace(c.GetHeader(authorizationHeader)), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := m.Verify(strings.TrimSpace(tok), time.Now())
		if err != nil {
			// The reason stays server-side.
			logger.From(c.Request.Context()).Debug("access token rejected", "err", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		id := claims.Identity()
		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))

		// Mirrored on the gin context for the request logger.
		c.Set("user_id", id.UserID)
		c.Set("company", id.Company)
		c.Set("role", id.Role)

		c.Next()
	}
}
