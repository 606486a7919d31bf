package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mandate/blog_service/internal/auth"
)

// RequireAdmin guards the admin route group. The token comes from the
// Authorization header ("Bearer <token>"); every verification failure is
// surfaced identically.
func RequireAdmin(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if _, err := verifier.Verify(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired authentication token"})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
