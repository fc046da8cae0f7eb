package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Token is a verified token that can expose its claims.
type Token interface {
	Claims(v interface{}) error
}

// Verifier checks a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg, "code": http.StatusUnauthorized})
}

// AuthMiddleware verifies "Authorization: Bearer <token>" and stores the
// token claims under "claims" in the gin context.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			unauthorized(c, "Missing Authorization header")
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		raw = strings.TrimSpace(raw)
		if !ok || raw == "" {
			unauthorized(c, "Invalid Authorization header")
			return
		}

		tok, err := ver.Verify(c.Request.Context(), raw)
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}
		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			unauthorized(c, "Invalid token claims")
			return
		}

		c.Set("claims", claims)
		c.Next()
	}
}
