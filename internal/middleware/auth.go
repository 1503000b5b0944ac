package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/BeygonK/Health-Information-System/internal/auth"
	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
	"github.com/BeygonK/Health-Information-System/pkg/logger"
	"github.com/BeygonK/Health-Information-System/pkg/response"
)

// BearerAuth rejects any request whose Authorization header does not carry
// a bearer token accepted by verifier. Nothing after it runs on failure.
func BearerAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		principal, ok := verifier.Verify(c.Request.Context(), token)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid bearer token"))
			c.Abort()
			return
		}

		c.Set(logger.PrincipalKey, principal.Subject)
		c.Next()
	}
}
