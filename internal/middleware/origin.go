package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/auditctx"
)

// Origin stores the caller's address and user agent on the request context for audit entries.
// When Auth has already run, the authenticated account id is attached as well.
func Origin() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := auditctx.Origin{
			AccountID: c.GetString(CtxAccountIDKey),
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(auditctx.WithOrigin(c.Request.Context(), origin))
		c.Next()
	}
}
