package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/metrics"
	"github.com/charlesng35/accounts/pkg/response"
)

// RequireRole admits requests whose authenticated role is one of roles.
// It must run after Auth.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.ToLower(strings.TrimSpace(role))
		if role != "" {
			allowed[role] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		role, ok := c.Get(CtxRoleKey)
		if !ok {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		name, _ := role.(string)
		if _, permitted := allowed[strings.ToLower(strings.TrimSpace(name))]; !permitted {
			metrics.RoleChecks.WithLabelValues("deny").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}

		metrics.RoleChecks.WithLabelValues("allow").Inc()
		c.Next()
	}
}
