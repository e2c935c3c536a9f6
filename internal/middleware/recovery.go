package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/response"
)

// Recovery converts panics into a 500 response and logs the panic with its stack.
// The route template is logged instead of the path since lifecycle links embed tokens.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				fields := []zap.Field{
					zap.String("method", c.Request.Method),
					zap.String("route", routeLabel(c)),
					zap.Any("panic", r),
					zap.Stack("stack"),
				}
				if accountID := c.GetString(CtxAccountIDKey); accountID != "" {
					fields = append(fields, zap.String("account_id", accountID))
				}
				logger.WithModule("http").Error("panic recovered", fields...)

				response.Error(c, errors.ErrInternalServer.WithInternal(fmt.Errorf("panic: %v", r)))
				c.Abort()
			}
		}()
		c.Next()
	}
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.NewNotFound(fmt.Sprintf("route %s %s not found", c.Request.Method, c.Request.URL.Path)))
}

// MethodNotAllowedHandler returns a JSON 405 response when the path exists under another method.
func MethodNotAllowedHandler(c *gin.Context) {
	response.Error(c, errors.New("METHOD_NOT_ALLOWED", fmt.Sprintf("method %s not allowed on %s", c.Request.Method, c.Request.URL.Path), http.StatusMethodNotAllowed))
}
