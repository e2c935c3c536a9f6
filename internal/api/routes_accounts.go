package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/middleware"
)

func registerAccountRoutes(group *gin.RouterGroup, deps Dependencies) {
	cfg := deps.Config

	var opts []handlers.AccountHandlerOption
	if deps.LinkedIn != nil {
		opts = append(opts, handlers.WithLinkedIn(deps.LinkedIn, cfg.OAuth.LinkedIn.FrontendURL))
	}
	accounts := handlers.NewAccountHandler(deps.Accounts, opts...)

	// Public lifecycle routes
	group.POST("/register", accounts.Register)
	group.POST("/login", accounts.Login)
	group.POST("/verify-email/:token", accounts.VerifyEmail)
	group.POST("/forgot-password", accounts.ForgotPassword)
	group.POST("/reset-password/:token", accounts.ResetPassword)
	group.GET("/linkedin", accounts.LinkedInCallback)

	requireAuth := middleware.Auth(deps.JWT)
	// Origin runs again after Auth so audit entries carry the authenticated account id.
	authed := group.Group("", requireAuth, middleware.Origin())
	authed.GET("/me", accounts.Me)

	privileged := authed.Group("", middleware.RequireRole(cfg.Auth.ListingRoles()...))
	{
		privileged.GET("", accounts.List)
		privileged.GET("/all", accounts.List)
		if deps.Audit != nil {
			privileged.GET("/audit", handlers.NewAuditHandler(deps.Audit).List)
		}
		privileged.GET("/:id", accounts.Get)
	}
}
