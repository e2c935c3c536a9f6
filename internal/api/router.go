package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/accounts/internal/app"
	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/monitoring"
	"github.com/charlesng35/accounts/internal/services"
)

// Dependencies carries the collaborators the HTTP surface is built from.
type Dependencies struct {
	Config   *app.Config
	JWT      *iauth.JWTService
	Accounts *services.AccountService
	Audit    handlers.AuditLister
	Health   *monitoring.HealthManager
	// LinkedIn is optional; the callback answers 404 when nil.
	LinkedIn handlers.CodeExchanger
}

func (d Dependencies) validate() error {
	if d.Config == nil {
		return fmt.Errorf("config must be provided")
	}
	if d.JWT == nil {
		return fmt.Errorf("jwt service must be provided")
	}
	if d.Accounts == nil {
		return fmt.Errorf("account service must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers the account routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	cfg := deps.Config
	metricsPath := cfg.Monitoring.Prometheus.Endpoint
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Origin())

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health())
		r.GET("/health/ready", handlers.Readiness(deps.Health))
	}

	if cfg.Monitoring.Prometheus.Enabled {
		r.GET(metricsPath, gin.WrapH(promhttp.Handler()))
	}

	registerAccountRoutes(r.Group("/api/accounts"), deps)

	return r, nil
}
