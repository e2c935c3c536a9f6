package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/api"
	"github.com/charlesng35/accounts/internal/app"
	"github.com/charlesng35/accounts/internal/app/maintenance"
	iauth "github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/auth/providers"
	"github.com/charlesng35/accounts/internal/database"
	"github.com/charlesng35/accounts/internal/monitoring"
	"github.com/charlesng35/accounts/internal/monitoring/checks"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/mail"
)

const healthProbeTimeout = 3 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB       *gorm.DB
	Accounts *services.AccountService
	AuditSvc *services.AuditService
	Cleaner  *maintenance.Cleaner
	Health   *monitoring.HealthManager
	Router   *gin.Engine
}

// bootstrapRuntime opens the database and wires services, background jobs, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	hasher, err := cfg.Auth.PasswordHasher()
	if err != nil {
		return nil, fmt.Errorf("initialise password hasher: %w", err)
	}

	tokens, err := cfg.Auth.TokenGenerator()
	if err != nil {
		return nil, fmt.Errorf("initialise token generator: %w", err)
	}

	notifier, err := buildNotifier(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.AuditSvc, err = services.NewAuditService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise audit service: %w", err)
	}

	store, err := services.NewGormAccountStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise account store: %w", err)
	}

	stack.Accounts, err = services.NewAccountService(store, hasher, tokens, jwtSvc,
		services.WithNotifier(notifier),
		services.WithAuditRecorder(stack.AuditSvc),
		services.WithResetTokenTTL(cfg.Auth.ResetTokenTTL()),
	)
	if err != nil {
		return nil, fmt.Errorf("initialise account service: %w", err)
	}

	stack.Health = monitoring.NewHealthManager(healthProbeTimeout)
	stack.Health.Register(checks.Database(stack.DB))

	if cfg.Maintenance.Enabled {
		stack.Cleaner = maintenance.NewCleaner(store, stack.AuditSvc,
			maintenance.WithResetTokenSchedule(cfg.Maintenance.ResetTokenSchedule),
			maintenance.WithAuditSchedule(cfg.Maintenance.AuditSchedule),
			maintenance.WithAuditRetentionDays(cfg.Maintenance.AuditRetentionDays),
		)
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
		stack.Health.Register(checks.Maintenance(stack.Cleaner, 0, nil))
	}

	deps := api.Dependencies{
		Config:   cfg,
		JWT:      jwtSvc,
		Accounts: stack.Accounts,
		Audit:    stack.AuditSvc,
		Health:   stack.Health,
	}

	if cfg.OAuth.LinkedIn.Enabled {
		linkedin, err := providers.NewLinkedInProvider(cfg.OAuth.LinkedInProviderConfig())
		if err != nil {
			return nil, fmt.Errorf("initialise linkedin provider: %w", err)
		}
		deps.LinkedIn = linkedin
		log.Info("linkedin callback enabled", zap.String("redirect_url", cfg.OAuth.LinkedIn.RedirectURL))
	}

	stack.Router, err = api.NewRouter(deps)
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildNotifier delivers through SMTP. With SMTP disabled the mailer refuses every message and
// the notifier skips delivery, so nothing holding a token is retained in memory.
func buildNotifier(cfg *app.Config, log *zap.Logger) (*services.MailNotifier, error) {
	mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise smtp mailer: %w", err)
	}
	if cfg.Email.SMTP.Enabled {
		log.Info("smtp mailer configured", zap.String("host", cfg.Email.SMTP.Host), zap.Int("port", cfg.Email.SMTP.Port))
	} else {
		log.Warn("smtp disabled; verification and reset emails will not be sent")
	}

	notifier, err := services.NewMailNotifier(mailer, cfg.NotifierOptions()...)
	if err != nil {
		return nil, fmt.Errorf("initialise mail notifier: %w", err)
	}
	return notifier, nil
}

// Shutdown stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			ctx = stopCtx
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.Migrate(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, err
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := database.Config{
		Driver: strings.ToLower(strings.TrimSpace(cfg.Database.Driver)),
		Path:   strings.TrimSpace(cfg.Database.Path),
		DSN:    strings.TrimSpace(cfg.Database.DSN),

		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}

	switch dbCfg.Driver {
	case "", "sqlite":
		dbCfg.Driver = "sqlite"
		// SQLite allows one writer; a single connection turns lock contention into queueing.
		if dbCfg.MaxOpenConns == 0 {
			dbCfg.MaxOpenConns = 1
		}
	case "postgres", "postgresql":
		dbCfg.Driver = "postgres"
		dbCfg.Host = strings.TrimSpace(cfg.Database.Postgres.Host)
		dbCfg.Port = cfg.Database.Postgres.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.Postgres.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.Postgres.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.Postgres.Password)
	case "mysql":
		dbCfg.Host = strings.TrimSpace(cfg.Database.MySQL.Host)
		dbCfg.Port = cfg.Database.MySQL.Port
		dbCfg.Name = strings.TrimSpace(cfg.Database.MySQL.Database)
		dbCfg.User = strings.TrimSpace(cfg.Database.MySQL.Username)
		dbCfg.Password = strings.TrimSpace(cfg.Database.MySQL.Password)
	default:
		// Leave driver as-is to surface unsupported driver error during open.
	}

	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
