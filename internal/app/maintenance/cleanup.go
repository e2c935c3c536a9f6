package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSpec          = "@daily"
	defaultResetTokenSpec     = "@every 15m"

	jobResetTokens = "reset_tokens"
	jobAudit       = "audit"
)

// ResetTokenSweeper clears password reset tokens whose expiry has passed.
type ResetTokenSweeper interface {
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// AuditPruner removes audit entries older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner coordinates background maintenance: clearing expired reset tokens and pruning
// stale audit logs.
type Cleaner struct {
	tokens    ResetTokenSweeper
	audit     AuditPruner
	cron      *cron.Cron
	now       func() time.Time
	log       *zap.Logger
	enabled   bool
	retention int

	auditSchedule string
	tokenSchedule string

	status *jobTracker
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for expiry comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.auditSchedule = expr
		}
	}
}

// WithResetTokenSchedule overrides the cron expression for reset token cleanup.
func WithResetTokenSchedule(expr string) Option {
	return func(cleaner *Cleaner) {
		if expr != "" {
			cleaner.tokenSchedule = expr
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency results in
// the corresponding cleanup job being skipped.
func NewCleaner(tokens ResetTokenSweeper, audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		tokens:        tokens,
		audit:         audit,
		now:           time.Now,
		retention:     defaultAuditRetentionDays,
		auditSchedule: defaultAuditSpec,
		tokenSchedule: defaultResetTokenSpec,
		log:           logger.WithModule("maintenance"),
		status:        newJobTracker(),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	cleaner.enabled = cleaner.tokens != nil || cleaner.audit != nil

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it if at least one cleanup is enabled.
func (c *Cleaner) Start() error {
	if !c.enabled {
		return nil
	}

	if c.tokens != nil {
		id, err := c.cron.AddFunc(c.tokenSchedule, func() {
			if err := c.clearResetTokens(context.Background()); err != nil {
				c.log.Warn("reset token cleanup failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		c.status.register(jobResetTokens, id)
	}

	if c.audit != nil && c.retention > 0 {
		id, err := c.cron.AddFunc(c.auditSchedule, func() {
			if err := c.pruneAudit(context.Background()); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		})
		if err != nil {
			return err
		}
		c.status.register(jobAudit, id)
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.tokens != nil {
		errs = multierr.Append(errs, c.clearResetTokens(ctx))
	}

	if c.audit != nil && c.retention > 0 {
		errs = multierr.Append(errs, c.pruneAudit(ctx))
	}

	return errs
}

func (c *Cleaner) clearResetTokens(ctx context.Context) error {
	cleared, err := c.tokens.ClearExpiredResetTokens(ctx, c.now().UTC())
	metrics.MaintenanceRuns.WithLabelValues(jobResetTokens, metrics.ResultLabel(err)).Inc()
	c.status.observe(jobResetTokens, c.now(), err)
	if err != nil {
		return err
	}
	if cleared > 0 {
		c.log.Info("expired reset tokens cleared", zap.Int64("count", cleared))
	}
	return nil
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	metrics.MaintenanceRuns.WithLabelValues(jobAudit, metrics.ResultLabel(err)).Inc()
	c.status.observe(jobAudit, c.now(), err)
	if err != nil {
		return err
	}
	if removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("count", removed), zap.Int("retention_days", c.retention))
	}
	return nil
}

// Jobs reports the run history and next scheduled run of every registered or executed job.
func (c *Cleaner) Jobs() []JobStatus {
	return c.status.snapshot(c.cron)
}
