package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charlesng35/accounts/internal/auditctx"
	"github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/pkg/crypto"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
)

// DefaultResetTokenTTL bounds how long a password reset token stays valid.
const DefaultResetTokenTTL = time.Hour

// TokenSource mints opaque single-use tokens.
type TokenSource interface {
	Generate() (string, error)
}

// SessionIssuer signs access credentials for authenticated accounts.
type SessionIssuer interface {
	IssueAccessToken(session auth.SessionClaims) (string, time.Time, error)
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Gender   string
	Role     string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Account     *models.Account
}

// ResetTicket describes an outstanding password reset.
type ResetTicket struct {
	AccountID string
	Token     string
	ExpiresAt time.Time
}

// AccountServiceOption customises the AccountService.
type AccountServiceOption func(*AccountService)

// WithNotifier delivers verification and reset links after the corresponding transition.
func WithNotifier(notifier Notifier) AccountServiceOption {
	return func(s *AccountService) {
		s.notifier = notifier
	}
}

// WithAuditRecorder records lifecycle events.
func WithAuditRecorder(recorder AuditRecorder) AccountServiceOption {
	return func(s *AccountService) {
		s.audit = recorder
	}
}

// WithResetTokenTTL overrides the reset token lifetime.
func WithResetTokenTTL(d time.Duration) AccountServiceOption {
	return func(s *AccountService) {
		if d > 0 {
			s.resetTTL = d
		}
	}
}

// WithAccountClock injects a custom time source.
func WithAccountClock(clock func() time.Time) AccountServiceOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAccountLogger replaces the module logger.
func WithAccountLogger(log *zap.Logger) AccountServiceOption {
	return func(s *AccountService) {
		if log != nil {
			s.log = log
		}
	}
}

// AccountService drives the account lifecycle: registration, verification, login and password reset.
// Every transition that consumes a token is a single conditional update against the store.
type AccountService struct {
	store    AccountStore
	hasher   crypto.PasswordHasher
	tokens   TokenSource
	sessions SessionIssuer
	notifier Notifier
	audit    AuditRecorder
	resetTTL time.Duration
	now      func() time.Time
	log      *zap.Logger
}

// NewAccountService constructs the lifecycle service with its required collaborators.
func NewAccountService(store AccountStore, hasher crypto.PasswordHasher, tokens TokenSource, sessions SessionIssuer, opts ...AccountServiceOption) (*AccountService, error) {
	if store == nil {
		return nil, errors.New("account service: store is required")
	}
	if hasher == nil {
		return nil, errors.New("account service: password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("account service: token source is required")
	}
	if sessions == nil {
		return nil, errors.New("account service: session issuer is required")
	}

	svc := &AccountService{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		sessions: sessions,
		resetTTL: DefaultResetTokenTTL,
		now:      time.Now,
		log:      logger.WithModule("accounts"),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Register creates a pending account and sends its verification link. No session is issued.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*models.Account, error) {
	ctx = ensureContext(ctx)

	email := normaliseEmail(input.Email)
	if email == "" {
		return nil, validationError("email is required")
	}
	if input.Password == "" {
		return nil, validationError("password is required")
	}

	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = models.DefaultAccountRole
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("account: hash password: %w", err)
	}
	token, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("account: generate verification token: %w", err)
	}

	account := &models.Account{
		Email:             email,
		PasswordHash:      hash,
		Name:              strings.TrimSpace(input.Name),
		Gender:            strings.TrimSpace(input.Gender),
		Role:              role,
		Active:            false,
		VerificationToken: &token,
	}

	if err := s.store.Insert(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			s.record(ctx, "register", AuditActionRegister, nil, email, ErrConflict)
			return nil, ErrConflict
		}
		return nil, s.storeFailure("register", err)
	}

	s.log.Info("account registered", zap.String("account_id", account.ID), zap.String("email", email), zap.String("role", role))
	s.record(ctx, "register", AuditActionRegister, &account.ID, email, nil)

	if s.notifier != nil {
		if err := s.notifier.SendVerification(ctx, account, token); err != nil {
			s.log.Warn("verification email not delivered", zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	return account, nil
}

// VerifyEmail consumes a verification token and activates its account. Unknown or already used
// tokens yield ErrNotFound; under concurrent calls with the same token exactly one succeeds.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) (*models.Account, error) {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}

	// The lookup only identifies the account for logging; the update below decides the outcome.
	candidate, err := s.store.FindByVerificationToken(ctx, token)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, "verify", AuditActionVerify, nil, "", ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("verify email", err)
	}

	active := true
	affected, err := s.store.ConditionalUpdate(ctx,
		AccountMatch{ID: candidate.ID, VerificationToken: token},
		AccountChanges{Active: &active, ClearVerificationToken: true},
	)
	if err != nil {
		return nil, s.storeFailure("verify email", err)
	}
	if affected == 0 {
		s.record(ctx, "verify", AuditActionVerify, &candidate.ID, candidate.Email, ErrNotFound)
		return nil, ErrNotFound
	}

	candidate.Active = true
	candidate.VerificationToken = nil

	s.log.Info("account verified", zap.String("account_id", candidate.ID))
	s.record(ctx, "verify", AuditActionVerify, &candidate.ID, candidate.Email, nil)
	return candidate, nil
}

// Login authenticates an active account and issues a session credential.
// Unknown emails, inactive accounts and wrong passwords all yield ErrUnauthorized.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, "", AuditActionLogin, nil, email, ErrUnauthorized)
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, s.storeFailure("login", err)
	}

	if !account.Active {
		s.record(ctx, "", AuditActionLogin, &account.ID, email, ErrUnauthorized)
		return nil, ErrUnauthorized
	}
	if !s.hasher.Verify(account.PasswordHash, password) {
		s.record(ctx, "", AuditActionLogin, &account.ID, email, ErrUnauthorized)
		return nil, ErrUnauthorized
	}

	accessToken, expiresAt, err := s.sessions.IssueAccessToken(auth.SessionClaims{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	})
	if err != nil {
		return nil, fmt.Errorf("account: issue session: %w", err)
	}

	s.record(ctx, "", AuditActionLogin, &account.ID, email, nil)
	return &LoginResult{AccessToken: accessToken, ExpiresAt: expiresAt, Account: account}, nil
}

// InitiatePasswordReset mints a reset token for the account, replacing any outstanding one.
// It returns ErrNotFound for unknown emails; callers facing the public should mask that.
func (s *AccountService) InitiatePasswordReset(ctx context.Context, email string) (*ResetTicket, error) {
	ctx = ensureContext(ctx)
	email = normaliseEmail(email)

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, "reset_request", AuditActionResetRequest, nil, email, ErrNotFound)
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("initiate password reset", err)
	}

	token, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("account: generate reset token: %w", err)
	}
	expiresAt := s.now().UTC().Add(s.resetTTL)

	affected, err := s.store.ConditionalUpdate(ctx,
		AccountMatch{ID: account.ID},
		AccountChanges{ResetToken: &token, ResetTokenExpiresAt: &expiresAt},
	)
	if err != nil {
		return nil, s.storeFailure("initiate password reset", err)
	}
	if affected == 0 {
		s.record(ctx, "reset_request", AuditActionResetRequest, &account.ID, email, ErrNotFound)
		return nil, ErrNotFound
	}

	account.ResetToken = &token
	account.ResetTokenExpiresAt = &expiresAt

	s.log.Info("password reset requested", zap.String("account_id", account.ID), zap.Time("expires_at", expiresAt))
	s.record(ctx, "reset_request", AuditActionResetRequest, &account.ID, email, nil)

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, account, token, expiresAt); err != nil {
			s.log.Warn("password reset email not delivered", zap.String("account_id", account.ID), zap.Error(err))
		}
	}

	return &ResetTicket{AccountID: account.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// ResetPassword consumes an unexpired reset token and replaces the password hash in the same
// update. Wrong, consumed or expired tokens yield ErrNotFound. The active flag is left as is.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	ctx = ensureContext(ctx)

	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNotFound
	}
	if newPassword == "" {
		return validationError("password is required")
	}

	candidate, err := s.store.FindByResetToken(ctx, token)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, "reset", AuditActionReset, nil, "", ErrNotFound)
		return ErrNotFound
	}
	if err != nil {
		return s.storeFailure("reset password", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("account: hash password: %w", err)
	}

	now := s.now().UTC()
	affected, err := s.store.ConditionalUpdate(ctx,
		AccountMatch{ID: candidate.ID, ResetToken: token, ResetValidAt: &now},
		AccountChanges{PasswordHash: &hash, ClearResetToken: true},
	)
	if err != nil {
		return s.storeFailure("reset password", err)
	}
	if affected == 0 {
		s.record(ctx, "reset", AuditActionReset, &candidate.ID, candidate.Email, ErrNotFound)
		return ErrNotFound
	}

	s.log.Info("password reset completed", zap.String("account_id", candidate.ID))
	s.record(ctx, "reset", AuditActionReset, &candidate.ID, candidate.Email, nil)
	return nil
}

// ListAccounts returns every account.
func (s *AccountService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	accounts, err := s.store.List(ensureContext(ctx))
	if err != nil {
		return nil, s.storeFailure("list accounts", err)
	}
	return accounts, nil
}

// GetAccount returns a single account by id.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrNotFound
	}

	account, err := s.store.FindByID(ensureContext(ctx), id)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("get account", err)
	}
	return account, nil
}

func (s *AccountService) storeFailure(op string, cause error) error {
	s.log.Error("account store failure", zap.String("op", op), zap.Error(cause))
	return newStoreError(op, cause)
}

// record bumps the lifecycle counter (when event is set) and writes the audit entry.
// Audit failures are logged, never returned.
func (s *AccountService) record(ctx context.Context, event, action string, accountID *string, email string, outcome error) {
	if event != "" {
		metrics.LifecycleEvents.WithLabelValues(event, metrics.ResultLabel(outcome)).Inc()
	}
	if s.audit == nil {
		return
	}

	entry := AuditEntry{
		AccountID: accountID,
		Email:     email,
		Action:    action,
		Result:    AuditResultSuccess,
	}
	if outcome != nil {
		entry.Result = AuditResultFailure
		entry.Metadata = map[string]any{"reason": outcome.Error()}
	}
	if origin, ok := auditctx.FromContext(ctx); ok {
		entry.IPAddress = origin.IPAddress
		entry.UserAgent = origin.UserAgent
	}

	if err := s.audit.Log(ctx, entry); err != nil {
		s.log.Warn("audit entry not recorded", zap.String("action", action), zap.Error(err))
	}
}
