package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/charlesng35/accounts/internal/api"
	"github.com/charlesng35/accounts/internal/app"
	iauth "github.com/charlesng35/accounts/internal/auth"
	sharedtestutil "github.com/charlesng35/accounts/internal/database/testutil"
	"github.com/charlesng35/accounts/internal/handlers"
	"github.com/charlesng35/accounts/internal/monitoring"
	"github.com/charlesng35/accounts/internal/monitoring/checks"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/crypto"
	"github.com/charlesng35/accounts/pkg/mail"
	"github.com/charlesng35/accounts/pkg/response"
)

// Front-end pages that lifecycle emails link to.
const (
	VerifyPageURL = "https://shop.example.com/account/verify"
	ResetPageURL  = "https://shop.example.com/account/reset"
)

var linkPattern = regexp.MustCompile(`https?://\S+`)

// Env encapsulates a fully-wired API instance backed by an in-memory database for handler tests.
type Env struct {
	T        *testing.T
	DB       *gorm.DB
	Router   *gin.Engine
	JWT      *iauth.JWTService
	Accounts *services.AccountService
	Outbox   *mail.Outbox
	Config   *app.Config
}

// EnvOption customises the router dependencies before the engine is built.
type EnvOption func(*api.Dependencies)

// WithLinkedIn installs a LinkedIn code exchanger; redirects go to the configured front-end URL.
func WithLinkedIn(exchanger handlers.CodeExchanger) EnvOption {
	return func(deps *api.Dependencies) {
		deps.LinkedIn = exchanger
	}
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...EnvOption) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		Auth: app.AuthConfig{
			JWT: app.JWTSettings{
				Secret: "test-suite-super-secret-key-32-bytes!!",
				Issuer: "test-suite",
				TTL:    time.Hour,
			},
			Password:   app.PasswordSettings{Algorithm: "bcrypt", BcryptCost: bcrypt.MinCost},
			Tokens:     app.TokenSettings{SizeBytes: crypto.DefaultTokenBytes, ResetTTL: time.Hour},
			PublicURL:  "https://shop.example.com",
			Links: app.LinkSettings{
				VerifyURL: VerifyPageURL + "/{token}",
				ResetURL:  ResetPageURL,
			},
			AdminRoles: []string{"admin", "seller"},
		},
		OAuth: app.OAuthConfig{LinkedIn: app.LinkedInConfig{FrontendURL: "https://app.example.com/oauth/linkedin"}},
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	require.NoError(t, err)

	hasher, err := cfg.Auth.PasswordHasher()
	require.NoError(t, err)
	tokens, err := cfg.Auth.TokenGenerator()
	require.NoError(t, err)

	outbox := mail.NewOutbox()
	notifier, err := services.NewMailNotifier(outbox, cfg.NotifierOptions()...)
	require.NoError(t, err)

	auditSvc, err := services.NewAuditService(db)
	require.NoError(t, err)

	store, err := services.NewGormAccountStore(db)
	require.NoError(t, err)

	accounts, err := services.NewAccountService(store, hasher, tokens, jwtSvc,
		services.WithNotifier(notifier),
		services.WithAuditRecorder(auditSvc),
		services.WithResetTokenTTL(cfg.Auth.ResetTokenTTL()),
	)
	require.NoError(t, err)

	health := monitoring.NewHealthManager(time.Second)
	health.Register(checks.Database(db))

	deps := api.Dependencies{
		Config:   cfg,
		JWT:      jwtSvc,
		Accounts: accounts,
		Audit:    auditSvc,
		Health:   health,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&deps)
		}
	}

	router, err := api.NewRouter(deps)
	require.NoError(t, err)

	return &Env{
		T:        t,
		DB:       db,
		Router:   router,
		JWT:      jwtSvc,
		Accounts: accounts,
		Outbox:   outbox,
		Config:   cfg,
	}
}

// CreateActiveAccount registers and verifies an account directly through the service layer.
func (e *Env) CreateActiveAccount(email, password, role string) string {
	e.T.Helper()

	account, err := e.Accounts.Register(context.Background(), services.RegisterInput{
		Email:    email,
		Password: password,
		Name:     "Test Account",
		Gender:   "others",
		Role:     role,
	})
	require.NoError(e.T, err)

	_, err = e.Accounts.VerifyEmail(context.Background(), e.VerificationToken(account.Email))
	require.NoError(e.T, err)
	return account.ID
}

// VerificationToken extracts the token from the latest verification email sent to recipient,
// reading it off the emailed page link the way the verification page does.
func (e *Env) VerificationToken(recipient string) string {
	e.T.Helper()

	link := e.EmailedLink(recipient, VerifyPageURL+"/")
	return strings.TrimPrefix(link.Path, "/account/verify/")
}

// ResetToken extracts the token from the latest password reset email sent to recipient.
func (e *Env) ResetToken(recipient string) string {
	e.T.Helper()

	link := e.EmailedLink(recipient, ResetPageURL+"?")
	return link.Query().Get("token")
}

// EmailedLink returns the link starting with prefix from the latest message sent to recipient.
func (e *Env) EmailedLink(recipient, prefix string) *url.URL {
	e.T.Helper()

	msg, ok := e.Outbox.Last(recipient)
	require.True(e.T, ok, "no message sent to %s", recipient)

	for _, raw := range linkPattern.FindAllString(msg.Body, -1) {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		link, err := url.Parse(raw)
		require.NoError(e.T, err)
		return link
	}
	require.Failf(e.T, "link not found", "no link starting with %s in %q", prefix, msg.Body)
	return nil
}

// LoginResult mirrors the handler login response payload.
type LoginResult struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	Account     AccountPayload `json:"account"`
}

// AccountPayload captures the account fields returned by the API.
type AccountPayload struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
	State  string `json:"state"`
}

// Login authenticates through the HTTP surface and returns the issued access token.
func (e *Env) Login(email, password string) LoginResult {
	e.T.Helper()

	w := e.Request(http.MethodPost, "/api/accounts/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.Equal(e.T, http.StatusOK, w.Code, w.Body.String())

	resp := DecodeResponse(e.T, w)
	require.True(e.T, resp.Success, w.Body.String())

	var result LoginResult
	DecodeInto(e.T, resp.Data, &result)
	require.NotEmpty(e.T, result.AccessToken)
	require.Equal(e.T, "Bearer", result.TokenType)
	return result
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, applying JSON encoding and auth headers automatically.
func (e *Env) Request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.T.Helper()

	buf := bytes.NewBuffer(nil)
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.RemoteAddr = "198.51.100.10:4321"
	req.Header.Set("User-Agent", "accounts-handler-tests")

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}
