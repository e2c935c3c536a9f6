package handlers

import (
	"context"
	stdErrors "errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/accounts/internal/auth/providers"
	"github.com/charlesng35/accounts/internal/middleware"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/errors"
	"github.com/charlesng35/accounts/pkg/logger"
	"github.com/charlesng35/accounts/pkg/metrics"
	"github.com/charlesng35/accounts/pkg/response"
)

const (
	msgVerified       = "Email verified successfully! You can now log in."
	msgResetRequested = "If an account exists for that email, a password reset link has been sent."
	msgResetComplete  = "Password reset successful! You can now log in with your new password."
)

// CodeExchanger trades an external authorization code for a provider grant.
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*providers.Grant, error)
}

// AccountHandler exposes the account lifecycle over HTTP.
type AccountHandler struct {
	svc         *services.AccountService
	linkedin    CodeExchanger
	frontendURL string
	log         *zap.Logger
}

// AccountHandlerOption customises an AccountHandler.
type AccountHandlerOption func(*AccountHandler)

// WithLinkedIn enables the LinkedIn authorization code callback, redirecting to frontendURL.
func WithLinkedIn(exchanger CodeExchanger, frontendURL string) AccountHandlerOption {
	return func(h *AccountHandler) {
		h.linkedin = exchanger
		h.frontendURL = strings.TrimSpace(frontendURL)
	}
}

func NewAccountHandler(svc *services.AccountService, opts ...AccountHandlerOption) *AccountHandler {
	h := &AccountHandler{svc: svc, log: logger.WithModule("handlers.accounts")}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10,max=128,secret"`
	Name     string `json:"name" validate:"required,notblank,max=120"`
	Gender   string `json:"gender" validate:"required,gender"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=10,max=128,secret"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Gender    string    `json:"gender"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type loginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresAt   time.Time       `json:"expires_at"`
	Account     accountResponse `json:"account"`
}

// requestContext returns the request context, falling back to Background for bare test contexts.
func requestContext(c *gin.Context) context.Context {
	if c == nil || c.Request == nil {
		return context.Background()
	}
	return c.Request.Context()
}

func toAccountResponse(account *models.Account) accountResponse {
	return accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		Name:      account.Name,
		Gender:    account.Gender,
		Role:      account.Role,
		Active:    account.Active,
		State:     string(account.State()),
		CreatedAt: account.CreatedAt,
		UpdatedAt: account.UpdatedAt,
	}
}

// POST /api/accounts/register
func (h *AccountHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	account, err := h.svc.Register(requestContext(c), services.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Gender:   strings.ToLower(strings.TrimSpace(req.Gender)),
	})
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusCreated, toAccountResponse(account))
}

// POST /api/accounts/login
func (h *AccountHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	result, err := h.svc.Login(requestContext(c), req.Email, req.Password)
	metrics.AuthAttempts.WithLabelValues(metrics.ResultLabel(err)).Inc()
	if err != nil {
		// Normalise auth errors to 401
		if stdErrors.Is(err, services.ErrUnauthorized) {
			response.Error(c, errors.ErrInvalidCredentials)
			return
		}
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, loginResponse{
		AccessToken: result.AccessToken,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		Account:     toAccountResponse(result.Account),
	})
}

// POST /api/accounts/verify-email/:token
func (h *AccountHandler) VerifyEmail(c *gin.Context) {
	if _, err := h.svc.VerifyEmail(requestContext(c), c.Param("token")); err != nil {
		if stdErrors.Is(err, services.ErrNotFound) {
			response.Error(c, errors.NewNotFound("Invalid verification token."))
			return
		}
		response.Error(c, mapServiceError(err))
		return
	}

	response.Message(c, http.StatusOK, msgVerified)
}

// POST /api/accounts/forgot-password
func (h *AccountHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	// Unknown emails answer like known ones so the endpoint cannot be used to probe accounts.
	if _, err := h.svc.InitiatePasswordReset(requestContext(c), req.Email); err != nil && !stdErrors.Is(err, services.ErrNotFound) {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Message(c, http.StatusAccepted, msgResetRequested)
}

// POST /api/accounts/reset-password/:token
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(requestContext(c), c.Param("token"), req.Password); err != nil {
		if stdErrors.Is(err, services.ErrNotFound) {
			response.Error(c, errors.NewNotFound("Invalid or expired reset token."))
			return
		}
		response.Error(c, mapServiceError(err))
		return
	}

	response.Message(c, http.StatusOK, msgResetComplete)
}

// GET /api/accounts
func (h *AccountHandler) List(c *gin.Context) {
	accounts, err := h.svc.ListAccounts(requestContext(c))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	out := make([]accountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	response.SuccessWithMeta(c, http.StatusOK, out, &response.Meta{Total: len(out)})
}

// GET /api/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.svc.GetAccount(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, mapServiceError(err))
		return
	}

	response.Success(c, http.StatusOK, toAccountResponse(account))
}

// GET /api/accounts/me
func (h *AccountHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	payload := gin.H{
		"account_id": claims.AccountID,
		"email":      claims.Email,
		"role":       claims.Role,
	}
	if claims.ExpiresAt != nil {
		payload["expires_at"] = claims.ExpiresAt.Time
	}
	response.Success(c, http.StatusOK, payload)
}

// GET /api/accounts/linkedin?code=
func (h *AccountHandler) LinkedInCallback(c *gin.Context) {
	if h.linkedin == nil || h.frontendURL == "" {
		response.Error(c, errors.NewNotFound("LinkedIn sign-in is not enabled"))
		return
	}

	if providerErr := strings.TrimSpace(c.Query("error")); providerErr != "" {
		response.Error(c, errors.NewBadRequest("LinkedIn authorization failed: "+providerErr))
		return
	}

	code := strings.TrimSpace(c.Query("code"))
	if code == "" {
		response.Error(c, errors.NewBadRequest("code is required"))
		return
	}

	grant, err := h.linkedin.Exchange(requestContext(c), code)
	if err != nil {
		h.log.Warn("linkedin exchange failed", zap.Error(err))
		response.Error(c, errors.ErrBadGateway.WithInternal(err))
		return
	}

	target, err := url.Parse(h.frontendURL)
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	query := target.Query()
	query.Set("access_token", grant.AccessToken)
	if grant.Identity != nil && grant.Identity.Email != "" {
		query.Set("email", grant.Identity.Email)
	}
	target.RawQuery = query.Encode()

	c.Redirect(http.StatusFound, target.String())
}

// mapServiceError converts AccountService error kinds into API errors.
func mapServiceError(err error) *errors.AppError {
	switch {
	case err == nil:
		return nil
	case stdErrors.Is(err, services.ErrConflict):
		return errors.NewConflict("An account with this email already exists")
	case stdErrors.Is(err, services.ErrNotFound):
		return errors.NewNotFound("Account not found")
	case stdErrors.Is(err, services.ErrUnauthorized):
		return errors.ErrUnauthorized
	case stdErrors.Is(err, services.ErrValidation):
		return errors.NewBadRequest(strings.TrimPrefix(err.Error(), "account: "))
	default:
		return errors.ErrInternalServer.WithInternal(err)
	}
}
