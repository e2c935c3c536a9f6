package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/models"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/crypto"
	"github.com/charlesng35/accounts/pkg/mail"
)

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join("testdata")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, "json", cfg.Server.LogFormat)
	require.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.True(t, cfg.Database.Postgres.Enabled)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, 5433, cfg.Database.Postgres.Port)
	require.False(t, cfg.Database.MySQL.Enabled)

	require.True(t, cfg.Maintenance.Enabled)
	require.Equal(t, "@every 5m", cfg.Maintenance.ResetTokenSchedule)
	require.Equal(t, "@daily", cfg.Maintenance.AuditSchedule)
	require.Equal(t, 30, cfg.Maintenance.AuditRetentionDays)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "accounts-test", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, "argon2id", cfg.Auth.Password.Algorithm)
	require.Equal(t, 11, cfg.Auth.Password.BcryptCost)
	require.Equal(t, uint32(3), cfg.Auth.Password.Argon2.Time)
	require.Equal(t, uint32(32768), cfg.Auth.Password.Argon2.Memory)
	require.Equal(t, uint8(2), cfg.Auth.Password.Argon2.Threads)
	require.Equal(t, 48, cfg.Auth.Tokens.SizeBytes)
	require.Equal(t, 2*time.Hour, cfg.Auth.Tokens.ResetTTL)
	require.Equal(t, "https://accounts.example.com/", cfg.Auth.PublicURL)
	require.Equal(t, "https://shop.example.com/account/verify/{token}", cfg.Auth.Links.VerifyURL)
	require.Equal(t, "https://shop.example.com/account/reset", cfg.Auth.Links.ResetURL)
	require.Equal(t, []string{"admin", "seller", "support"}, cfg.Auth.AdminRoles)

	require.True(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "smtp.example.com", cfg.Email.SMTP.Host)
	require.Equal(t, 2525, cfg.Email.SMTP.Port)
	require.Equal(t, "smtp-user", cfg.Email.SMTP.Username)
	require.Equal(t, "smtp-pass", cfg.Email.SMTP.Password)
	require.Equal(t, "no-reply@example.com", cfg.Email.SMTP.From)
	require.True(t, cfg.Email.SMTP.UseTLS)
	require.Equal(t, 15*time.Second, cfg.Email.SMTP.Timeout)

	require.True(t, cfg.OAuth.LinkedIn.Enabled)
	require.Equal(t, "li-client", cfg.OAuth.LinkedIn.ClientID)
	require.Equal(t, []string{"openid", "profile", "email"}, cfg.OAuth.LinkedIn.Scopes)
	require.Equal(t, "https://www.linkedin.com/oauth/v2/accessToken", cfg.OAuth.LinkedIn.TokenURL)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, time.Hour, cfg.Auth.JWT.TTL)
	require.Equal(t, "bcrypt", cfg.Auth.Password.Algorithm)
	require.Equal(t, 12, cfg.Auth.Password.BcryptCost)
	require.Equal(t, 32, cfg.Auth.Tokens.SizeBytes)
	require.Equal(t, time.Hour, cfg.Auth.Tokens.ResetTTL)
	require.Equal(t, []string{"admin", "seller"}, cfg.Auth.AdminRoles)
	require.False(t, cfg.Email.SMTP.Enabled)
	require.Equal(t, "Accounts", cfg.Email.ProductName)
	require.False(t, cfg.OAuth.LinkedIn.Enabled)
	require.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("ACCOUNTS_SERVER_PORT", "9191")
	t.Setenv("ACCOUNTS_AUTH_JWT_SECRET", "from-env")
	t.Setenv("ACCOUNTS_AUTH_TOKENS_RESET_TTL", "45m")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, 45*time.Minute, cfg.Auth.Tokens.ResetTTL)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT: JWTSettings{
			Secret: "secret",
			Issuer: "issuer",
			TTL:    30 * time.Minute,
		},
		Password:   PasswordSettings{Algorithm: "bcrypt", BcryptCost: 4},
		Tokens:     TokenSettings{SizeBytes: 16, ResetTTL: 2 * time.Hour},
		AdminRoles: []string{" seller ", ""},
	}

	require.Equal(t, auth.JWTConfig{
		Secret:         "secret",
		Issuer:         "issuer",
		AccessTokenTTL: 30 * time.Minute,
	}, cfg.JWTServiceConfig())

	hasher, err := cfg.PasswordHasher()
	require.NoError(t, err)
	require.IsType(t, &crypto.BcryptHasher{}, hasher)

	gen, err := cfg.TokenGenerator()
	require.NoError(t, err)
	token, err := gen.Generate()
	require.NoError(t, err)
	require.Len(t, token, 22)

	require.Equal(t, 2*time.Hour, cfg.ResetTokenTTL())
	require.Equal(t, []string{"seller"}, cfg.ListingRoles())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig

	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, services.DefaultResetTokenTTL, cfg.ResetTokenTTL())
	require.Equal(t, []string{"admin"}, cfg.ListingRoles())

	hasher, err := cfg.PasswordHasher()
	require.NoError(t, err)
	require.IsType(t, &crypto.BcryptHasher{}, hasher)
}

func TestOAuthConfigAdapter(t *testing.T) {
	cfg := OAuthConfig{LinkedIn: LinkedInConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  "https://example.com/cb",
		Scopes:       []string{"openid"},
		TokenURL:     "https://token",
		UserInfoURL:  "https://userinfo",
	}}

	converted := cfg.LinkedInProviderConfig()
	require.Equal(t, "id", converted.ClientID)
	require.Equal(t, "https://token", converted.TokenURL)
	require.Equal(t, []string{"openid"}, converted.Scopes)
}

func TestEmailConfigAdapter(t *testing.T) {
	cfg := EmailConfig{
		SMTP: SMTPConfig{
			Enabled:  true,
			Host:     " smtp.example.com ",
			Port:     2525,
			Username: "user",
			Password: "pass",
			From:     "no-reply@example.com",
			UseTLS:   true,
			Timeout:  10 * time.Second,
		},
	}

	settings := cfg.SMTPSettings()
	require.True(t, settings.Enabled)
	require.Equal(t, "smtp.example.com", settings.Host)
	require.Equal(t, 2525, settings.Port)
	require.Equal(t, "user", settings.Username)
	require.Equal(t, "pass", settings.Password)
	require.Equal(t, "no-reply@example.com", settings.From)
	require.True(t, settings.UseTLS)
	require.Equal(t, 10*time.Second, settings.Timeout)
}

func TestNotifierOptionsRenderLinks(t *testing.T) {
	cfg := Config{
		Auth: AuthConfig{Links: LinkSettings{
			VerifyURL: "https://shop.example.com/account/verify/{token}",
			ResetURL:  "https://shop.example.com/account/reset?lang=en",
		}},
		Email: EmailConfig{ProductName: "Storefront"},
	}

	outbox := mail.NewOutbox()
	notifier, err := services.NewMailNotifier(outbox, cfg.NotifierOptions()...)
	require.NoError(t, err)

	account := &models.Account{Email: "ada@example.com"}
	require.NoError(t, notifier.SendVerification(context.Background(), account, "tok123"))

	msg, ok := outbox.Last("ada@example.com")
	require.True(t, ok)
	require.Contains(t, msg.Subject, "Storefront")
	require.Contains(t, msg.Body, "https://shop.example.com/account/verify/tok123")
	require.NotContains(t, msg.Body, "/api/")

	require.NoError(t, notifier.SendPasswordReset(context.Background(), account, "tok456", time.Now().Add(time.Hour)))
	msg, ok = outbox.Last("ada@example.com")
	require.True(t, ok)
	require.Contains(t, msg.Body, "https://shop.example.com/account/reset?lang=en&token=tok456")
}
