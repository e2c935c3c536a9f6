package app

import (
	"strings"
	"time"

	"github.com/charlesng35/accounts/internal/auth"
	"github.com/charlesng35/accounts/internal/auth/providers"
	"github.com/charlesng35/accounts/internal/services"
	"github.com/charlesng35/accounts/pkg/crypto"
	"github.com/charlesng35/accounts/pkg/mail"
)

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultAccessTokenTTL
	}

	return auth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}

// PasswordHasher builds the configured password hasher.
func (c AuthConfig) PasswordHasher() (crypto.PasswordHasher, error) {
	return crypto.NewPasswordHasher(c.Password.Algorithm, c.Password.BcryptCost, crypto.Argon2Parameters{
		Time:      c.Password.Argon2.Time,
		Memory:    c.Password.Argon2.Memory,
		Threads:   c.Password.Argon2.Threads,
		KeyLength: c.Password.Argon2.KeyLength,
	})
}

// TokenGenerator builds the single-use token generator.
func (c AuthConfig) TokenGenerator() (*crypto.TokenGenerator, error) {
	return crypto.NewTokenGenerator(c.Tokens.SizeBytes)
}

// ResetTokenTTL returns the reset token lifetime, falling back to the service default.
func (c AuthConfig) ResetTokenTTL() time.Duration {
	if c.Tokens.ResetTTL <= 0 {
		return services.DefaultResetTokenTTL
	}
	return c.Tokens.ResetTTL
}

// ListingRoles returns the roles allowed to enumerate accounts.
func (c AuthConfig) ListingRoles() []string {
	roles := make([]string, 0, len(c.AdminRoles))
	for _, role := range c.AdminRoles {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return []string{"admin"}
	}
	return roles
}

// LinkedInProviderConfig converts OAuthConfig into LinkedIn provider parameters.
func (c OAuthConfig) LinkedInProviderConfig() providers.LinkedInConfig {
	return providers.LinkedInConfig{
		ClientID:     c.LinkedIn.ClientID,
		ClientSecret: c.LinkedIn.ClientSecret,
		RedirectURL:  c.LinkedIn.RedirectURL,
		Scopes:       c.LinkedIn.Scopes,
		AuthURL:      c.LinkedIn.AuthURL,
		TokenURL:     c.LinkedIn.TokenURL,
		UserInfoURL:  c.LinkedIn.UserInfoURL,
	}
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     strings.TrimSpace(c.SMTP.Host),
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     strings.TrimSpace(c.SMTP.From),
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// NotifierOptions configures the lifecycle mail notifier from the link templates and product name.
func (c Config) NotifierOptions() []services.MailNotifierOption {
	return []services.MailNotifierOption{
		services.WithNotifierLinks(c.Auth.Links.VerifyURL, c.Auth.Links.ResetURL),
		services.WithNotifierProductName(c.Email.ProductName),
	}
}
