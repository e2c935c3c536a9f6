package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/accounts/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills settings the process cannot start without when no configuration
// supplies them. The returned map names generated keys so callers can log them without values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if len(cfg.Auth.AdminRoles) == 0 {
		cfg.Auth.AdminRoles = []string{"admin", "seller"}
		generated["auth.admin_roles"] = true
	}

	// Links in lifecycle emails must be absolute; public_url is the front-end origin.
	if strings.TrimSpace(cfg.Auth.PublicURL) == "" {
		port := cfg.Server.Port
		if port == 0 {
			port = 8000
		}
		cfg.Auth.PublicURL = fmt.Sprintf("http://localhost:%d", port)
		generated["auth.public_url"] = true
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.Auth.PublicURL), "/")
	if strings.TrimSpace(cfg.Auth.Links.VerifyURL) == "" {
		cfg.Auth.Links.VerifyURL = base + "/verify-email/{token}"
		generated["auth.links.verify_url"] = true
	}
	if strings.TrimSpace(cfg.Auth.Links.ResetURL) == "" {
		cfg.Auth.Links.ResetURL = base + "/reset-password/{token}"
		generated["auth.links.reset_url"] = true
	}

	if cfg.OAuth.LinkedIn.Enabled && strings.TrimSpace(cfg.OAuth.LinkedIn.FrontendURL) == "" {
		cfg.OAuth.LinkedIn.FrontendURL = cfg.Auth.PublicURL
		generated["oauth.linkedin.frontend_url"] = true
	}

	return generated, nil
}
