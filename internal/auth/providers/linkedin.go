package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultLinkedInTimeout = 10 * time.Second

// LinkedInConfig describes the OAuth client registered with LinkedIn.
type LinkedInConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	HTTPClient   *http.Client
	Timeout      time.Duration
}

// Identity represents the claims returned from the LinkedIn userinfo endpoint.
type Identity struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	DisplayName   string
	AvatarURL     string
}

// Grant is the outcome of a successful authorization code exchange.
type Grant struct {
	AccessToken string
	ExpiresAt   time.Time
	Identity    *Identity
}

// LinkedInProvider exchanges LinkedIn authorization codes for access tokens.
type LinkedInProvider struct {
	oauthConfig *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
	timeout     time.Duration
}

// NewLinkedInProvider validates cfg and builds the provider.
func NewLinkedInProvider(cfg LinkedInConfig) (*LinkedInProvider, error) {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("linkedin provider: client id is required")
	}
	if strings.TrimSpace(cfg.ClientSecret) == "" {
		return nil, errors.New("linkedin provider: client secret is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return nil, errors.New("linkedin provider: redirect url is required")
	}
	if strings.TrimSpace(cfg.TokenURL) == "" || strings.TrimSpace(cfg.UserInfoURL) == "" {
		return nil, errors.New("linkedin provider: token and userinfo urls are required")
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email"}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultLinkedInTimeout
	}

	return &LinkedInProvider{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  cfg.HTTPClient,
		timeout:     timeout,
	}, nil
}

// AuthCodeURL returns the consent URL the browser should be sent to.
func (p *LinkedInProvider) AuthCodeURL(state string) string {
	return p.oauthConfig.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token and fetches the member's identity.
func (p *LinkedInProvider) Exchange(ctx context.Context, code string) (*Grant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, errors.New("linkedin provider: authorization code missing")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	token, err := p.oauthConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("linkedin provider: exchange failed: %w", err)
	}

	identity, err := p.fetchIdentity(ctx, token)
	if err != nil {
		return nil, err
	}

	return &Grant{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.Expiry,
		Identity:    identity,
	}, nil
}

func (p *LinkedInProvider) fetchIdentity(ctx context.Context, token *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("linkedin provider: build userinfo request: %w", err)
	}

	resp, err := p.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkedin provider: userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("linkedin provider: userinfo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var claims struct {
		Subject       string `json:"sub"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("linkedin provider: decode userinfo: %w", err)
	}

	return &Identity{
		Provider:      "linkedin",
		Subject:       claims.Subject,
		Email:         strings.ToLower(strings.TrimSpace(claims.Email)),
		EmailVerified: claims.EmailVerified,
		FirstName:     claims.GivenName,
		LastName:      claims.FamilyName,
		DisplayName:   claims.Name,
		AvatarURL:     claims.Picture,
	}, nil
}
