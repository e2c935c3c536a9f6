package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the accounts backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Email       EmailConfig       `mapstructure:"email"`
	OAuth       OAuthConfig       `mapstructure:"oauth"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background housekeeping.
type MaintenanceConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ResetTokenSchedule string `mapstructure:"reset_token_schedule"`
	AuditSchedule      string `mapstructure:"audit_schedule"`
	AuditRetentionDays int    `mapstructure:"audit_retention_days"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT        JWTSettings      `mapstructure:"jwt"`
	Password   PasswordSettings `mapstructure:"password"`
	Tokens     TokenSettings    `mapstructure:"tokens"`
	PublicURL  string           `mapstructure:"public_url"`
	Links      LinkSettings     `mapstructure:"links"`
	AdminRoles []string         `mapstructure:"admin_roles"`
}

// LinkSettings holds the front-end page templates emailed to account holders. A "{token}"
// placeholder receives the token; otherwise it is appended as a "token" query parameter.
type LinkSettings struct {
	VerifyURL string `mapstructure:"verify_url"`
	ResetURL  string `mapstructure:"reset_url"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// PasswordSettings selects the password hashing algorithm and its cost.
type PasswordSettings struct {
	Algorithm  string         `mapstructure:"algorithm"`
	BcryptCost int            `mapstructure:"bcrypt_cost"`
	Argon2     Argon2Settings `mapstructure:"argon2"`
}

// Argon2Settings mirrors crypto.Argon2Parameters.
type Argon2Settings struct {
	Time      uint32 `mapstructure:"time"`
	Memory    uint32 `mapstructure:"memory"`
	Threads   uint8  `mapstructure:"threads"`
	KeyLength uint32 `mapstructure:"key_length"`
}

// TokenSettings controls single-use token generation.
type TokenSettings struct {
	SizeBytes int           `mapstructure:"size_bytes"`
	ResetTTL  time.Duration `mapstructure:"reset_ttl"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	ProductName string     `mapstructure:"product_name"`
	SMTP        SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// OAuthConfig holds external authorization code providers.
type OAuthConfig struct {
	LinkedIn LinkedInConfig `mapstructure:"linkedin"`
}

// LinkedInConfig configures the LinkedIn authorization code callback.
type LinkedInConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	FrontendURL  string   `mapstructure:"frontend_url"`
	Scopes       []string `mapstructure:"scopes"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
// Every key carries a default so ACCOUNTS_* environment variables can override any of them.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("ACCOUNTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/accounts.sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "30m")
	for _, vendor := range []string{"postgres", "mysql"} {
		v.SetDefault("database."+vendor+".enabled", false)
		v.SetDefault("database."+vendor+".host", "")
		v.SetDefault("database."+vendor+".port", 0)
		v.SetDefault("database."+vendor+".database", "")
		v.SetDefault("database."+vendor+".username", "")
		v.SetDefault("database."+vendor+".password", "")
	}

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.reset_token_schedule", "@every 15m")
	v.SetDefault("maintenance.audit_schedule", "@daily")
	v.SetDefault("maintenance.audit_retention_days", 90)

	v.SetDefault("auth.jwt.secret", "")
	v.SetDefault("auth.jwt.issuer", "accounts")
	v.SetDefault("auth.jwt.access_token_ttl", "1h")
	v.SetDefault("auth.password.algorithm", "bcrypt")
	v.SetDefault("auth.password.bcrypt_cost", 12)
	v.SetDefault("auth.password.argon2.time", 2)
	v.SetDefault("auth.password.argon2.memory", 64*1024)
	v.SetDefault("auth.password.argon2.threads", 4)
	v.SetDefault("auth.password.argon2.key_length", 32)
	v.SetDefault("auth.tokens.size_bytes", 32)
	v.SetDefault("auth.tokens.reset_ttl", "1h")
	v.SetDefault("auth.public_url", "")
	v.SetDefault("auth.links.verify_url", "")
	v.SetDefault("auth.links.reset_url", "")
	v.SetDefault("auth.admin_roles", []string{"admin", "seller"})

	v.SetDefault("email.product_name", "Accounts")
	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.smtp.from", "")
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("oauth.linkedin.enabled", false)
	v.SetDefault("oauth.linkedin.client_id", "")
	v.SetDefault("oauth.linkedin.client_secret", "")
	v.SetDefault("oauth.linkedin.redirect_url", "")
	v.SetDefault("oauth.linkedin.frontend_url", "")
	v.SetDefault("oauth.linkedin.scopes", []string{"openid", "profile", "email"})
	v.SetDefault("oauth.linkedin.auth_url", "https://www.linkedin.com/oauth/v2/authorization")
	v.SetDefault("oauth.linkedin.token_url", "https://www.linkedin.com/oauth/v2/accessToken")
	v.SetDefault("oauth.linkedin.userinfo_url", "https://api.linkedin.com/v2/userinfo")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
