package database

import (
	"net/url"
	"testing"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User: "accounts",
		Name: "accounts",
	})
	require.NoError(t, err)
	require.Equal(t, "postgres://accounts@localhost:5432/accounts?TimeZone=UTC&sslmode=disable", dsn)
}

func TestBuildPostgresDSNEscapesCredentials(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "svc",
		Name:     "accounts",
		Host:     "db.example.com",
		Port:     6543,
		Password: "p@ss word/?",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)

	parsed, err := url.Parse(dsn)
	require.NoError(t, err)
	require.Equal(t, "db.example.com:6543", parsed.Host)
	require.Equal(t, "/accounts", parsed.Path)
	require.Equal(t, "svc", parsed.User.Username())
	password, ok := parsed.User.Password()
	require.True(t, ok)
	require.Equal(t, "p@ss word/?", password)
	require.Equal(t, "require", parsed.Query().Get("sslmode"))
	require.Equal(t, "public", parsed.Query().Get("search_path"))
	require.Equal(t, "UTC", parsed.Query().Get("TimeZone"))
}

func TestBuildPostgresDSNPrefersExplicitDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://override"})
	require.NoError(t, err)
	require.Equal(t, "postgres://override", dsn)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User: "accounts",
		Name: "accounts",
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "accounts@tcp(127.0.0.1:3306)/accounts?")
	require.Contains(t, dsn, "charset=utf8mb4")
	require.Contains(t, dsn, "parseTime=true")

	parsed, err := mysqlDriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.True(t, parsed.ParseTime)
	require.Equal(t, time.UTC, parsed.Loc)
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "s3cr:et@",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options: map[string]string{
			"tls": "skip-verify",
		},
	})
	require.NoError(t, err)

	parsed, err := mysqlDriver.ParseDSN(dsn)
	require.NoError(t, err)
	require.Equal(t, "user", parsed.User)
	require.Equal(t, "s3cr:et@", parsed.Passwd)
	require.Equal(t, "db.example.com:3307", parsed.Addr)
	require.Equal(t, "db", parsed.DBName)
	require.Equal(t, "skip-verify", parsed.TLSConfig)
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}
