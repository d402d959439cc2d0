package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/inkdrop/inkdrop/internal/auth"
	"github.com/joho/godotenv"
)

const (
	defaultAccessSecret  = "dev-access-secret"
	defaultRefreshSecret = "dev-refresh-secret"
)

type Config struct {
	Port string

	// DatabaseURL takes precedence over the discrete DB_* settings when set.
	DatabaseURL string

	DBHost    string
	DBPort    string
	DBName    string
	DBUser    string
	DBPass    string
	DBSSLMode string

	// DBMaxOpenConns is the maximum number of open connections to the database (default 25).
	DBMaxOpenConns int
	// DBMaxIdleConns is the maximum number of idle connections (default 5).
	DBMaxIdleConns int

	// MigrateOnStart applies pending migrations before the server starts listening.
	MigrateOnStart bool

	JWTAccessSecret  string
	JWTRefreshSecret string

	// JWTAccessExpiry and JWTRefreshExpiry use the <integer><unit> form, unit one of d, h, m, s.
	JWTAccessExpiry  string
	JWTRefreshExpiry string

	// Env is "dev" (default) or "prod". When "prod", both JWT secrets must be set and not the defaults.
	Env string

	// TokenPurgeCron is the cron expression for deleting expired refresh tokens (default @hourly).
	TokenPurgeCron string

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	// LogFormat is "text" (default) or "json". LogLevel is debug, info (default), warn or error.
	LogFormat string
	LogLevel  string

	// CORSAllowedOrigins is set via CORS_ALLOWED_ORIGINS (comma-separated). Empty means same-origin only.
	CORSAllowedOrigins []string

	// TrustedProxies lists the CIDRs or IPs (TRUSTED_PROXIES, comma-separated) whose
	// X-Forwarded-For header is believed when rate limiting. Empty means RemoteAddr only.
	TrustedProxies []string
}

// Load reads the configuration from the environment, after loading a .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBName:      getEnv("DB_NAME", "inkdrop"),
		DBUser:      getEnv("DB_USER", "inkdrop"),
		DBPass:      getEnv("DB_PASS", "inkdrop"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		JWTAccessSecret:  getEnv("JWT_ACCESS_SECRET", defaultAccessSecret),
		JWTRefreshSecret: getEnv("JWT_REFRESH_SECRET", defaultRefreshSecret),
		JWTAccessExpiry:  getEnv("JWT_ACCESS_EXPIRY", "15m"),
		JWTRefreshExpiry: getEnv("JWT_REFRESH_EXPIRY", "7d"),

		Env:            getEnv("ENV", "dev"),
		TokenPurgeCron: getEnv("TOKEN_PURGE_CRON", "@hourly"),

		TLSCertFile: getEnv("TLS_CERT_FILE", ""),
		TLSKeyFile:  getEnv("TLS_KEY_FILE", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),

		CORSAllowedOrigins: parseList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		TrustedProxies:     parseList(getEnv("TRUSTED_PROXIES", "")),
	}
}

// Validate reports configuration that must stop the server from starting.
func (c Config) Validate() error {
	if c.Env == "prod" {
		if c.JWTAccessSecret == "" || c.JWTAccessSecret == defaultAccessSecret {
			return errors.New("JWT_ACCESS_SECRET must be set in prod")
		}
		if c.JWTRefreshSecret == "" || c.JWTRefreshSecret == defaultRefreshSecret {
			return errors.New("JWT_REFRESH_SECRET must be set in prod")
		}
	}
	if c.JWTAccessSecret == c.JWTRefreshSecret {
		return errors.New("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if _, err := auth.ParseExpiry(c.JWTAccessExpiry); err != nil {
		return fmt.Errorf("JWT_ACCESS_EXPIRY: %w", err)
	}
	if _, err := auth.ParseExpiry(c.JWTRefreshExpiry); err != nil {
		return fmt.Errorf("JWT_REFRESH_EXPIRY: %w", err)
	}
	return nil
}

// DSN returns DatabaseURL when set, otherwise a postgres URL built from the DB_* settings.
// golang-migrate needs the URL form, so the key/value form is never produced.
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPass),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// parseList splits a comma-separated list and trims spaces. Empty strings are omitted.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if o := strings.TrimSpace(p); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
