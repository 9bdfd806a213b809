// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// insecureJWTSecret is the development fallback; rejected in production.
const insecureJWTSecret = "queryd-dev-secret"

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	JWTSecret     string // HS256 shared secret for JWT auth
	APIKeyEnabled bool   // Enable API key auth (default: true)
	APIKeyHeader  string // Header name for API keys (default: X-API-Key)
	TokenTTL      time.Duration
}

// QueryConfig holds timings for background query execution.
type QueryConfig struct {
	MaxDuration         time.Duration // hard cap per query run (default 10m)
	FirstResultTick     time.Duration // poll interval before the handle is published
	SuperviseTick       time.Duration // poll interval for cancel intent
	RegistryGracePeriod time.Duration // how long finished jobs stay pollable
	PingTimeout         time.Duration // monitor liveness window for HTTP pollers
}

// ExportConfig holds result-export destinations.
type ExportConfig struct {
	SpoolDir    string // local directory for export files
	Destination string // optional object-store base URI (s3://, az://, abfss://, gs://)
	URLTTL      time.Duration
}

// RetentionConfig holds the retention sweep limits.
type RetentionConfig struct {
	Schedule       string // cron expression (default "@hourly")
	HistoryMaxAge  time.Duration
	HistoryMaxRows int
	ExportMaxAge   time.Duration
}

// Config holds the configuration for the HTTP API and the data engine.
type Config struct {
	// S3 / Azure / GCS presigner fields are optional — nil when not configured.
	S3KeyID        *string
	S3Secret       *string
	S3Endpoint     *string
	S3Region       *string
	AzureAccount   *string
	AzureKey       *string
	GCSKeyFilePath *string

	MetaDBPath        string // path to SQLite metadata file (saved queries, history)
	DuckDBPath        string // path to DuckDB database file ("" = in-memory)
	ListenAddr        string // HTTP listen address (default ":8080")
	TLSCertFile       string // TLS certificate file path (optional)
	TLSKeyFile        string // TLS private key file path (optional)
	AllowInsecureHTTP bool   // allow non-TLS listener in production (for trusted TLS termination)
	LogLevel          string // log level: debug, info, warn, error (default "info")
	Env               string // environment: "development" (default) or "production"

	SessionTTL time.Duration // idle session lifetime (default 30m)

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	Auth      AuthConfig
	Query     QueryConfig
	Export    ExportConfig
	Retention RetentionConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// HasS3Config returns true if all required S3 presigner fields are set.
func (c *Config) HasS3Config() bool {
	return c.S3KeyID != nil && c.S3Secret != nil && c.S3Region != nil
}

// HasAzureConfig returns true if Azure presigner credentials are set.
func (c *Config) HasAzureConfig() bool {
	return c.AzureAccount != nil && c.AzureKey != nil
}

// HasGCSConfig returns true if a GCS service account key is configured.
func (c *Config) HasGCSConfig() bool {
	return c.GCSKeyFilePath != nil
}

// LoadFromEnv loads configuration from environment variables.
// Object-store variables are optional — the app can start without them.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		MetaDBPath:  os.Getenv("META_DB_PATH"),
		DuckDBPath:  os.Getenv("DUCKDB_PATH"),
		ListenAddr:  os.Getenv("LISTEN_ADDR"),
		TLSCertFile: os.Getenv("TLS_CERT_FILE"),
		TLSKeyFile:  os.Getenv("TLS_KEY_FILE"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Env:         os.Getenv("ENV"),
	}

	cfg.SessionTTL = parseDurationEnv("SESSION_TTL", 30*time.Minute)

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}

	// Presigner credentials are optional — only set if present
	if v := os.Getenv("S3_KEY_ID"); v != "" {
		cfg.S3KeyID = &v
	}
	if v := os.Getenv("S3_SECRET"); v != "" {
		cfg.S3Secret = &v
	}
	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3Endpoint = &v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3Region = &v
	}
	if v := os.Getenv("AZURE_STORAGE_ACCOUNT"); v != "" {
		cfg.AzureAccount = &v
	}
	if v := os.Getenv("AZURE_STORAGE_KEY"); v != "" {
		cfg.AzureKey = &v
	}
	if v := os.Getenv("GCS_KEY_FILE"); v != "" {
		cfg.GCSKeyFilePath = &v
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if strings.EqualFold(os.Getenv("ALLOW_INSECURE_HTTP"), "true") {
		cfg.AllowInsecureHTTP = true
	}

	cfg.Auth = AuthConfig{
		JWTSecret:     os.Getenv("JWT_SECRET"),
		APIKeyEnabled: os.Getenv("AUTH_API_KEY_ENABLED") != "false",
		APIKeyHeader:  os.Getenv("AUTH_API_KEY_HEADER"),
		TokenTTL:      parseDurationEnv("AUTH_TOKEN_TTL", 12*time.Hour),
	}

	cfg.Query = QueryConfig{
		MaxDuration:         parseDurationEnv("QUERY_MAX_DURATION", 10*time.Minute),
		FirstResultTick:     parseDurationEnv("QUERY_FIRST_RESULT_TICK", 25*time.Millisecond),
		SuperviseTick:       parseDurationEnv("QUERY_SUPERVISE_TICK", time.Second),
		RegistryGracePeriod: parseDurationEnv("QUERY_REGISTRY_GRACE_PERIOD", 10*time.Second),
		PingTimeout:         parseDurationEnv("QUERY_PING_TIMEOUT", 20*time.Second),
	}

	cfg.Export = ExportConfig{
		SpoolDir:    os.Getenv("EXPORT_SPOOL_DIR"),
		Destination: os.Getenv("EXPORT_DESTINATION"),
		URLTTL:      parseDurationEnv("EXPORT_URL_TTL", 15*time.Minute),
	}

	cfg.Retention = RetentionConfig{
		Schedule:      os.Getenv("RETENTION_SCHEDULE"),
		HistoryMaxAge: parseDurationEnv("RETENTION_HISTORY_MAX_AGE", 30*24*time.Hour),
		ExportMaxAge:  parseDurationEnv("RETENTION_EXPORT_MAX_AGE", 24*time.Hour),
	}
	if v := os.Getenv("RETENTION_HISTORY_MAX_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.HistoryMaxRows = n
		}
	}
	if cfg.Retention.HistoryMaxRows == 0 {
		cfg.Retention.HistoryMaxRows = 1000
	}

	// Defaults
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "queryd_meta.sqlite"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, fmt.Errorf("both TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	if cfg.Export.SpoolDir == "" {
		cfg.Export.SpoolDir = "exports"
	}
	if cfg.Auth.APIKeyHeader == "" {
		cfg.Auth.APIKeyHeader = "X-API-Key"
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = insecureJWTSecret
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set — using insecure default. Set JWT_SECRET in production!")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Auth.JWTSecret == insecureJWTSecret {
			return nil, fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
		if cfg.TLSCertFile == "" && !cfg.AllowInsecureHTTP {
			return nil, fmt.Errorf("TLS_CERT_FILE/TLS_KEY_FILE must be set in production unless ALLOW_INSECURE_HTTP=true")
		}
	}

	return cfg, nil
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		value = stripQuotes(value)
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
