package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"S3_KEY_ID", "S3_SECRET", "S3_ENDPOINT", "S3_REGION",
		"AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "GCS_KEY_FILE",
		"META_DB_PATH", "DUCKDB_PATH", "LISTEN_ADDR", "JWT_SECRET",
		"ENV", "CORS_ALLOWED_ORIGINS", "SESSION_TTL",
		"QUERY_MAX_DURATION", "QUERY_REGISTRY_GRACE_PERIOD",
		"EXPORT_SPOOL_DIR", "EXPORT_DESTINATION",
		"RETENTION_SCHEDULE", "RETENTION_HISTORY_MAX_ROWS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Nil(t, cfg.S3KeyID)
	assert.Equal(t, "queryd_meta.sqlite", cfg.MetaDBPath)
	assert.Equal(t, "", cfg.DuckDBPath)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.Query.MaxDuration)
	assert.Equal(t, 25*time.Millisecond, cfg.Query.FirstResultTick)
	assert.Equal(t, time.Second, cfg.Query.SuperviseTick)
	assert.Equal(t, 10*time.Second, cfg.Query.RegistryGracePeriod)
	assert.Equal(t, "exports", cfg.Export.SpoolDir)
	assert.Equal(t, 1000, cfg.Retention.HistoryMaxRows)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.NotEmpty(t, cfg.Warnings, "insecure JWT secret should warn")
}

func TestLoadFromEnv_QueryTimings(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUERY_MAX_DURATION", "2m")
	t.Setenv("QUERY_REGISTRY_GRACE_PERIOD", "3s")
	t.Setenv("SESSION_TTL", "5m")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, cfg.Query.MaxDuration)
	assert.Equal(t, 3*time.Second, cfg.Query.RegistryGracePeriod)
	assert.Equal(t, 5*time.Minute, cfg.SessionTTL)
}

func TestLoadFromEnv_BadDurationFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUERY_MAX_DURATION", "banana")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, cfg.Query.MaxDuration)
}

func TestLoadFromEnv_NoS3(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.HasS3Config())
	assert.False(t, cfg.HasAzureConfig())
	assert.False(t, cfg.HasGCSConfig())
}

func TestLoadFromEnv_WithS3(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_SECRET", "testsecret")
	t.Setenv("S3_ENDPOINT", "s3.example.com")
	t.Setenv("S3_REGION", "us-east-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.HasS3Config())
	require.NotNil(t, cfg.S3KeyID)
	assert.Equal(t, "testkey", *cfg.S3KeyID)
}

func TestHasS3Config_PartialConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("S3_KEY_ID", "testkey")
	t.Setenv("S3_ENDPOINT", "s3.example.com")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.False(t, cfg.HasS3Config(), "partial S3 config should return false")
}

func TestLoadFromEnv_ProductionRejectsDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("ALLOW_INSECURE_HTTP", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "real-secret")
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoadFromEnv_ProductionRejectsCORSWildcard(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("ALLOW_INSECURE_HTTP", "true")
	t.Setenv("JWT_SECRET", "real-secret")

	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.ErrorContains(t, err, "CORS")
}

func TestLoadFromEnv_TLSFilesMustPair(t *testing.T) {
	clearEnv(t)
	t.Setenv("TLS_CERT_FILE", "/tmp/cert.pem")

	_, err := LoadFromEnv()
	require.Error(t, err)
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, "DEBUG", cfg.SlogLevel().String())
	cfg.LogLevel = "warn"
	assert.Equal(t, "WARN", cfg.SlogLevel().String())
	cfg.LogLevel = ""
	assert.Equal(t, "INFO", cfg.SlogLevel().String())
}

func TestLoadDotEnv_FileNotFound(t *testing.T) {
	err := LoadDotEnv("/nonexistent/.env")
	if err != nil {
		t.Errorf("expected no error for missing .env, got: %v", err)
	}
}

func TestLoadDotEnv_ParsesKeyValue(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_KEY=test_value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_KEY"); val != "test_value" {
		t.Errorf("TEST_KEY = %q, want %q", val, "test_value")
	}
	_ = os.Unsetenv("TEST_KEY")
}

func TestLoadDotEnv_SkipsComments(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("# comment\nTEST_COMMENT_KEY=value\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_COMMENT_KEY"); val != "value" {
		t.Errorf("TEST_COMMENT_KEY = %q, want %q", val, "value")
	}
	_ = os.Unsetenv("TEST_COMMENT_KEY")
}

func TestLoadDotEnv_EnvVarPrecedence(t *testing.T) {
	t.Setenv("TEST_PRECEDENCE_KEY", "from_env")

	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")

	err := os.WriteFile(envFile, []byte("TEST_PRECEDENCE_KEY=from_file\n"), 0644)
	if err != nil {
		t.Fatalf("write .env: %v", err)
	}

	if err := LoadDotEnv(envFile); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}

	if val := os.Getenv("TEST_PRECEDENCE_KEY"); val != "from_env" {
		t.Errorf("TEST_PRECEDENCE_KEY = %q, want %q (env precedence)", val, "from_env")
	}
}
