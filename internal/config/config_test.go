package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "circulars.db", cfg.Store.SQLitePath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 60, cfg.Pipeline.AttemptTimeoutSecs)
	assert.Equal(t, 60000, cfg.Pipeline.MaxHTMLChars)
	assert.True(t, cfg.Pipeline.Vision)
	assert.Equal(t, 1992, cfg.Rules.MinYear)
	assert.Equal(t, 3, cfg.Rules.FutureBufferDays)
	assert.Equal(t, 3650, cfg.Rules.StaleAfterDays)
	assert.Equal(t, 0, cfg.Rules.WeeksBack)
	assert.Equal(t, DefaultValidateConfig().ExcludedKeywords, cfg.Rules.ExcludedKeywords)
	assert.NotContains(t, cfg.Rules.ExcludedKeywords, "mutual fund")
	assert.Contains(t, cfg.Rules.RegulatoryKeywords, "circular")
	assert.Equal(t, "SEBI", cfg.Rules.Remap.Parent)
	require.Len(t, cfg.Rules.Remap.Rules, 1)
	assert.Equal(t, "AIF", cfg.Rules.Remap.Rules[0].Category)
	assert.Contains(t, cfg.Rules.Remap.Rules[0].Keywords, "Portfolio Managers")
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "downloads", cfg.Download.Dir)
	assert.False(t, cfg.Download.Enabled)
	assert.Equal(t, "circulars.records", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/circulars
log:
  level: debug
  format: console
pipeline:
  max_retries: 5
validate:
  weeks_back: 2
  remap:
    parent: NSE
    rules:
      - category: SME
        keywords: ["SME platform", "Emerge"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 2, cfg.Rules.WeeksBack)
	assert.Equal(t, "NSE", cfg.Rules.Remap.Parent)
	require.Len(t, cfg.Rules.Remap.Rules, 1)
	assert.Equal(t, []string{"SME platform", "Emerge"}, cfg.Rules.Remap.Rules[0].Keywords)
	// Defaults still apply for unset values
	assert.Equal(t, 60, cfg.Pipeline.AttemptTimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CIRCULARS_STORE_DRIVER", "postgres")
	t.Setenv("CIRCULARS_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CIRCULARS_VALIDATE_WEEKS_BACK=4\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("CIRCULARS_VALIDATE_WEEKS_BACK") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Rules.WeeksBack)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with run defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Pipeline.MaxRetries = 3
	cfg.Pipeline.AttemptTimeoutSecs = 60
	cfg.Pipeline.MaxHTMLChars = 60000
	cfg.Rules.MinYear = 1992
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateRun_Defaults(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("run"))
}

func TestValidateRun_CollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.Pipeline.MaxRetries = -1
	cfg.Pipeline.AttemptTimeoutSecs = 0
	cfg.Rules.WeeksBack = -2
	cfg.Rules.MinYear = 1800

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.max_retries must be >= 0")
	assert.Contains(t, err.Error(), "pipeline.attempt_timeout_secs must be > 0")
	assert.Contains(t, err.Error(), "validate.weeks_back must be >= 0")
	assert.Contains(t, err.Error(), "validate.min_year 1800 out of range")
}

func TestValidateRun_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/circulars"
	assert.NoError(t, cfg.Validate("run"))
}

func TestValidateRun_Sinks(t *testing.T) {
	cfg := validDefaults()
	cfg.Download.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	err := cfg.Validate("run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download.dir is required")
	assert.Contains(t, err.Error(), "kafka.topic is required")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateUnknownDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mysql"
	err := cfg.Validate("serve")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store driver "mysql"`)
}
