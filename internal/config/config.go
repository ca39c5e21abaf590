package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl" mapstructure:"firecrawl"`
	Fetcher   FetcherConfig   `yaml:"fetcher" mapstructure:"fetcher"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Rules     ValidateConfig  `yaml:"validate" mapstructure:"validate"`
	Download  DownloadConfig  `yaml:"download" mapstructure:"download"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	S3        S3Config        `yaml:"s3" mapstructure:"s3"`
	Kafka     KafkaConfig     `yaml:"kafka" mapstructure:"kafka"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	Model       string `yaml:"model" mapstructure:"model"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
	CacheTTL    string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// JinaConfig holds Jina AI Reader settings.
type JinaConfig struct {
	Key             string `yaml:"key" mapstructure:"key"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	WaitForSelector string `yaml:"wait_for_selector" mapstructure:"wait_for_selector"`
}

// FirecrawlConfig holds Firecrawl API settings.
type FirecrawlConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	WaitForMs int    `yaml:"wait_for_ms" mapstructure:"wait_for_ms"`
}

// FetcherConfig configures the rate-limited HTTP fetcher.
type FetcherConfig struct {
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PipelineConfig configures the extraction orchestrator.
type PipelineConfig struct {
	MaxRetries         int  `yaml:"max_retries" mapstructure:"max_retries"`
	AttemptTimeoutSecs int  `yaml:"attempt_timeout_secs" mapstructure:"attempt_timeout_secs"`
	MaxHTMLChars       int  `yaml:"max_html_chars" mapstructure:"max_html_chars"`
	Vision             bool `yaml:"vision" mapstructure:"vision"`
}

// AttemptTimeout returns the per-attempt timeout as a duration.
func (p PipelineConfig) AttemptTimeout() time.Duration {
	return time.Duration(p.AttemptTimeoutSecs) * time.Second
}

// ValidateConfig configures the record validator.
type ValidateConfig struct {
	MinYear            int         `yaml:"min_year" mapstructure:"min_year"`
	FutureBufferDays   int         `yaml:"future_buffer_days" mapstructure:"future_buffer_days"`
	StaleAfterDays     int         `yaml:"stale_after_days" mapstructure:"stale_after_days"`
	MinTitleLetters    int         `yaml:"min_title_letters" mapstructure:"min_title_letters"`
	ExcludedKeywords   []string    `yaml:"excluded_keywords" mapstructure:"excluded_keywords"`
	RegulatoryKeywords []string    `yaml:"regulatory_keywords" mapstructure:"regulatory_keywords"`
	Remap              RemapConfig `yaml:"remap" mapstructure:"remap"`
	WeeksBack          int         `yaml:"weeks_back" mapstructure:"weeks_back"`
}

// DefaultValidateConfig returns the validator defaults for SEBI-style
// listing pages. Excluded keywords name noise outside the regulatory domain.
func DefaultValidateConfig() ValidateConfig {
	return ValidateConfig{
		MinYear:          1992,
		FutureBufferDays: 3,
		StaleAfterDays:   3650,
		MinTitleLetters:  5,
		ExcludedKeywords: []string{
			"inauguration", "contest", "quiz", "recruitment", "vacancy", "tender",
		},
		RegulatoryKeywords: []string{"sebi", "circular", "regulation", "amendment", "notification"},
		Remap: RemapConfig{
			Parent: "SEBI",
			Rules: []RemapRule{
				{Category: "AIF", Keywords: []string{"Portfolio Managers", "Alternative Investment Fund"}},
			},
		},
	}
}

// RemapConfig maps titles under a parent category to sub-verticals.
type RemapConfig struct {
	Parent string      `yaml:"parent" mapstructure:"parent"`
	Rules  []RemapRule `yaml:"rules" mapstructure:"rules"`
}

// RemapRule is one sub-vertical and its title keywords.
type RemapRule struct {
	Category string   `yaml:"category" mapstructure:"category"`
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
}

// DownloadConfig configures artifact downloads after validation.
type DownloadConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// OutputConfig configures the file sinks.
type OutputConfig struct {
	JSONDir  string `yaml:"json_dir" mapstructure:"json_dir"`
	XLSXPath string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// S3Config configures the object storage sink. Empty Bucket disables it.
type S3Config struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket"`
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	Region string `yaml:"region" mapstructure:"region"`
}

// KafkaConfig configures the record publisher. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// ServerConfig configures the read-only API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultSEBIURL is the SEBI circulars listing page.
const DefaultSEBIURL = "https://www.sebi.gov.in/sebiweb/home/HomeAction.do?doListing=yes&sid=1&ssid=7&smid=0"

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CIRCULARS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "circulars.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.vision_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("anthropic.cache_ttl", "5m")
	v.SetDefault("jina.base_url", "https://r.jina.ai")
	v.SetDefault("jina.wait_for_selector", "table")
	v.SetDefault("firecrawl.wait_for_ms", 3000)
	v.SetDefault("firecrawl.base_url", "https://api.firecrawl.dev/v1")
	v.SetDefault("fetcher.user_agent", "circulars-cli/1.0")
	v.SetDefault("fetcher.timeout_secs", 30)
	v.SetDefault("fetcher.max_retries", 3)
	v.SetDefault("fetcher.rate_per_sec", 2.0)
	v.SetDefault("pipeline.max_retries", 3)
	v.SetDefault("pipeline.attempt_timeout_secs", 60)
	v.SetDefault("pipeline.max_html_chars", 60000)
	v.SetDefault("pipeline.vision", true)
	def := DefaultValidateConfig()
	v.SetDefault("validate.min_year", def.MinYear)
	v.SetDefault("validate.future_buffer_days", def.FutureBufferDays)
	v.SetDefault("validate.stale_after_days", def.StaleAfterDays)
	v.SetDefault("validate.min_title_letters", def.MinTitleLetters)
	v.SetDefault("validate.weeks_back", def.WeeksBack)
	v.SetDefault("validate.excluded_keywords", def.ExcludedKeywords)
	v.SetDefault("validate.regulatory_keywords", def.RegulatoryKeywords)
	v.SetDefault("validate.remap.parent", def.Remap.Parent)
	remapRules := make([]map[string]any, 0, len(def.Remap.Rules))
	for _, r := range def.Remap.Rules {
		remapRules = append(remapRules, map[string]any{"category": r.Category, "keywords": r.Keywords})
	}
	v.SetDefault("validate.remap.rules", remapRules)
	v.SetDefault("download.dir", "downloads")
	v.SetDefault("output.json_dir", "output")
	v.SetDefault("s3.region", "ap-south-1")
	v.SetDefault("kafka.topic", "circulars.records")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the configuration for the given mode ("run" or "serve").
// Run parameters are checked eagerly so a bad configuration fails before any
// extraction attempt.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Store.Driver {
	case "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}

	switch mode {
	case "run":
		if c.Pipeline.MaxRetries < 0 {
			errs = append(errs, "pipeline.max_retries must be >= 0")
		}
		if c.Pipeline.AttemptTimeoutSecs <= 0 {
			errs = append(errs, "pipeline.attempt_timeout_secs must be > 0")
		}
		if c.Pipeline.MaxHTMLChars <= 0 {
			errs = append(errs, "pipeline.max_html_chars must be > 0")
		}
		if c.Rules.WeeksBack < 0 {
			errs = append(errs, "validate.weeks_back must be >= 0")
		}
		if c.Rules.MinYear < 1900 || c.Rules.MinYear > time.Now().Year() {
			errs = append(errs, fmt.Sprintf("validate.min_year %d out of range", c.Rules.MinYear))
		}
		if c.Download.Enabled && c.Download.Dir == "" {
			errs = append(errs, "download.dir is required when downloads are enabled")
		}
		if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
			errs = append(errs, "kafka.topic is required when brokers are set")
		}
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
