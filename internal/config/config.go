package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Providers  ProvidersConfig  `yaml:"providers" mapstructure:"providers"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" mapstructure:"rate_limit"`
	MailTester MailTesterConfig `yaml:"mailtester" mapstructure:"mailtester"`
	Instantly  InstantlyConfig  `yaml:"instantly" mapstructure:"instantly"`
	Outreach   OutreachConfig   `yaml:"outreach" mapstructure:"outreach"`
	Jobs       JobsConfig       `yaml:"jobs" mapstructure:"jobs"`
	History    HistoryConfig    `yaml:"history" mapstructure:"history"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ProvidersConfig selects and configures the data source adapters.
type ProvidersConfig struct {
	Enabled       []string `yaml:"enabled" mapstructure:"enabled"`
	OSMBaseURL    string   `yaml:"osm_base_url" mapstructure:"osm_base_url"`
	YPBaseURL     string   `yaml:"yp_base_url" mapstructure:"yp_base_url"`
	YPAPIKey      string   `yaml:"yp_api_key" mapstructure:"yp_api_key"`
	LocalDirURL   string   `yaml:"localdir_base_url" mapstructure:"localdir_base_url"`
	LocalDirKey   string   `yaml:"localdir_api_key" mapstructure:"localdir_api_key"`
	SearchTimeout int      `yaml:"search_timeout_secs" mapstructure:"search_timeout_secs"`
}

// RateLimitConfig throttles outbound provider requests.
type RateLimitConfig struct {
	MinDelayMillis int      `yaml:"min_delay_ms" mapstructure:"min_delay_ms"`
	MaxDelayMillis int      `yaml:"max_delay_ms" mapstructure:"max_delay_ms"`
	HourlyLimit    int      `yaml:"hourly_limit" mapstructure:"hourly_limit"`
	UserAgents     []string `yaml:"user_agents" mapstructure:"user_agents"`
}

// MailTesterConfig holds email verification service settings.
type MailTesterConfig struct {
	Key            string `yaml:"key" mapstructure:"key"`
	TokenBaseURL   string `yaml:"token_base_url" mapstructure:"token_base_url"`
	VerifyBaseURL  string `yaml:"verify_base_url" mapstructure:"verify_base_url"`
	MaxConcurrency int    `yaml:"max_concurrency" mapstructure:"max_concurrency"`
}

// InstantlyConfig holds campaign platform settings.
type InstantlyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OutreachConfig configures draft email generation.
type OutreachConfig struct {
	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model        string `yaml:"model" mapstructure:"model"`
	MaxTokens    int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JobsConfig configures the in-memory job table and worker pool.
type JobsConfig struct {
	Workers        int `yaml:"workers" mapstructure:"workers"`
	RetentionHours int `yaml:"retention_hours" mapstructure:"retention_hours"`
	QueueSize      int `yaml:"queue_size" mapstructure:"queue_size"`
}

// HistoryConfig configures the search history store.
type HistoryConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ExportConfig configures result file export.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("providers.enabled", []string{"openstreetmap", "yellowpages"})
	v.SetDefault("providers.osm_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("providers.yp_base_url", "https://api.yellowpages.com")
	v.SetDefault("providers.localdir_base_url", "https://api.localdirectory.dev")
	v.SetDefault("providers.search_timeout_secs", 30)
	v.SetDefault("rate_limit.min_delay_ms", 1000)
	v.SetDefault("rate_limit.max_delay_ms", 3000)
	v.SetDefault("rate_limit.hourly_limit", 1000)
	v.SetDefault("rate_limit.user_agents", defaultUserAgents)
	v.SetDefault("mailtester.token_base_url", "https://token.mailtester.ninja")
	v.SetDefault("mailtester.verify_base_url", "https://happy.mailtester.ninja")
	v.SetDefault("mailtester.max_concurrency", 4)
	v.SetDefault("instantly.base_url", "https://api.instantly.ai/api/v2")
	v.SetDefault("outreach.model", "claude-haiku-4-5-20251001")
	v.SetDefault("outreach.max_tokens", 400)
	v.SetDefault("jobs.workers", 2)
	v.SetDefault("jobs.retention_hours", 24)
	v.SetDefault("jobs.queue_size", 64)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.path", "leadgen_history.db")
	v.SetDefault("export.dir", "exports")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// defaultUserAgents is the client identity rotation pool used when none is
// configured.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:121.0) Gecko/20100101 Firefox/121.0",
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
