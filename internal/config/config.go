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
	Data       DataConfig       `yaml:"data" mapstructure:"data"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Prompts    PromptsConfig    `yaml:"prompts" mapstructure:"prompts"`
	Dedupe     DedupeConfig     `yaml:"dedupe" mapstructure:"dedupe"`
	Retention  RetentionConfig  `yaml:"retention" mapstructure:"retention"`
	RunLog     RunLogConfig     `yaml:"runlog" mapstructure:"runlog"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Regions    []RegionConfig   `yaml:"regions" mapstructure:"regions"`
	Categories []string         `yaml:"categories" mapstructure:"categories"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DataConfig locates the bulletin store on disk.
type DataConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PerplexityConfig holds upstream API settings.
type PerplexityConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	Model          string  `yaml:"model" mapstructure:"model"`
	Temperature    float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RecencyFilter  string  `yaml:"recency_filter" mapstructure:"recency_filter"`
	RequestsPerMin int     `yaml:"requests_per_min" mapstructure:"requests_per_min"`
}

// PromptsConfig locates prompt template overrides.
type PromptsConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// DedupeConfig holds the duplicate-suppression tuning knobs. Both thresholds
// are empirically tuned configuration, deliberately not hard constants.
type DedupeConfig struct {
	TitleThreshold   float64 `yaml:"title_threshold" mapstructure:"title_threshold"`
	NoveltyThreshold float64 `yaml:"novelty_threshold" mapstructure:"novelty_threshold"`
}

// RetentionConfig holds the trailing retention window.
type RetentionConfig struct {
	Days int `yaml:"days" mapstructure:"days"`
}

// RunLogConfig configures the run outcome log backend.
type RunLogConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // "sqlite" or "postgres"
	Path        string `yaml:"path" mapstructure:"path"`     // sqlite file
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// MonitoringConfig configures soft-failure escalation.
type MonitoringConfig struct {
	WebhookURL          string `yaml:"webhook_url" mapstructure:"webhook_url"`
	ConsecutiveFailures int    `yaml:"consecutive_failures" mapstructure:"consecutive_failures"`
	LookbackOutcomes    int    `yaml:"lookback_outcomes" mapstructure:"lookback_outcomes"`
}

// PricingConfig holds upstream pricing rates (USD).
type PricingConfig struct {
	InputPerMTok  float64 `yaml:"input_per_mtok" mapstructure:"input_per_mtok"`
	OutputPerMTok float64 `yaml:"output_per_mtok" mapstructure:"output_per_mtok"`
	PerQuery      float64 `yaml:"per_query" mapstructure:"per_query"`
}

// RegionConfig registers an extra region beyond the built-in set.
type RegionConfig struct {
	Code     string `yaml:"code" mapstructure:"code"`
	Name     string `yaml:"name" mapstructure:"name"`
	Audience string `yaml:"audience" mapstructure:"audience"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`
}

// ServerConfig configures the read-only bulletin API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("BRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("data.dir", "data")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("perplexity.temperature", 0.25)
	v.SetDefault("perplexity.max_tokens", 900)
	v.SetDefault("perplexity.recency_filter", "day")
	v.SetDefault("perplexity.requests_per_min", 20)
	v.SetDefault("dedupe.title_threshold", 0.8)
	v.SetDefault("dedupe.novelty_threshold", 0.25)
	v.SetDefault("retention.days", 7)
	v.SetDefault("runlog.driver", "sqlite")
	v.SetDefault("runlog.path", "runlog.db")
	v.SetDefault("monitoring.consecutive_failures", 2)
	v.SetDefault("monitoring.lookback_outcomes", 5)
	v.SetDefault("pricing.input_per_mtok", 1.0)
	v.SetDefault("pricing.output_per_mtok", 1.0)
	v.SetDefault("pricing.per_query", 0.005)

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
