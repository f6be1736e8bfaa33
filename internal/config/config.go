// Package config loads application configuration from file and
// environment, and initializes the global logger.
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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Scrape    ScrapeConfig    `yaml:"scrape" mapstructure:"scrape"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// AnthropicConfig holds Anthropic API settings for the translator.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// QueryConfig configures the natural-language query pipeline.
type QueryConfig struct {
	TranslateTimeoutSecs int    `yaml:"translate_timeout_secs" mapstructure:"translate_timeout_secs"`
	ExecuteTimeoutSecs   int    `yaml:"execute_timeout_secs" mapstructure:"execute_timeout_secs"`
	DisplayCap           int    `yaml:"display_cap" mapstructure:"display_cap"`
	SchemaFile           string `yaml:"schema_file" mapstructure:"schema_file"`
}

// ScrapeConfig configures the outlet-listing scraper.
type ScrapeConfig struct {
	BaseURL       string  `yaml:"base_url" mapstructure:"base_url"`
	CityFilter    string  `yaml:"city_filter" mapstructure:"city_filter"`
	MaxPages      int     `yaml:"max_pages" mapstructure:"max_pages"`
	RatePerSecond float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
}

// GeocodeConfig configures the geocoding providers and backfill.
type GeocodeConfig struct {
	NominatimURL string `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	CountryCode  string `yaml:"country_code" mapstructure:"country_code"`
	GoogleKey    string `yaml:"google_key" mapstructure:"google_key"`
	BatchSize    int    `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency  int    `yaml:"concurrency" mapstructure:"concurrency"`
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
	v.SetEnvPrefix("OUTLETS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "outlets.db")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("server.port", 8000)
	v.SetDefault("query.translate_timeout_secs", 30)
	v.SetDefault("query.execute_timeout_secs", 10)
	v.SetDefault("query.display_cap", 10)
	v.SetDefault("scrape.base_url", "https://subway.com.my/find-a-subway")
	v.SetDefault("scrape.city_filter", "kuala lumpur")
	v.SetDefault("scrape.max_pages", 50)
	v.SetDefault("scrape.rate_per_second", 2)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.country_code", "my")
	v.SetDefault("geocode.batch_size", 50)
	v.SetDefault("geocode.concurrency", 4)
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

// Validate checks the fields a given command mode depends on, so a
// misconfigured process fails at startup instead of mid-run.
func (c *Config) Validate(mode string) error {
	var missing []string

	requireStore := func() {
		if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
			missing = append(missing, "store.driver must be sqlite or postgres")
		}
		if c.Store.DatabaseURL == "" {
			missing = append(missing, "store.database_url is required")
		}
	}

	switch mode {
	case "serve", "ask":
		requireStore()
		if c.Anthropic.Key == "" {
			missing = append(missing, "anthropic.key is required")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			missing = append(missing, "server.port must be > 0")
		}
		if c.Query.DisplayCap < 1 {
			missing = append(missing, "query.display_cap must be >= 1")
		}
	case "scrape":
		requireStore()
		if c.Scrape.BaseURL == "" {
			missing = append(missing, "scrape.base_url is required")
		}
	case "geocode":
		requireStore()
		if c.Geocode.Concurrency < 1 || c.Geocode.Concurrency > 32 {
			missing = append(missing, "geocode.concurrency must be between 1 and 32")
		}
	case "migrate", "import":
		requireStore()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.New("config: " + strings.Join(missing, "; "))
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
