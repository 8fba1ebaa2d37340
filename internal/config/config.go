package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Culture CultureConfig `yaml:"culture" mapstructure:"culture"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// CultureConfig configures scoring and normalization.
type CultureConfig struct {
	// LexiconPath optionally overrides the built-in keyword lexicon with a
	// YAML file of the same shape.
	LexiconPath string `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	// MaxCacheTTLMins bounds staleness of the industry MIT maxima cache.
	MaxCacheTTLMins int `yaml:"max_cache_ttl_mins" mapstructure:"max_cache_ttl_mins"`
	// ScoreWorkers is the batch-scoring concurrency.
	ScoreWorkers int `yaml:"score_workers" mapstructure:"score_workers"`
}

// MaxCacheTTL returns the configured cache TTL as a duration.
func (c CultureConfig) MaxCacheTTL() time.Duration {
	return time.Duration(c.MaxCacheTTLMins) * time.Minute
}

// IngestConfig configures the review ingestion worker.
type IngestConfig struct {
	// RatePerMinute caps queue processing throughput.
	RatePerMinute int `yaml:"rate_per_minute" mapstructure:"rate_per_minute"`
	MaxRetries    int `yaml:"max_retries" mapstructure:"max_retries"`
	// SkipThreshold skips companies that already have at least this many
	// stored reviews.
	SkipThreshold int `yaml:"skip_threshold" mapstructure:"skip_threshold"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CULTURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "culture.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("culture.max_cache_ttl_mins", 60)
	v.SetDefault("culture.score_workers", 4)
	v.SetDefault("ingest.rate_per_minute", 10)
	v.SetDefault("ingest.max_retries", 3)
	v.SetDefault("ingest.skip_threshold", 50)

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

// Validate checks the fields a given mode depends on. Modes: "serve",
// "score", "ingest".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "score":
		if c.Culture.ScoreWorkers < 1 || c.Culture.ScoreWorkers > 64 {
			problems = append(problems, "culture.score_workers must be between 1 and 64")
		}
	case "ingest":
		if c.Ingest.RatePerMinute < 1 {
			problems = append(problems, "ingest.rate_per_minute must be >= 1")
		}
		if c.Ingest.MaxRetries < 0 {
			problems = append(problems, "ingest.max_retries must be >= 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
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
