// Package config loads application configuration from config.yaml and
// REPORTX_* environment variables, and initializes the global logger.
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
	Store   StoreConfig    `yaml:"store" mapstructure:"store"`
	Server  ServerConfig   `yaml:"server" mapstructure:"server"`
	Log     LogConfig      `yaml:"log" mapstructure:"log"`
	Extract ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Oracles []OracleConfig `yaml:"oracles" mapstructure:"oracles"`
}

// StoreConfig configures the report job database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`             // "sqlite" or "postgres"
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"` // postgres DSN
	Path        string `yaml:"path" mapstructure:"path"`                 // sqlite file
}

// ServerConfig configures the HTTP job API.
type ServerConfig struct {
	Port    int `yaml:"port" mapstructure:"port"`
	Workers int `yaml:"workers" mapstructure:"workers"` // concurrent report jobs
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // "json" or "console"
}

// ExtractConfig configures the extraction pipeline.
type ExtractConfig struct {
	WindowSize         int      `yaml:"window_size" mapstructure:"window_size"`
	Overlap            int      `yaml:"overlap" mapstructure:"overlap"`
	Concurrency        int      `yaml:"concurrency" mapstructure:"concurrency"`
	EnableVerification bool     `yaml:"enable_verification" mapstructure:"enable_verification"`
	MaxPromptChars     int      `yaml:"max_prompt_chars" mapstructure:"max_prompt_chars"`
	MaxOutputTokens    int      `yaml:"max_output_tokens" mapstructure:"max_output_tokens"`
	Temperature        float64  `yaml:"temperature" mapstructure:"temperature"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs" mapstructure:"request_timeout_secs"`
	Entities           []string `yaml:"entities" mapstructure:"entities"`
	Metrics            []string `yaml:"metrics" mapstructure:"metrics"`
	AliasFile          string   `yaml:"alias_file" mapstructure:"alias_file"`
	Verifier           string   `yaml:"verifier" mapstructure:"verifier"` // oracle id, default first
}

// RequestTimeout returns the per-call oracle timeout.
func (c ExtractConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// OracleConfig configures one extraction oracle.
type OracleConfig struct {
	ID           string   `yaml:"id" mapstructure:"id"`
	Type         string   `yaml:"type" mapstructure:"type"` // "chat", "anthropic", "mock"
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string   `yaml:"api_key" mapstructure:"api_key"`
	Model        string   `yaml:"model" mapstructure:"model"`
	RateLimitRPS float64  `yaml:"rate_limit_rps" mapstructure:"rate_limit_rps"`
	Responses    []string `yaml:"responses" mapstructure:"responses"` // mock only
}

// Load reads configuration from config.yaml (optional) and the environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("REPORTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "reports.db")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.workers", 2)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("extract.window_size", 8)
	v.SetDefault("extract.overlap", 2)
	v.SetDefault("extract.concurrency", 6)
	v.SetDefault("extract.enable_verification", true)
	v.SetDefault("extract.max_prompt_chars", 3500)
	v.SetDefault("extract.max_output_tokens", 1024)
	v.SetDefault("extract.temperature", 0.0)
	v.SetDefault("extract.request_timeout_secs", 30)

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

// InitLogger builds a zap logger from config and installs it globally.
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
