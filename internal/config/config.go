// Package config loads application configuration and initializes logging.
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
	Grid     GridConfig     `yaml:"grid" mapstructure:"grid"`
	Sheets   SheetsConfig   `yaml:"sheets" mapstructure:"sheets"`
	Ledger   LedgerConfig   `yaml:"ledger" mapstructure:"ledger"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// GridConfig holds GRID API credentials and tuning.
type GridConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	TitleID   string  `yaml:"title_id" mapstructure:"title_id"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SheetsConfig identifies the sink spreadsheet and credentials source.
type SheetsConfig struct {
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// LedgerConfig configures the processed-series ledger backend.
type LedgerConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig configures the local download cache.
type CacheConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// PipelineConfig tunes discovery and extraction behavior.
type PipelineConfig struct {
	LookbackDays int    `yaml:"lookback_days" mapstructure:"lookback_days"`
	DraftGame    string `yaml:"draft_game" mapstructure:"draft_game"`
	MaxAttempts  int    `yaml:"max_attempts" mapstructure:"max_attempts"`
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
	v.SetEnvPrefix("SCRIMSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secret-ish keys get empty defaults so the env binding is
	// registered for Unmarshal.
	v.SetDefault("grid.api_key", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("grid.base_url", "https://api.grid.gg")
	v.SetDefault("grid.title_id", "3")
	v.SetDefault("grid.rate_limit", 2.0)
	v.SetDefault("sheets.sheet_name", "Draft Data")
	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.dsn", "scrimsync.db")
	v.SetDefault("cache.dir", "./scrim_downloads")
	v.SetDefault("pipeline.lookback_days", 60)
	v.SetDefault("pipeline.draft_game", "first")
	v.SetDefault("pipeline.max_attempts", 3)
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
