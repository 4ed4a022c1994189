package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/quantfold/backtest/internal/core"
	"github.com/spf13/viper"
)

// Config is the top-level engine configuration
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Data      DataConfig      `mapstructure:"data"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// EngineConfig holds trade simulation defaults. Per-run values in a
// BacktestConfig take precedence over these.
type EngineConfig struct {
	InitialCash        float64 `mapstructure:"initial_cash"`
	CommissionRate     float64 `mapstructure:"commission_rate"`
	SlippageRate       float64 `mapstructure:"slippage_rate"`
	MaxPositionSize    float64 `mapstructure:"max_position_size"`
	RebalanceFrequency string  `mapstructure:"rebalance_frequency"`
}

// DataConfig holds data acquisition and cleaning settings
type DataConfig struct {
	Dir             string        `mapstructure:"dir"` // CSV data directory for the CLI provider
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	MinDataPoints   int           `mapstructure:"min_data_points"`
	RequiredColumns []string      `mapstructure:"required_columns"`
}

// AnalyticsConfig holds performance statistic parameters
type AnalyticsConfig struct {
	PeriodsPerYear int     `mapstructure:"periods_per_year"`
	RiskFreeRate   float64 `mapstructure:"risk_free_rate"`
	VaRConfidence  float64 `mapstructure:"var_confidence"`
}

// RunnerConfig holds background execution pool settings
type RunnerConfig struct {
	Workers   int `mapstructure:"workers"`
	QueueSize int `mapstructure:"queue_size"`
	MaxRuns   int `mapstructure:"max_runs"` // in-memory store capacity
}

// ArchiveConfig holds result archive settings
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // for localfs
	S3      S3Config `mapstructure:"s3"`
}

// S3Config holds S3 archive settings
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Engine: EngineConfig{
			InitialCash:     100000,
			CommissionRate:  0.001,
			SlippageRate:    0.0005,
			MaxPositionSize: 0.25,
		},
		Data: DataConfig{
			FetchTimeout:    30 * time.Second,
			MinDataPoints:   20,
			RequiredColumns: []string{"open", "high", "low", "close", "volume"},
		},
		Analytics: AnalyticsConfig{
			PeriodsPerYear: 252,
			RiskFreeRate:   0.02,
			VaRConfidence:  0.95,
		},
		Runner: RunnerConfig{
			Workers:   4,
			QueueSize: 64,
			MaxRuns:   1000,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "./archive",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Engine.InitialCash <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.initial_cash must be positive, got %f", c.Engine.InitialCash))
	}
	if c.Engine.CommissionRate < 0 || c.Engine.CommissionRate > 0.1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.commission_rate must be in [0, 0.1], got %f", c.Engine.CommissionRate))
	}
	if c.Engine.SlippageRate < 0 || c.Engine.SlippageRate > 0.05 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.slippage_rate must be in [0, 0.05], got %f", c.Engine.SlippageRate))
	}
	if c.Engine.MaxPositionSize <= 0 || c.Engine.MaxPositionSize > 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("engine.max_position_size must be in (0, 1], got %f", c.Engine.MaxPositionSize))
	}
	if c.Data.FetchTimeout <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.fetch_timeout must be positive, got %s", c.Data.FetchTimeout))
	}
	if c.Data.MinDataPoints < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data.min_data_points must be at least 1, got %d", c.Data.MinDataPoints))
	}
	if c.Analytics.PeriodsPerYear <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("analytics.periods_per_year must be positive, got %d", c.Analytics.PeriodsPerYear))
	}
	if c.Analytics.VaRConfidence <= 0 || c.Analytics.VaRConfidence >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("analytics.var_confidence must be in (0, 1), got %f", c.Analytics.VaRConfidence))
	}
	if c.Runner.Workers < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("runner.workers must be at least 1, got %d", c.Runner.Workers))
	}
	if c.Runner.QueueSize < 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("runner.queue_size must be at least 1, got %d", c.Runner.QueueSize))
	}
	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.path is required for localfs archive"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigMissing,
					fmt.Errorf("archive.s3.bucket is required for s3 archive"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive.type must be localfs or s3, got %q", c.Archive.Type))
		}
	}
	return nil
}
