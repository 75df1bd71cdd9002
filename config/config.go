package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"ammclob/internal/derive"
	"ammclob/internal/market"
	"ammclob/internal/present"

	"github.com/spf13/viper"
)

type Config struct {
	XRPL     XRPLConfig     `mapstructure:"xrpl"`
	Chart    ChartConfig    `mapstructure:"chart"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type XRPLConfig struct {
	MarketData MarketDataConfig `mapstructure:"market_data"`
	Pools      PoolsConfig      `mapstructure:"pools"`
}

type MarketDataConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	Burst     int           `mapstructure:"burst"`
}

type PoolsConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ChartConfig struct {
	Interval          string `mapstructure:"interval"`           // bucket interval selected with the first pool
	Limit             int    `mapstructure:"limit"`              // buckets per series
	Descending        bool   `mapstructure:"descending"`         // wire order; always normalized to ascending
	UndefinedPolicy   string `mapstructure:"undefined_policy"`   // "omit" or "flag"
	DefaultSource     string `mapstructure:"default_source"`     // AMM, CLOB or BLENDED
	DefaultComparison string `mapstructure:"default_comparison"` // RAW_PAIR or DEVIATION
	AutoSelect        bool   `mapstructure:"auto_select"`        // select pool 0 after the first directory load
}

type ScheduleConfig struct {
	PoolRefresh  string `mapstructure:"pool_refresh"`  // cron spec, empty disables
	ChartRefresh string `mapstructure:"chart_refresh"` // cron spec, empty disables
}

type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LogConfig defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// EnvPrefix namespaces environment overrides, e.g. AMMCLOB_CHART_INTERVAL.
const EnvPrefix = "AMMCLOB"

// Load loads application configuration using Viper.
// It reads the YAML file at path (optional) and overrides with environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Support environment variables with dot notation (e.g., AMMCLOB_SERVER_ADDRESS)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("xrpl.market_data.base_url", "https://data.xrplf.org")
	v.SetDefault("xrpl.market_data.timeout", 15*time.Second)
	v.SetDefault("xrpl.market_data.rate_limit", 5.0)
	v.SetDefault("xrpl.market_data.burst", 3)
	v.SetDefault("xrpl.pools.url", "https://api.xrpscan.com/api/v1/amm/pools")
	v.SetDefault("xrpl.pools.timeout", 30*time.Second)

	v.SetDefault("chart.interval", "8h")
	v.SetDefault("chart.limit", 321)
	v.SetDefault("chart.descending", true)
	v.SetDefault("chart.undefined_policy", "omit")
	v.SetDefault("chart.default_source", "BLENDED")
	v.SetDefault("chart.default_comparison", "RAW_PAIR")
	v.SetDefault("chart.auto_select", true)

	v.SetDefault("schedule.pool_refresh", "@midnight")
	v.SetDefault("schedule.chart_refresh", "")

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.shutdown_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.environment", "prod")
	v.SetDefault("log.output_file", "")
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if c.XRPL.MarketData.BaseURL == "" {
		errs = append(errs, errors.New("xrpl.market_data.base_url is required"))
	}
	if c.XRPL.Pools.URL == "" {
		errs = append(errs, errors.New("xrpl.pools.url is required"))
	}
	if c.XRPL.MarketData.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("xrpl.market_data.rate_limit must be >= 0, got %v", c.XRPL.MarketData.RateLimit))
	}
	if _, err := market.ParseInterval(c.Chart.Interval); err != nil {
		errs = append(errs, fmt.Errorf("chart.interval: %w", err))
	}
	if c.Chart.Limit <= 0 {
		errs = append(errs, fmt.Errorf("chart.limit must be positive, got %d", c.Chart.Limit))
	}
	if _, err := present.ParseUndefinedPolicy(c.Chart.UndefinedPolicy); err != nil {
		errs = append(errs, fmt.Errorf("chart.undefined_policy: %w", err))
	}
	if _, err := c.Chart.View(); err != nil {
		errs = append(errs, err)
	}
	if c.Server.Address == "" {
		errs = append(errs, errors.New("server.address is required"))
	}

	return errors.Join(errs...)
}

// View returns the initial display selection.
func (c ChartConfig) View() (derive.View, error) {
	src, err := market.ParseSource(strings.ToUpper(c.DefaultSource))
	if err != nil {
		return derive.View{}, fmt.Errorf("chart.default_source: %w", err)
	}
	cmp, err := derive.ParseComparison(strings.ToUpper(c.DefaultComparison))
	if err != nil {
		return derive.View{}, fmt.Errorf("chart.default_comparison: %w", err)
	}
	return derive.View{Source: src, Comparison: cmp}, nil
}
