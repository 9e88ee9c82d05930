package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"bar-backtester/internal/logger"
	"bar-backtester/internal/trace"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.DateOnly,
}

type Config struct {
	// Run times are read in Timezone unless they carry an offset.
	Run struct {
		Name         string   `yaml:"name"`
		DataDir      string   `yaml:"data_dir"`
		DataFiles    []string `yaml:"data_files"`
		Timeframe    string   `yaml:"timeframe"`
		Timezone     string   `yaml:"timezone"`
		TradingStart string   `yaml:"trading_start"`
		TradingEnd   string   `yaml:"trading_end"`
		Benchmark    string   `yaml:"benchmark"`
	} `yaml:"run"`
	Execution struct {
		InitialCash        Decimal `yaml:"initial_cash"`
		Slippage           Decimal `yaml:"slippage"`
		CommissionPerShare Decimal `yaml:"commission_per_share"`
		CommissionRate     Decimal `yaml:"commission_rate"`
		CommissionMin      Decimal `yaml:"commission_min"`
		MarginMultiplier   Decimal `yaml:"margin_multiplier"`
	} `yaml:"execution"`
	Strategy struct {
		Name        string   `yaml:"name"`
		Symbols     []string `yaml:"symbols"`
		HistorySize int      `yaml:"history_size"`
		SMACross    struct {
			Fast         int     `yaml:"fast"`
			Slow         int     `yaml:"slow"`
			Target       Decimal `yaml:"target"`
			AllowShort   bool    `yaml:"allow_short"`
			ATRPeriod    int     `yaml:"atr_period"`
			ATRMultiple  float64 `yaml:"atr_multiple"`
			VolWindow    int     `yaml:"vol_window"`
			VolThreshold float64 `yaml:"vol_threshold"`
		} `yaml:"sma_cross"`
	} `yaml:"strategy"`
	Logging logger.LogConfig `yaml:"logging"`
	Tracing trace.Config     `yaml:"tracing"`
	Sinks   struct {
		Dir      string `yaml:"dir"`
		Compress bool   `yaml:"compress"`
		Report   bool   `yaml:"report"`
	} `yaml:"sinks"`
	Batch struct {
		Concurrency int `yaml:"concurrency"`
	} `yaml:"batch"`

	loc   *time.Location
	start time.Time
	end   time.Time
}

func (c *Config) Validate() error {
	if c.Run.DataDir == "" && len(c.Run.DataFiles) == 0 {
		return errors.New("run.data_dir or run.data_files is required")
	}
	loc, err := time.LoadLocation(c.Run.Timezone)
	if err != nil {
		return fmt.Errorf("run.timezone %q: %w", c.Run.Timezone, err)
	}
	c.loc = loc

	if c.Run.TradingStart != "" {
		if c.start, err = parseTime(c.Run.TradingStart, loc); err != nil {
			return fmt.Errorf("run.trading_start: %w", err)
		}
	}
	if c.Run.TradingEnd != "" {
		if c.end, err = parseTime(c.Run.TradingEnd, loc); err != nil {
			return fmt.Errorf("run.trading_end: %w", err)
		}
		if c.end.Before(c.start) {
			return fmt.Errorf("run.trading_end %s is before run.trading_start %s", c.Run.TradingEnd, c.Run.TradingStart)
		}
	}

	ex := c.Execution
	if !ex.InitialCash.IsPositive() {
		return fmt.Errorf("execution.initial_cash must be positive, got %s", ex.InitialCash)
	}
	if ex.Slippage.IsNegative() || ex.Slippage.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("execution.slippage must be in [0, 1), got %s", ex.Slippage)
	}
	if ex.CommissionPerShare.IsNegative() || ex.CommissionRate.IsNegative() || ex.CommissionMin.IsNegative() {
		return errors.New("execution commission settings must not be negative")
	}
	if ex.MarginMultiplier.LessThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("execution.margin_multiplier must be >= 1, got %s", ex.MarginMultiplier)
	}

	switch c.Strategy.Name {
	case "hold":
	case "sma_cross":
		sc := c.Strategy.SMACross
		if sc.Fast <= 0 || sc.Slow <= sc.Fast {
			return fmt.Errorf("strategy.sma_cross needs 0 < fast < slow, got fast=%d slow=%d", sc.Fast, sc.Slow)
		}
	default:
		return fmt.Errorf("invalid strategy.name '%s': must be 'hold' or 'sma_cross'", c.Strategy.Name)
	}
	if c.Batch.Concurrency < 0 {
		return fmt.Errorf("batch.concurrency must not be negative, got %d", c.Batch.Concurrency)
	}
	return nil
}

// Location is the exchange timezone. Valid after LoadConfig.
func (c *Config) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// TradingStart is the parsed run.trading_start, zero when unset.
func (c *Config) TradingStart() time.Time {
	return c.start
}

// TradingEnd is the parsed run.trading_end, zero when unset.
func (c *Config) TradingEnd() time.Time {
	return c.end
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(b)
	if err != nil {
		return nil, err
	}
	if c.Run.Name == "" {
		base := filepath.Base(path)
		c.Run.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return c, nil
}

// ParseConfig decodes yaml, applies defaults and environment overrides,
// then validates.
func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Run.Timezone == "" {
		c.Run.Timezone = "UTC"
	}
	if c.Run.Timeframe == "" {
		c.Run.Timeframe = "1d"
	}
	if c.Execution.InitialCash.IsZero() {
		c.Execution.InitialCash = NewDecimal("100000")
	}
	if c.Execution.MarginMultiplier.IsZero() {
		c.Execution.MarginMultiplier = NewDecimal("1.5")
	}
	if c.Strategy.Name == "" {
		c.Strategy.Name = "hold"
	}
	if c.Strategy.SMACross.Target.IsZero() {
		c.Strategy.SMACross.Target = NewDecimal("1")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "INFO"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Batch.Concurrency == 0 {
		c.Batch.Concurrency = 4
	}
	applyEnv(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

// applyEnv lets LOG_LEVEL, LOG_FORMAT and LOG_DETAILED override the file.
func applyEnv(c *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("LOG_DETAILED"); v != "" {
		c.Logging.DetailedLogging = v == "true"
	}
}

func parseTime(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339 {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
