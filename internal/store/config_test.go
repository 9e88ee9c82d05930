package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
run:
  data_dir: testdata/bars
  timezone: America/New_York
  trading_start: "2024-01-02"
  trading_end: "2024-06-28 16:00:00"
  benchmark: SPY
execution:
  initial_cash: 100000
  slippage: 0.001
  commission_per_share: 0.01
strategy:
  name: sma_cross
  symbols: [SPY, QQQ]
  sma_cross:
    fast: 10
    slow: 30
    target: 0.8
    atr_period: 14
    atr_multiple: 2.5
sinks:
  dir: out/demo
`

func TestParseConfigAppliesDefaults(t *testing.T) {
	c, err := ParseConfig([]byte(sample))
	require.NoError(t, err)

	assert.Equal(t, "1d", c.Run.Timeframe)
	assert.Equal(t, "1.5", c.Execution.MarginMultiplier.String())
	assert.Equal(t, "0.001", c.Execution.Slippage.String())
	assert.True(t, c.Execution.CommissionRate.IsZero())
	assert.Equal(t, "0.8", c.Strategy.SMACross.Target.String())
	assert.Equal(t, []string{"SPY", "QQQ"}, c.Strategy.Symbols)
	assert.Equal(t, 4, c.Batch.Concurrency)
	assert.Equal(t, "json", c.Logging.Format)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	assert.Equal(t, ny.String(), c.Location().String())
	assert.True(t, c.TradingStart().Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, ny)))
	assert.True(t, c.TradingEnd().Equal(time.Date(2024, 6, 28, 16, 0, 0, 0, ny)))
}

func TestParseConfigMinimal(t *testing.T) {
	c, err := ParseConfig([]byte("run:\n  data_files: [a.csv]\n"))
	require.NoError(t, err)
	assert.Equal(t, "hold", c.Strategy.Name)
	assert.Equal(t, "100000", c.Execution.InitialCash.String())
	assert.Equal(t, time.UTC, c.Location())
	assert.True(t, c.TradingStart().IsZero())
}

func TestParseConfigRejects(t *testing.T) {
	cases := map[string]string{
		"no data":       "strategy:\n  name: hold\n",
		"bad timezone":  "run:\n  data_dir: x\n  timezone: Mars/Olympus\n",
		"bad start":     "run:\n  data_dir: x\n  trading_start: yesterday\n",
		"end < start":   "run:\n  data_dir: x\n  trading_start: 2024-02-01\n  trading_end: 2024-01-01\n",
		"slippage":      "run:\n  data_dir: x\nexecution:\n  slippage: 1.2\n",
		"margin":        "run:\n  data_dir: x\nexecution:\n  margin_multiplier: 0.5\n",
		"strategy":      "run:\n  data_dir: x\nstrategy:\n  name: martingale\n",
		"sma windows":   "run:\n  data_dir: x\nstrategy:\n  name: sma_cross\n  sma_cross:\n    fast: 30\n    slow: 10\n",
		"decimal":       "run:\n  data_dir: x\nexecution:\n  initial_cash: lots\n",
		"negative cash": "run:\n  data_dir: x\nexecution:\n  initial_cash: -5\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseConfig([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_DETAILED", "true")
	c, err := ParseConfig([]byte("run:\n  data_dir: x\nlogging:\n  level: WARN\n"))
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", c.Logging.Level)
	assert.True(t, c.Logging.DetailedLogging)
}

func TestLoadConfigNamesRunAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spy_cross.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "spy_cross", c.Run.Name)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
