package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtester/internal/types"
)

var ts = time.Date(2024, 2, 1, 21, 0, 0, 0, time.UTC)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFileSinkWritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(FileConfig{Dir: dir})
	require.NoError(t, err)

	s.OnTradeContext(types.TradeContext{
		Time: ts, Symbol: "SPY", StateLabel: "UP/LOW", Reason: "golden_cross",
		Indicators: map[string]float64{"sma_fast": 101.5},
	})
	s.OnRegimeBar(types.RegimeBar{
		Time: ts, Regime: types.Regime{Trend: "UP", Vol: "LOW", CellID: 0},
		BenchmarkClose: decimal.RequireFromString("480.25"), PortfolioValue: decimal.NewFromInt(100000),
	})
	require.NoError(t, s.Close())

	trades := readLines(t, filepath.Join(dir, tradesFile))
	require.Len(t, trades, 1)
	assert.Equal(t, "trade_context", trades[0]["event"])
	assert.Equal(t, "SPY", trades[0]["symbol"])
	assert.Equal(t, "golden_cross", trades[0]["reason"])
	assert.Equal(t, "2024-02-01T21:00:00Z", trades[0]["time"])
	assert.NotContains(t, trades[0], "level")

	regimes := readLines(t, filepath.Join(dir, regimesFile))
	require.Len(t, regimes, 1)
	assert.Equal(t, "480.25", regimes[0]["benchmark_close"])
	assert.Equal(t, float64(0), regimes[0]["cell_id"])
}

func TestFileSinkCompressesOnClose(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileSink(FileConfig{Dir: dir, Compress: true})
	require.NoError(t, err)
	s.OnTradeContext(types.TradeContext{Time: ts, Symbol: "SPY"})
	require.NoError(t, s.Close())

	_, err = os.Stat(filepath.Join(dir, tradesFile))
	assert.True(t, os.IsNotExist(err))

	f, err := os.Open(filepath.Join(dir, tradesFile+".gz"))
	require.NoError(t, err)
	defer f.Close()
	gr, err := gzip.NewReader(f)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.NewDecoder(gr).Decode(&m))
	assert.Equal(t, "SPY", m["symbol"])
}

func TestMemorySink(t *testing.T) {
	var m Memory
	m.OnTradeContext(types.TradeContext{Symbol: "A"})
	m.OnRegimeBar(types.RegimeBar{Time: ts})
	assert.Len(t, m.TradeContexts(), 1)
	assert.Len(t, m.RegimeBars(), 1)

	Nop{}.OnTradeContext(types.TradeContext{})
}
