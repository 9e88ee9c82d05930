package ledgerobs

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtester/internal/ledger"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/types"
)

func TestWrapLogsTradesAndRejections(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LogConfig{Level: "DEBUG", Format: "json", Output: &buf})
	inner := ledger.New(ledger.Params{InitialCash: decimal.NewFromInt(1000)})
	l := Wrap(inner, log, nil)

	px := decimal.NewFromInt(100)
	bar := types.Bar{Symbol: "SPY", Time: time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC), Open: px, High: px, Low: px, Close: px}

	fill, err := l.Execute(context.Background(), types.Signal{Symbol: "SPY", Direction: types.Buy, TargetFraction: decimal.RequireFromString("0.5")}, bar)
	require.NoError(t, err)
	require.NotNil(t, fill)
	assert.Equal(t, int64(5), fill.Quantity)
	assert.Contains(t, buf.String(), `"type":"TRADE"`)
	assert.Contains(t, buf.String(), fill.ID)

	buf.Reset()
	_, err = l.Execute(context.Background(), types.Signal{Symbol: "QQQ", Direction: types.Buy, TargetFraction: decimal.RequireFromString("0.1")}, bar)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNoPrice)
	assert.Contains(t, buf.String(), `"event_type":"ORDER_REJECTED"`)

	// Passthrough keeps the wrapped ledger authoritative.
	assert.Equal(t, inner.Position("SPY"), l.Position("SPY"))
	assert.True(t, inner.PortfolioValue().Equal(l.PortfolioValue()))
}
