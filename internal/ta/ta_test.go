package ta

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bar-backtester/internal/types"
)

func TestSMAAndEMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 4.0, SMA(vals, 3), 1e-12)
	assert.True(t, math.IsNaN(SMA(vals, 6)))

	// seed 2 (sma of 1,2,3), k=0.5: 4*0.5+2*0.5=3, 5*0.5+3*0.5=4
	assert.InDelta(t, 4.0, EMA(vals, 3), 1e-12)
	assert.True(t, math.IsNaN(EMA(vals, 0)))
}

func TestRSI(t *testing.T) {
	assert.Equal(t, 100.0, RSI([]float64{1, 2, 3, 4}, 3))
	// gains 2, losses 1 -> rs 2 -> 66.67
	assert.InDelta(t, 66.6667, RSI([]float64{10, 12, 11}, 2), 1e-3)
	assert.True(t, math.IsNaN(RSI([]float64{1, 2}, 2)))
}

func TestBollingerAndStdDev(t *testing.T) {
	vals := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, StdDev(vals, 8), 1e-12)
	mid, up, low := Bollinger(vals, 8, 2)
	assert.InDelta(t, 5.0, mid, 1e-12)
	assert.InDelta(t, 9.0, up, 1e-12)
	assert.InDelta(t, 1.0, low, 1e-12)
}

func TestATR(t *testing.T) {
	highs := []float64{10, 11, 12}
	lows := []float64{9, 10, 10}
	closes := []float64{9.5, 10.5, 11}
	// tr1 = max(1, 1.5, 0.5)=1.5, tr2 = max(2, 1.5, 0.5)=2
	assert.InDelta(t, 1.75, ATR(highs, lows, closes, 2), 1e-12)
	assert.True(t, math.IsNaN(ATR(highs, lows[:2], closes, 2)))
}

func TestVolatilityAndCrosses(t *testing.T) {
	flat := []float64{100, 100, 100, 100}
	assert.InDelta(t, 0.0, Volatility(flat, 3), 1e-12)
	assert.True(t, math.IsNaN(LogReturns([]float64{0, 1})[0]))

	assert.True(t, CrossedAbove(1, 2, 3, 2))
	assert.False(t, CrossedAbove(3, 2, 4, 2))
	assert.True(t, CrossedBelow(3, 2, 1, 2))
}

func TestSeries(t *testing.T) {
	bars := []types.Bar{{
		Time: time.Now(), High: decimal.RequireFromString("2.5"),
		Low: decimal.RequireFromString("1.5"), Close: decimal.RequireFromString("2"),
	}}
	h, l, c := Series(bars)
	assert.Equal(t, []float64{2.5}, h)
	assert.Equal(t, []float64{1.5}, l)
	assert.Equal(t, []float64{2}, c)
}
