// Package ta holds float64 indicator helpers. Every function looks at the
// tail of its input and returns NaN when there is not enough history.
package ta

import (
	"math"

	"bar-backtester/internal/types"
)

// Series splits bars into float64 high, low and close slices.
func Series(bars []types.Bar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
		closes[i] = b.Close.InexactFloat64()
	}
	return highs, lows, closes
}

func SMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range vals[len(vals)-n:] {
		sum += v
	}
	return sum / float64(n)
}

// EMA seeds with the SMA of the first n values and smooths the rest.
func EMA(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	k := 2.0 / float64(n+1)
	ema := SMA(vals[:n], n)
	for _, v := range vals[n:] {
		ema = v*k + ema*(1-k)
	}
	return ema
}

// RSI over the last period changes, simple averages.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev is the population standard deviation of the last n values.
func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for _, v := range vals[len(vals)-n:] {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	return mid, mid + k*sd, mid - k*sd
}

// ATR is the simple average true range over period bars.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) || period <= 0 {
		return math.NaN()
	}
	if len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i], math.Max(
			math.Abs(highs[i]-closes[i-1]),
			math.Abs(lows[i]-closes[i-1]),
		))
		sum += tr
	}
	return sum / float64(period)
}

// LogReturns returns ln(c[i]/c[i-1]) for the series. Non-positive prices
// yield NaN entries.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			out[i-1] = math.NaN()
			continue
		}
		out[i-1] = math.Log(closes[i] / closes[i-1])
	}
	return out
}

// Volatility is the standard deviation of the last n log returns.
func Volatility(closes []float64, n int) float64 {
	return StdDev(LogReturns(closes), n)
}

// CrossedAbove reports whether fast moved from <= slow to > slow.
func CrossedAbove(prevFast, prevSlow, fast, slow float64) bool {
	return prevFast <= prevSlow && fast > slow
}

// CrossedBelow reports whether fast moved from >= slow to < slow.
func CrossedBelow(prevFast, prevSlow, fast, slow float64) bool {
	return prevFast >= prevSlow && fast < slow
}
