package strategy

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/ta"
	"bar-backtester/internal/types"
)

const (
	TrendUp   = "UP"
	TrendDown = "DOWN"
	VolHigh   = "HIGH"
	VolLow    = "LOW"

	rsiPeriod      = 14
	bollingerWidth = 2.0
)

// SMACrossParams tunes SMACross.
type SMACrossParams struct {
	Fast int
	Slow int
	// Target is the exposure fraction opened on a cross.
	Target decimal.Decimal
	// AllowShort opens a short on a death cross instead of only closing.
	AllowShort bool
	// ATRPeriod and ATRMultiple switch sizing to risk per unit
	// (ATR * multiple) when both are set.
	ATRPeriod   int
	ATRMultiple float64
	// VolWindow and VolThreshold classify the volatility regime from the
	// stddev of log returns.
	VolWindow    int
	VolThreshold float64
}

// SMACross goes long when the fast SMA crosses above the slow one and
// exits (or flips to short, via a close first) on the opposite cross.
//
// Indicators and regimes are kept per symbol. The reported regime is the
// one of the primary symbol: Config.Benchmark, else the first configured
// symbol, else the first symbol seen.
type SMACross struct {
	Base
	p SMACrossParams

	primary    string
	indicators map[string]map[string]float64
	regimes    map[string]types.Regime
}

var (
	_ interfaces.Strategy          = (*SMACross)(nil)
	_ interfaces.IndicatorReporter = (*SMACross)(nil)
	_ interfaces.RegimeReporter    = (*SMACross)(nil)
)

func NewSMACross(cfg Config, p SMACrossParams) (*SMACross, error) {
	if p.Fast <= 0 || p.Slow <= 0 || p.Fast >= p.Slow {
		return nil, fmt.Errorf("sma_cross: need 0 < fast < slow, got fast=%d slow=%d", p.Fast, p.Slow)
	}
	if !p.Target.IsPositive() || p.Target.GreaterThan(decimal.NewFromInt(1)) {
		return nil, errors.New("sma_cross: target must be in (0, 1]")
	}
	if p.VolWindow <= 0 {
		p.VolWindow = 20
	}
	if p.VolThreshold <= 0 {
		p.VolThreshold = 0.02
	}
	if cfg.HistorySize < p.Slow+1 || cfg.HistorySize < p.ATRPeriod+1 || cfg.HistorySize < p.VolWindow+1 {
		cfg.HistorySize = max(p.Slow, p.ATRPeriod, p.VolWindow) * 2
	}
	s := &SMACross{
		Base:       NewBase(cfg),
		p:          p,
		primary:    cfg.Benchmark,
		indicators: make(map[string]map[string]float64),
		regimes:    make(map[string]types.Regime),
	}
	if s.primary == "" && len(cfg.Symbols) > 0 {
		s.primary = cfg.Symbols[0]
	}
	return s, nil
}

func (s *SMACross) Name() string {
	return fmt.Sprintf("sma_cross_%d_%d", s.p.Fast, s.p.Slow)
}

// RequiredWarmupBars is the history needed to detect a cross.
func (s *SMACross) RequiredWarmupBars() int {
	return max(s.p.Slow+1, s.p.ATRPeriod+1)
}

func (s *SMACross) OnBar(_ context.Context, bar types.Bar) error {
	if !s.Tracks(bar.Symbol) {
		return nil
	}
	history := s.History(bar.Symbol)
	if len(history) < s.p.Slow+1 {
		return nil
	}
	highs, lows, closes := ta.Series(history)

	fast := ta.SMA(closes, s.p.Fast)
	slow := ta.SMA(closes, s.p.Slow)
	prevFast := ta.SMA(closes[:len(closes)-1], s.p.Fast)
	prevSlow := ta.SMA(closes[:len(closes)-1], s.p.Slow)
	vol := ta.Volatility(closes, s.p.VolWindow)

	inds := map[string]float64{
		"sma_fast": fast,
		"sma_slow": slow,
		"close":    closes[len(closes)-1],
	}
	setIfNumber(inds, "ema_fast", ta.EMA(closes, s.p.Fast))
	setIfNumber(inds, "rsi", ta.RSI(closes, rsiPeriod))
	mid, up, low := ta.Bollinger(closes, s.p.Slow, bollingerWidth)
	setIfNumber(inds, "bb_mid", mid)
	setIfNumber(inds, "bb_upper", up)
	setIfNumber(inds, "bb_lower", low)
	setIfNumber(inds, "volatility", vol)
	var atr float64
	if s.p.ATRPeriod > 0 {
		atr = ta.ATR(highs, lows, closes, s.p.ATRPeriod)
		setIfNumber(inds, "atr", atr)
	}
	if s.primary == "" {
		s.primary = bar.Symbol
	}
	s.indicators[bar.Symbol] = inds
	s.regimes[bar.Symbol] = s.classify(fast, slow, vol)

	if s.AfterEnd(bar.Time) {
		return nil
	}

	pos := s.View().Position(bar.Symbol)
	thresholds := map[string]float64{"sma_fast": fast, "sma_slow": slow}

	switch {
	case ta.CrossedAbove(prevFast, prevSlow, fast, slow):
		if pos > 0 {
			return nil
		}
		if pos < 0 {
			s.Emit(s.signal(bar, types.Buy, decimal.Zero, "golden_cross_cover", thresholds, nil))
		}
		s.Emit(s.signal(bar, types.Buy, s.p.Target, "golden_cross", thresholds, s.riskPerUnit(atr)))
	case ta.CrossedBelow(prevFast, prevSlow, fast, slow):
		if pos > 0 {
			s.Emit(s.signal(bar, types.Sell, decimal.Zero, "death_cross_exit", thresholds, nil))
		}
		if s.p.AllowShort && pos >= 0 {
			s.Emit(s.signal(bar, types.Sell, s.p.Target, "death_cross", thresholds, s.riskPerUnit(atr)))
		}
	}
	return nil
}

func (s *SMACross) signal(bar types.Bar, dir types.Direction, f decimal.Decimal, reason string, thresholds map[string]float64, risk *decimal.Decimal) types.Signal {
	return types.Signal{
		Symbol:         bar.Symbol,
		Direction:      dir,
		TargetFraction: f,
		RiskPerUnit:    risk,
		Time:           bar.Time,
		Reason:         reason,
		StateLabel:     s.stateLabel(bar.Symbol),
		Thresholds:     thresholds,
	}
}

func (s *SMACross) riskPerUnit(atr float64) *decimal.Decimal {
	if s.p.ATRPeriod <= 0 || s.p.ATRMultiple <= 0 || math.IsNaN(atr) || atr <= 0 {
		return nil
	}
	r := decimal.NewFromFloat(atr * s.p.ATRMultiple).Round(4)
	return &r
}

func (s *SMACross) stateLabel(symbol string) string {
	r := s.regimes[symbol]
	return r.Trend + "/" + r.Vol
}

func setIfNumber(m map[string]float64, key string, v float64) {
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		m[key] = v
	}
}

// classify maps trend and volatility onto a 2x2 grid:
// cell = trend*2 + vol, with UP=0, DOWN=1, LOW=0, HIGH=1.
func (s *SMACross) classify(fast, slow, vol float64) types.Regime {
	trend, trendIdx := TrendUp, 0
	if fast < slow {
		trend, trendIdx = TrendDown, 1
	}
	volLabel, volIdx := VolLow, 0
	if !math.IsNaN(vol) && vol > s.p.VolThreshold {
		volLabel, volIdx = VolHigh, 1
	}
	return types.Regime{Trend: trend, Vol: volLabel, CellID: trendIdx*2 + volIdx}
}

// CurrentIndicatorValues returns the latest values of every symbol. The
// primary symbol uses bare keys, other symbols are prefixed "SYM.".
func (s *SMACross) CurrentIndicatorValues() map[string]float64 {
	if len(s.indicators) == 0 {
		return nil
	}
	out := make(map[string]float64)
	for sym, inds := range s.indicators {
		prefix := ""
		if sym != s.primary {
			prefix = sym + "."
		}
		for k, v := range inds {
			out[prefix+k] = v
		}
	}
	return out
}

// CurrentRegime is the regime of the primary symbol.
func (s *SMACross) CurrentRegime() (types.Regime, bool) {
	r, ok := s.regimes[s.primary]
	return r, ok
}
