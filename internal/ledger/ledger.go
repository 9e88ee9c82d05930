package ledger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/types"
)

// DefaultMarginMultiplier is the Reg-T style collateral requirement for shorts.
var DefaultMarginMultiplier = decimal.RequireFromString("1.5")

// Params configures a Ledger.
type Params struct {
	InitialCash      decimal.Decimal
	Slippage         decimal.Decimal // fraction, always applied adversely
	Commission       Commission
	MarginMultiplier decimal.Decimal // zero means DefaultMarginMultiplier
}

// Ledger is the sole owner of cash and positions.
// It is not safe for concurrent use; one run, one goroutine.
type Ledger struct {
	cash      decimal.Decimal
	positions map[string]int64
	prices    map[string]decimal.Decimal

	slippage   decimal.Decimal
	commission Commission
	margin     decimal.Decimal

	fills     []types.Fill
	snapshots []types.DailySnapshot
	equity    []types.EquityPoint
}

var _ interfaces.Ledger = (*Ledger)(nil)

// New creates a ledger holding only cash.
func New(p Params) *Ledger {
	margin := p.MarginMultiplier
	if margin.IsZero() {
		margin = DefaultMarginMultiplier
	}
	return &Ledger{
		cash:       p.InitialCash,
		positions:  make(map[string]int64),
		prices:     make(map[string]decimal.Decimal),
		slippage:   p.Slippage,
		commission: p.Commission,
		margin:     margin,
	}
}

// UpdatePrices records the latest known price per symbol.
func (l *Ledger) UpdatePrices(prices map[string]decimal.Decimal) {
	for sym, px := range prices {
		l.prices[sym] = px
	}
}

// Execute turns a signal into an order and executes it against bar.
// The ledger itself never blocks; ctx is carried for wrappers.
func (l *Ledger) Execute(_ context.Context, signal types.Signal, bar types.Bar) (*types.Fill, error) {
	if signal.Direction == types.Hold {
		return nil, nil
	}
	price, ok := l.referencePrice(signal.Symbol, bar)
	if !ok {
		return nil, reject(types.Order{Symbol: signal.Symbol, Direction: signal.Direction}, ErrNoPrice)
	}
	order, err := l.size(signal, price)
	if err != nil || order == nil {
		return nil, err
	}
	return l.ExecuteOrder(*order, bar)
}

// ExecuteOrder validates and applies an explicit order. bar supplies the
// market price and, for limit orders, the high/low range.
func (l *Ledger) ExecuteOrder(order types.Order, bar types.Bar) (*types.Fill, error) {
	if order.Quantity <= 0 || order.Symbol == "" ||
		(order.Direction != types.Buy && order.Direction != types.Sell) ||
		(order.Kind == types.Limit && order.LimitPrice == nil) {
		return nil, reject(order, ErrInvalidOrder)
	}
	price, ok := l.referencePrice(order.Symbol, bar)
	if !ok {
		return nil, reject(order, ErrNoPrice)
	}

	fillPrice := l.slipped(order.Direction, price)
	if order.Kind == types.Limit {
		var triggered bool
		fillPrice, triggered = limitFill(order, bar, price, fillPrice)
		if !triggered {
			return nil, nil
		}
	}
	commission := l.commission.For(order.Quantity, fillPrice)

	if err := l.validate(order, price, fillPrice, commission); err != nil {
		return nil, err
	}
	fill := l.apply(order, price, fillPrice, commission, bar.Time)
	return &fill, nil
}

// referencePrice is the bar close when the bar belongs to symbol, else the
// latest recorded price.
func (l *Ledger) referencePrice(symbol string, bar types.Bar) (decimal.Decimal, bool) {
	if bar.Symbol == symbol && bar.Close.IsPositive() {
		return bar.Close, true
	}
	px, ok := l.prices[symbol]
	return px, ok && px.IsPositive()
}

func (l *Ledger) slipped(dir types.Direction, price decimal.Decimal) decimal.Decimal {
	if dir == types.Buy {
		return price.Mul(decimal.NewFromInt(1).Add(l.slippage))
	}
	return price.Mul(decimal.NewFromInt(1).Sub(l.slippage))
}

// limitFill checks the bar range against the limit. A buy limit triggers
// when the low reaches it, a sell limit when the high does. The fill price
// is never worse than the limit.
func limitFill(order types.Order, bar types.Bar, price, slipped decimal.Decimal) (decimal.Decimal, bool) {
	limit := *order.LimitPrice
	low, high := bar.Low, bar.High
	if bar.Symbol != order.Symbol {
		low, high = price, price
	}
	if order.Direction == types.Buy {
		if low.GreaterThan(limit) {
			return decimal.Zero, false
		}
		return decimal.Min(limit, slipped), true
	}
	if high.LessThan(limit) {
		return decimal.Zero, false
	}
	return decimal.Max(limit, slipped), true
}

// PortfolioValue is cash plus every position marked at its latest price.
// Recomputed on each call.
func (l *Ledger) PortfolioValue() decimal.Decimal {
	total := l.cash
	for sym, qty := range l.positions {
		total = total.Add(decimal.NewFromInt(qty).Mul(l.prices[sym]))
	}
	return total
}

func (l *Ledger) Cash() decimal.Decimal {
	return l.cash
}

func (l *Ledger) Position(symbol string) int64 {
	return l.positions[symbol]
}

// Positions returns a copy of the non-zero positions.
func (l *Ledger) Positions() map[string]int64 {
	out := make(map[string]int64, len(l.positions))
	for sym, qty := range l.positions {
		out[sym] = qty
	}
	return out
}

// Holdings returns qty*latest price per held symbol.
func (l *Ledger) Holdings() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(l.positions))
	for sym, qty := range l.positions {
		out[sym] = decimal.NewFromInt(qty).Mul(l.prices[sym])
	}
	return out
}

func (l *Ledger) LatestPrice(symbol string) (decimal.Decimal, bool) {
	px, ok := l.prices[symbol]
	return px, ok
}

// Collateral is the margin currently required against a short position
// at the latest price. Zero for longs and flat symbols.
func (l *Ledger) Collateral(symbol string) decimal.Decimal {
	qty := l.positions[symbol]
	if qty >= 0 {
		return decimal.Zero
	}
	return l.margin.Mul(decimal.NewFromInt(-qty)).Mul(l.prices[symbol])
}

// Snapshot captures the account for trading date using the prices
// currently recorded. ts is the last bar time of that date. The caller owns
// the calendar; the ledger stores date as given.
func (l *Ledger) Snapshot(date, ts time.Time, indicators map[string]float64) types.DailySnapshot {
	var inds map[string]float64
	if len(indicators) > 0 {
		inds = make(map[string]float64, len(indicators))
		for k, v := range indicators {
			inds[k] = v
		}
	}
	snap := types.DailySnapshot{
		Date:       date,
		Time:       ts,
		Cash:       l.cash,
		Positions:  l.Positions(),
		Holdings:   l.Holdings(),
		TotalValue: l.PortfolioValue(),
		Indicators: inds,
	}
	l.snapshots = append(l.snapshots, snap)
	return snap
}

// RecordEquity appends the current portfolio value to the equity curve.
func (l *Ledger) RecordEquity(ts time.Time) {
	l.equity = append(l.equity, types.EquityPoint{Time: ts, Value: l.PortfolioValue()})
}

func (l *Ledger) EquityCurve() []types.EquityPoint {
	return append([]types.EquityPoint(nil), l.equity...)
}

func (l *Ledger) DailySnapshots() []types.DailySnapshot {
	return append([]types.DailySnapshot(nil), l.snapshots...)
}

func (l *Ledger) Fills() []types.Fill {
	return append([]types.Fill(nil), l.fills...)
}

// Symbols returns held symbols in ascending order.
func (l *Ledger) Symbols() []string {
	syms := make([]string, 0, len(l.positions))
	for sym := range l.positions {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return syms
}

// RejectionReason extracts the sentinel behind a rejection for reporting.
func RejectionReason(err error) string {
	for _, sentinel := range []error{ErrInsufficientCash, ErrInsufficientCollateral, ErrIllegalFlip, ErrInvalidOrder, ErrNoPrice} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
