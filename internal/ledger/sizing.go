package ledger

import (
	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

// size converts a signal into an order at reference price p.
// A nil order with a nil error means there is nothing to trade.
//
// Three cases:
//   - close: target 0 with an open position liquidates all of it
//   - rebalance: same direction as the open position trades the delta
//     between the target and the current allocation
//   - open: anything else sizes a fresh position in the signal direction
func (l *Ledger) size(signal types.Signal, p decimal.Decimal) (*types.Order, error) {
	pos := l.positions[signal.Symbol]

	if signal.TargetFraction.IsZero() {
		if pos == 0 {
			return nil, nil
		}
		return &types.Order{
			Symbol:    signal.Symbol,
			Kind:      types.Market,
			Direction: closingSide(pos),
			Quantity:  abs(pos),
		}, nil
	}

	if (pos > 0 && signal.Direction == types.Buy) || (pos < 0 && signal.Direction == types.Sell) {
		return l.rebalance(signal, pos, p), nil
	}
	return l.open(signal, p)
}

// open sizes a new position: floor(min(f*PV, cash) / cost per share).
func (l *Ledger) open(signal types.Signal, p decimal.Decimal) (*types.Order, error) {
	budget := decimal.Min(signal.TargetFraction.Mul(l.PortfolioValue()), l.cash)
	cost := l.unitCost(signal.Direction, p, signal.RiskPerUnit)
	order := types.Order{Symbol: signal.Symbol, Kind: types.Market, Direction: signal.Direction}
	if !budget.IsPositive() || !cost.IsPositive() {
		return nil, reject(order, ErrInsufficientCash)
	}

	order.Quantity = budget.Div(cost).Floor().IntPart()
	if order.Quantity <= 0 {
		return nil, reject(order, ErrInsufficientCash)
	}
	return &order, nil
}

// rebalance trades toward the target allocation of an existing position.
// Deltas under one share are ignored and buys growing a long are clamped
// to cash. Covers are bounded by the position and checked by validate.
func (l *Ledger) rebalance(signal types.Signal, pos int64, p decimal.Decimal) *types.Order {
	pv := l.PortfolioValue()
	if !pv.IsPositive() {
		return nil
	}
	current := decimal.NewFromInt(abs(pos)).Mul(p).Div(pv)
	delta := signal.TargetFraction.Sub(current)

	// Cost per share on the side the position lives on.
	cost := l.unitCost(signal.Direction, p, signal.RiskPerUnit)
	if !cost.IsPositive() {
		return nil
	}
	shares := delta.Mul(pv).Div(cost).Truncate(0).IntPart()
	if shares == 0 {
		return nil
	}

	// Growing a long or a short trades in the signal direction; shrinking
	// trades against it.
	dir := signal.Direction
	qty := shares
	if shares < 0 {
		dir = closingSide(pos)
		qty = -shares
		if qty > abs(pos) {
			qty = abs(pos)
		}
	}

	if dir == types.Buy && pos > 0 {
		buyCost := l.unitCost(types.Buy, p, nil)
		affordable := l.cash.Div(buyCost).Floor().IntPart()
		if qty > affordable {
			qty = affordable
		}
	}
	if qty < 1 {
		return nil
	}
	return &types.Order{Symbol: signal.Symbol, Kind: types.Market, Direction: dir, Quantity: qty}
}

// unitCost is the cash consumed per share. A risk-per-unit override wins;
// otherwise longs pay the slipped price plus commission and shorts lock
// margin on the slipped price plus commission.
func (l *Ledger) unitCost(dir types.Direction, p decimal.Decimal, riskPerUnit *decimal.Decimal) decimal.Decimal {
	if riskPerUnit != nil && riskPerUnit.IsPositive() {
		return *riskPerUnit
	}
	fill := l.slipped(dir, p)
	if dir == types.Buy {
		return fill.Add(l.commission.perUnit(fill))
	}
	return fill.Mul(l.margin).Add(l.commission.perUnit(fill))
}

func closingSide(pos int64) types.Direction {
	if pos > 0 {
		return types.Sell
	}
	return types.Buy
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
