package ledger

import (
	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

// validate applies the pre-trade checks. It never mutates the ledger.
// A cover is checked against cash plus the collateral it releases at price.
func (l *Ledger) validate(order types.Order, price, fillPrice, commission decimal.Decimal) error {
	pos := l.positions[order.Symbol]
	qty := decimal.NewFromInt(order.Quantity)

	switch order.Direction {
	case types.Buy:
		if pos < 0 && order.Quantity > -pos {
			return reject(order, ErrIllegalFlip)
		}
		cost := fillPrice.Mul(qty).Add(commission)
		available := l.cash
		if pos < 0 {
			available = available.Add(l.margin.Mul(price).Mul(qty))
		}
		if cost.GreaterThan(available) {
			return reject(order, ErrInsufficientCash)
		}
	case types.Sell:
		if pos > 0 {
			if order.Quantity > pos {
				return reject(order, ErrIllegalFlip)
			}
			return nil
		}
		required := l.margin.Mul(fillPrice.Mul(qty)).Add(commission)
		if required.GreaterThan(l.cash) {
			return reject(order, ErrInsufficientCollateral)
		}
	default:
		return reject(order, ErrInvalidOrder)
	}
	return nil
}
