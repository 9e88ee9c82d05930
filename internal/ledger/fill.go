package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

// apply books a validated order. price is the unslipped market price,
// fillPrice the price actually paid or received.
//
//	BUY  vs long/flat : cash -= fill*qty + commission
//	BUY  vs short     : cash -= fill*qty + commission; cash += margin*price*qty
//	SELL vs long      : cash += fill*qty - commission
//	SELL vs flat/short: cash -= margin*fill*qty + commission
func (l *Ledger) apply(order types.Order, price, fillPrice, commission decimal.Decimal, ts time.Time) types.Fill {
	pos := l.positions[order.Symbol]
	qty := decimal.NewFromInt(order.Quantity)
	notional := fillPrice.Mul(qty)

	switch order.Direction {
	case types.Buy:
		l.cash = l.cash.Sub(notional.Add(commission))
		if pos < 0 {
			l.cash = l.cash.Add(l.margin.Mul(price).Mul(qty))
		}
		pos += order.Quantity
	case types.Sell:
		if pos > 0 {
			l.cash = l.cash.Add(notional).Sub(commission)
		} else {
			l.cash = l.cash.Sub(l.margin.Mul(notional).Add(commission))
		}
		pos -= order.Quantity
	}

	if pos == 0 {
		delete(l.positions, order.Symbol)
	} else {
		l.positions[order.Symbol] = pos
	}
	l.prices[order.Symbol] = price

	fill := types.Fill{
		ID:         fillID(order, ts, len(l.fills)),
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Quantity:   order.Quantity,
		Price:      fillPrice,
		Commission: commission,
		Slippage:   fillPrice.Sub(price).Abs(),
		Time:       ts,
	}
	l.fills = append(l.fills, fill)
	return fill
}

// fillID is a name-based uuid so identical replays produce identical ids.
func fillID(order types.Order, ts time.Time, seq int) string {
	name := fmt.Sprintf("%s|%s|%d|%d|%d", order.Symbol, order.Direction, order.Quantity, ts.UnixNano(), seq)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
