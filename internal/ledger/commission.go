package ledger

import "github.com/shopspring/decimal"

// Commission is charged per fill: PerShare*qty + Rate*notional, at least Minimum.
type Commission struct {
	PerShare decimal.Decimal
	Rate     decimal.Decimal
	Minimum  decimal.Decimal
}

// For returns the commission for qty shares filled at price.
func (c Commission) For(qty int64, price decimal.Decimal) decimal.Decimal {
	q := decimal.NewFromInt(qty)
	fee := c.PerShare.Mul(q).Add(c.Rate.Mul(price).Mul(q))
	if fee.LessThan(c.Minimum) {
		return c.Minimum
	}
	return fee
}

// perUnit is the per-share commission used when sizing. The minimum ticket
// is ignored here; validation catches it.
func (c Commission) perUnit(price decimal.Decimal) decimal.Decimal {
	return c.PerShare.Add(c.Rate.Mul(price))
}
