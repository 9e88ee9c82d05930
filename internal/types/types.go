package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the side of a signal, order or fill.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// OrderKind selects how an order is matched against a bar.
type OrderKind string

const (
	Market OrderKind = "MARKET"
	Limit  OrderKind = "LIMIT"
)

var (
	ErrNonPositivePrice = errors.New("non-positive price")
	ErrNegativeVolume   = errors.New("negative volume")
	ErrMalformedOHLC    = errors.New("malformed ohlc")
)

// Bar is one OHLCV observation for a symbol.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Time      time.Time       `json:"time"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timeframe string          `json:"timeframe,omitempty"`
}

// Validate checks the OHLC envelope: low <= open,close <= high, prices > 0, volume >= 0.
func (b Bar) Validate() error {
	for _, p := range []decimal.Decimal{b.Open, b.High, b.Low, b.Close} {
		if !p.IsPositive() {
			return fmt.Errorf("%s@%s: %w", b.Symbol, b.Time.Format(time.RFC3339), ErrNonPositivePrice)
		}
	}
	if b.Volume.IsNegative() {
		return fmt.Errorf("%s@%s: %w", b.Symbol, b.Time.Format(time.RFC3339), ErrNegativeVolume)
	}
	if b.Low.GreaterThan(b.Open) || b.Open.GreaterThan(b.High) ||
		b.Low.GreaterThan(b.Close) || b.Close.GreaterThan(b.High) {
		return fmt.Errorf("%s@%s: %w", b.Symbol, b.Time.Format(time.RFC3339), ErrMalformedOHLC)
	}
	return nil
}

// Signal is the exposure a strategy wants for a symbol.
// TargetFraction is a share of portfolio value in [0,1]; 0 means close.
type Signal struct {
	Symbol         string           `json:"symbol"`
	Direction      Direction        `json:"direction"`
	TargetFraction decimal.Decimal  `json:"target_fraction"`
	RiskPerUnit    *decimal.Decimal `json:"risk_per_unit,omitempty"`
	Time           time.Time        `json:"time"`

	// Descriptive only; forwarded to sinks.
	Reason     string             `json:"reason,omitempty"`
	StateLabel string             `json:"state_label,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

// IsClose reports whether the signal asks to flatten the symbol.
func (s Signal) IsClose() bool {
	return s.Direction != Hold && s.TargetFraction.IsZero()
}

// Order is a directional instruction derived from a signal.
type Order struct {
	Symbol     string           `json:"symbol"`
	Kind       OrderKind        `json:"kind"`
	Direction  Direction        `json:"direction"`
	Quantity   int64            `json:"quantity"`
	LimitPrice *decimal.Decimal `json:"limit_price,omitempty"`
}

// Fill is an executed trade. Fills are append-only.
type Fill struct {
	ID         string          `json:"id"`
	Symbol     string          `json:"symbol"`
	Direction  Direction       `json:"direction"`
	Quantity   int64           `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	Time       time.Time       `json:"time"`
}

// Notional is quantity times fill price.
func (f Fill) Notional() decimal.Decimal {
	return f.Price.Mul(decimal.NewFromInt(f.Quantity))
}
