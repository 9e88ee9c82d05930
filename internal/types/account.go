package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Phase is the simulation phase. WarmUp -> Trading only.
type Phase int

const (
	WarmUp Phase = iota
	Trading
)

func (p Phase) String() string {
	if p == Trading {
		return "TRADING"
	}
	return "WARM_UP"
}

// AccountView is the read-only account state handed to a strategy each bar.
type AccountView struct {
	Cash           decimal.Decimal
	PortfolioValue decimal.Decimal
	Positions      map[string]int64
}

// Position returns the signed quantity held for symbol.
func (v AccountView) Position(symbol string) int64 {
	return v.Positions[symbol]
}

// DailySnapshot is the account state captured once per trading date,
// valued at that date's closing prices.
type DailySnapshot struct {
	Date       time.Time                  `json:"date"`
	Time       time.Time                  `json:"time"`
	Cash       decimal.Decimal            `json:"cash"`
	Positions  map[string]int64           `json:"positions"`
	Holdings   map[string]decimal.Decimal `json:"holdings"`
	TotalValue decimal.Decimal            `json:"total_value"`
	Indicators map[string]float64         `json:"indicators,omitempty"`
}

// EquityPoint is one sample of the running portfolio value.
type EquityPoint struct {
	Time  time.Time       `json:"time"`
	Value decimal.Decimal `json:"value"`
}

// Regime is a strategy's classification of the current market state.
type Regime struct {
	Trend  string `json:"trend"`
	Vol    string `json:"vol"`
	CellID int    `json:"cell_id"`
}

// TradeContext describes why a fill happened; pushed to sinks.
type TradeContext struct {
	Time       time.Time          `json:"time"`
	Symbol     string             `json:"symbol"`
	StateLabel string             `json:"state_label"`
	Reason     string             `json:"reason"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Thresholds map[string]float64 `json:"thresholds,omitempty"`
}

// RegimeBar is the per-bar regime record pushed to sinks.
type RegimeBar struct {
	Time           time.Time       `json:"time"`
	Regime         Regime          `json:"regime"`
	BenchmarkClose decimal.Decimal `json:"benchmark_close"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}
