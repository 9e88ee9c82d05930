package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rejection records an order the ledger refused. Non-fatal.
type Rejection struct {
	Time      time.Time `json:"time"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Quantity  int64     `json:"quantity"`
	Reason    string    `json:"reason"`
}

// RunResult is everything a finished run produced.
type RunResult struct {
	Fills           []Fill          `json:"fills"`
	Snapshots       []DailySnapshot `json:"snapshots"`
	EquityCurve     []EquityPoint   `json:"equity_curve"`
	WarmupSignals   []Signal        `json:"warmup_signals"`
	Rejections      []Rejection     `json:"rejections"`
	BarsProcessed   int             `json:"bars_processed"`
	RejectedBars    int             `json:"rejected_bars"`
	FirstTradingBar time.Time       `json:"first_trading_bar"`
	FinalValue      decimal.Decimal `json:"final_value"`
}
