package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

// Ledger owns cash and positions and decides whether a signal becomes a fill.
type Ledger interface {
	UpdatePrices(prices map[string]decimal.Decimal)
	// Execute sizes, validates and applies the order derived from signal.
	// A nil fill with a nil error means nothing to do (HOLD, untriggered limit).
	Execute(ctx context.Context, signal types.Signal, bar types.Bar) (*types.Fill, error)
	PortfolioValue() decimal.Decimal
	Cash() decimal.Decimal
	Position(symbol string) int64
	Positions() map[string]int64
	LatestPrice(symbol string) (decimal.Decimal, bool)
	// Snapshot records the account for a trading date decided by the caller.
	Snapshot(date, ts time.Time, indicators map[string]float64) types.DailySnapshot
	RecordEquity(ts time.Time)
	EquityCurve() []types.EquityPoint
	DailySnapshots() []types.DailySnapshot
	Fills() []types.Fill
}
