package interfaces

import (
	"time"

	"bar-backtester/internal/types"
)

// Feed is a time-ordered, pull-based bar source.
// Next returns io.EOF once the stream is exhausted.
type Feed interface {
	HistoryFeed
	Next() (types.Bar, error)
}

// HistoryFeed gives read access to bars already delivered by Next.
// Nothing newer than the last delivered bar of a symbol is ever returned.
type HistoryFeed interface {
	BarsInRange(symbol string, start, end time.Time, limit int) []types.Bar
	LastNBars(symbol string, n int) []types.Bar
	Symbols() []string
}
