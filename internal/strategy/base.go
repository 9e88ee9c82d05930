package strategy

import (
	"context"
	"time"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/types"
)

const defaultHistorySize = 500

// Config is handed to a strategy at construction. Nothing is injected
// afterwards.
type Config struct {
	// Symbols restricts which bars the strategy acts on. Empty means all.
	Symbols      []string
	TradingStart time.Time
	// TradingEnd, when set, stops the strategy from emitting signals after it.
	TradingEnd time.Time
	// Benchmark is the symbol a multi-symbol strategy reports its regime for.
	Benchmark string
	// Feed gives read-only access to already delivered bars. When set,
	// History reads through it instead of the strategy's own copy.
	Feed        interfaces.HistoryFeed
	HistorySize int
}

// Base carries the bookkeeping every strategy needs: a rolling per-symbol
// history, the last account view and the signal queue. Embed it.
type Base struct {
	cfg     Config
	allow   map[string]bool
	history map[string][]types.Bar
	view    types.AccountView
	pending []types.Signal
}

func NewBase(cfg Config) Base {
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = defaultHistorySize
	}
	var allow map[string]bool
	if len(cfg.Symbols) > 0 {
		allow = make(map[string]bool, len(cfg.Symbols))
		for _, s := range cfg.Symbols {
			allow[s] = true
		}
	}
	return Base{cfg: cfg, allow: allow, history: make(map[string][]types.Bar)}
}

func (b *Base) OnInit(context.Context) error {
	return nil
}

func (b *Base) RequiredWarmupBars() int {
	return 0
}

// Observe appends bar to the rolling history and keeps view.
func (b *Base) Observe(bar types.Bar, view types.AccountView) {
	h := append(b.history[bar.Symbol], bar)
	if len(h) > b.cfg.HistorySize {
		h = h[len(h)-b.cfg.HistorySize:]
	}
	b.history[bar.Symbol] = h
	b.view = view
}

// History returns up to HistorySize bars for symbol, oldest first. Callers
// must not modify it.
func (b *Base) History(symbol string) []types.Bar {
	if b.cfg.Feed != nil {
		return b.cfg.Feed.LastNBars(symbol, b.cfg.HistorySize)
	}
	return b.history[symbol]
}

func (b *Base) View() types.AccountView {
	return b.view
}

// Tracks reports whether the strategy acts on symbol.
func (b *Base) Tracks(symbol string) bool {
	return b.allow == nil || b.allow[symbol]
}

// AfterEnd reports whether t is past the configured trading end.
func (b *Base) AfterEnd(t time.Time) bool {
	return !b.cfg.TradingEnd.IsZero() && t.After(b.cfg.TradingEnd)
}

// Emit queues a signal for the sequencer.
func (b *Base) Emit(sig types.Signal) {
	b.pending = append(b.pending, sig)
}

// PendingSignals drains the queue.
func (b *Base) PendingSignals() []types.Signal {
	out := b.pending
	b.pending = nil
	return out
}
