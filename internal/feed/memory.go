package feed

import (
	"io"
	"sort"
	"time"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/types"
)

// Memory replays a fixed slice of bars. History queries only see bars that
// Next has already handed out, so a strategy reading through it cannot
// look ahead of the sequencer. Malformed bars and bars breaking (time,
// symbol) order are still handed out but never enter the history; the
// sequencer rejects the same bars.
type Memory struct {
	bars      []types.Bar
	pos       int
	delivered map[string][]types.Bar
	symbols   []string

	hasLast bool
	last    types.Bar
}

var _ interfaces.Feed = (*Memory)(nil)

// NewMemory replays bars in the order given. Use Merge first when the input
// is several per-symbol series.
func NewMemory(bars []types.Bar) *Memory {
	seen := make(map[string]struct{})
	var symbols []string
	for _, b := range bars {
		if _, ok := seen[b.Symbol]; !ok {
			seen[b.Symbol] = struct{}{}
			symbols = append(symbols, b.Symbol)
		}
	}
	sort.Strings(symbols)
	return &Memory{
		bars:      bars,
		delivered: make(map[string][]types.Bar, len(symbols)),
		symbols:   symbols,
	}
}

// Merge combines per-symbol series into one stream ordered by time, then
// symbol. Bars with equal time and symbol keep their input order.
func Merge(series ...[]types.Bar) []types.Bar {
	var n int
	for _, s := range series {
		n += len(s)
	}
	out := make([]types.Bar, 0, n)
	for _, s := range series {
		out = append(out, s...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Time.Equal(out[j].Time) {
			return out[i].Time.Before(out[j].Time)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Next returns the next bar or io.EOF.
func (m *Memory) Next() (types.Bar, error) {
	if m.pos >= len(m.bars) {
		return types.Bar{}, io.EOF
	}
	b := m.bars[m.pos]
	m.pos++
	if m.accepts(b) {
		m.delivered[b.Symbol] = append(m.delivered[b.Symbol], b)
		m.hasLast = true
		m.last = b
	}
	return b, nil
}

// accepts mirrors the sequencer's admission rule so history holds exactly
// the bars a strategy was shown.
func (m *Memory) accepts(b types.Bar) bool {
	if b.Validate() != nil {
		return false
	}
	if !m.hasLast {
		return true
	}
	if b.Time.Before(m.last.Time) {
		return false
	}
	return !b.Time.Equal(m.last.Time) || b.Symbol > m.last.Symbol
}

// LastNBars returns up to n most recent delivered bars for symbol, oldest first.
func (m *Memory) LastNBars(symbol string, n int) []types.Bar {
	hist := m.delivered[symbol]
	if n <= 0 || len(hist) == 0 {
		return nil
	}
	if n > len(hist) {
		n = len(hist)
	}
	return append([]types.Bar(nil), hist[len(hist)-n:]...)
}

// BarsInRange returns delivered bars for symbol with start <= time <= end.
// A zero end means "up to the last delivered bar". With limit > 0 only the
// most recent limit bars are kept.
func (m *Memory) BarsInRange(symbol string, start, end time.Time, limit int) []types.Bar {
	var out []types.Bar
	for _, b := range m.delivered[symbol] {
		if b.Time.Before(start) {
			continue
		}
		if !end.IsZero() && b.Time.After(end) {
			break
		}
		out = append(out, b)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (m *Memory) Symbols() []string {
	return append([]string(nil), m.symbols...)
}

// Reset rewinds the stream and forgets delivered history.
func (m *Memory) Reset() {
	m.pos = 0
	m.delivered = make(map[string][]types.Bar, len(m.symbols))
	m.hasLast = false
	m.last = types.Bar{}
}
