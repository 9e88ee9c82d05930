package sequencer

import (
	"time"

	"bar-backtester/internal/types"
)

// phaseClock flips WARM_UP -> TRADING once and never back. Both sides of
// every comparison are normalized to UTC instants first. Without a start
// time the flip happens once warmup bars have been processed.
type phaseClock struct {
	start  time.Time
	end    time.Time
	warmup int
	phase  types.Phase
}

func newPhaseClock(start, end time.Time, warmup int) phaseClock {
	return phaseClock{start: types.Normalize(start), end: types.Normalize(end), warmup: warmup}
}

// advance reports whether this bar is the one that entered TRADING. seen
// is the number of bars processed before it.
func (c *phaseClock) advance(t time.Time, seen int) bool {
	if c.phase == types.Trading {
		return false
	}
	if c.start.IsZero() {
		if seen < c.warmup {
			return false
		}
	} else if types.Normalize(t).Before(c.start) {
		return false
	}
	c.phase = types.Trading
	return true
}

func (c *phaseClock) trading() bool {
	return c.phase == types.Trading
}

// afterEnd is true past the optional trading end.
func (c *phaseClock) afterEnd(t time.Time) bool {
	return !c.end.IsZero() && types.Normalize(t).After(c.end)
}
