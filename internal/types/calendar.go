package types

import "time"

// TradingDate returns midnight of t's calendar date in loc.
// A nil loc means UTC.
func TradingDate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// Normalize converts t to UTC so zone-aware and zone-less values compare
// on the same representation.
func Normalize(t time.Time) time.Time {
	return t.UTC()
}
