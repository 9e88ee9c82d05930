package feed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

var ErrEmptyFile = errors.New("no bars in file")

// csvRow is one line of a bar file. Numbers stay strings so they can be
// parsed straight into decimals without a float round trip.
type csvRow struct {
	Time   string `csv:"time"`
	Symbol string `csv:"symbol"`
	Open   string `csv:"open"`
	High   string `csv:"high"`
	Low    string `csv:"low"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

// CSVOptions controls how a bar file is read.
type CSVOptions struct {
	// Symbol is used when the file has no symbol column.
	Symbol string
	// Location is applied to timestamps without a zone. Nil means UTC.
	Location  *time.Location
	Timeframe string
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	time.DateOnly,
}

// LoadCSV reads a headered bar file (time,open,high,low,close,volume and an
// optional symbol column). Rows are returned in file order; bar sanity is
// left to the consumer.
func LoadCSV(path string, opts CSVOptions) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var rows []*csvRow
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	bars := make([]types.Bar, 0, len(rows))
	for i, r := range rows {
		bar, err := r.toBar(opts.Symbol, opts.Timeframe, loc)
		if err != nil {
			// +2: header line and 1-based numbering
			return nil, fmt.Errorf("%s line %d: %w", path, i+2, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// LoadDir loads every *.csv file in dir and merges them. Files without a
// symbol column take the file name (without extension) as the symbol.
func LoadDir(dir string, loc *time.Location, timeframe string) ([]types.Bar, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no csv files in %s", dir)
	}
	sort.Strings(paths)

	series := make([][]types.Bar, 0, len(paths))
	for _, p := range paths {
		sym := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		bars, err := LoadCSV(p, CSVOptions{Symbol: sym, Location: loc, Timeframe: timeframe})
		if err != nil {
			return nil, err
		}
		series = append(series, bars)
	}
	return Merge(series...), nil
}

func (r *csvRow) toBar(symbol, timeframe string, loc *time.Location) (types.Bar, error) {
	ts, err := parseTime(strings.TrimSpace(r.Time), loc)
	if err != nil {
		return types.Bar{}, err
	}
	if s := strings.TrimSpace(r.Symbol); s != "" {
		symbol = s
	}
	if symbol == "" {
		return types.Bar{}, errors.New("missing symbol")
	}

	bar := types.Bar{Symbol: symbol, Time: ts, Timeframe: timeframe}
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", r.Open, &bar.Open},
		{"high", r.High, &bar.High},
		{"low", r.Low, &bar.Low},
		{"close", r.Close, &bar.Close},
		{"volume", r.Volume, &bar.Volume},
	} {
		raw := strings.TrimSpace(f.raw)
		if raw == "" && f.name == "volume" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Bar{}, fmt.Errorf("%s %q: %w", f.name, raw, err)
		}
		*f.dst = v
	}
	return bar, nil
}

// parseTime accepts RFC3339, common naive layouts (read in loc) and unix
// seconds.
func parseTime(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing time")
	}
	for _, layout := range timeLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).In(loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
