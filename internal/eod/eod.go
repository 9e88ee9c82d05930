// Package eod turns the durable outputs of a run (fills and daily
// snapshots) into CSV reports.
package eod

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	"bar-backtester/internal/types"
)

const (
	SummaryFile   = "summary.csv"
	FillsFile     = "fills.csv"
	SnapshotsFile = "snapshots.csv"
)

// Summarize aggregates fills per symbol, sorted by symbol, followed by a
// TOTAL row. Realized PnL is matched quantity times (sell avg - buy avg).
func Summarize(fills []types.Fill) []SummaryRow {
	if len(fills) == 0 {
		return nil
	}
	aggs := map[string]*aggRow{}
	for _, f := range fills {
		row := aggs[f.Symbol]
		if row == nil {
			row = &aggRow{Symbol: f.Symbol}
			aggs[f.Symbol] = row
		}
		notional := f.Notional()
		switch f.Direction {
		case types.Buy:
			row.BuyQty += f.Quantity
			row.BuyValue = row.BuyValue.Add(notional)
		case types.Sell:
			row.SellQty += f.Quantity
			row.SellValue = row.SellValue.Add(notional)
		}
		row.Commission = row.Commission.Add(f.Commission)
	}

	keys := make([]string, 0, len(aggs))
	for k := range aggs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]SummaryRow, 0, len(keys)+1)
	var totalBuy, totalSell, totalPnL, totalComm decimal.Decimal
	for _, k := range keys {
		r := aggs[k]
		buyAvg := average(r.BuyValue, r.BuyQty)
		sellAvg := average(r.SellValue, r.SellQty)
		matched := min(r.BuyQty, r.SellQty)
		pnl := sellAvg.Sub(buyAvg).Mul(decimal.NewFromInt(matched))

		out = append(out, SummaryRow{
			Symbol:         r.Symbol,
			BuyQty:         r.BuyQty,
			BuyAvg:         buyAvg.StringFixed(4),
			SellQty:        r.SellQty,
			SellAvg:        sellAvg.StringFixed(4),
			RealizedPnL:    pnl.StringFixed(2),
			Commission:     r.Commission.StringFixed(2),
			GrossBuyValue:  r.BuyValue.StringFixed(2),
			GrossSellValue: r.SellValue.StringFixed(2),
		})
		totalBuy = totalBuy.Add(r.BuyValue)
		totalSell = totalSell.Add(r.SellValue)
		totalPnL = totalPnL.Add(pnl)
		totalComm = totalComm.Add(r.Commission)
	}
	out = append(out, SummaryRow{
		Symbol:         "TOTAL",
		RealizedPnL:    totalPnL.StringFixed(2),
		Commission:     totalComm.StringFixed(2),
		GrossBuyValue:  totalBuy.StringFixed(2),
		GrossSellValue: totalSell.StringFixed(2),
	})
	return out
}

func average(value decimal.Decimal, qty int64) decimal.Decimal {
	if qty == 0 {
		return decimal.Zero
	}
	return value.Div(decimal.NewFromInt(qty))
}

// WriteReport writes summary.csv, fills.csv and snapshots.csv into dir and
// returns the paths written. Empty inputs produce header-only files.
func WriteReport(dir string, res *types.RunResult) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fills := make([]*fillRow, 0, len(res.Fills))
	for _, f := range res.Fills {
		fills = append(fills, &fillRow{
			ID:         f.ID,
			Time:       f.Time.Format(time.RFC3339),
			Symbol:     f.Symbol,
			Side:       string(f.Direction),
			Qty:        f.Quantity,
			Price:      f.Price.String(),
			Commission: f.Commission.String(),
			Slippage:   f.Slippage.String(),
		})
	}

	snaps := make([]*snapshotRow, 0, len(res.Snapshots))
	for _, s := range res.Snapshots {
		holdings := decimal.Zero
		for _, v := range s.Holdings {
			holdings = holdings.Add(v)
		}
		snaps = append(snaps, &snapshotRow{
			Date:       s.Date.Format(time.DateOnly),
			Cash:       s.Cash.StringFixed(2),
			Holdings:   holdings.StringFixed(2),
			TotalValue: s.TotalValue.StringFixed(2),
			Positions:  len(s.Positions),
		})
	}

	summary := Summarize(res.Fills)
	summaryRows := make([]*SummaryRow, 0, len(summary))
	for i := range summary {
		summaryRows = append(summaryRows, &summary[i])
	}

	outputs := []struct {
		name string
		rows any
	}{
		{SummaryFile, &summaryRows},
		{FillsFile, &fills},
		{SnapshotsFile, &snaps},
	}
	paths := make([]string, 0, len(outputs))
	for _, o := range outputs {
		p := filepath.Join(dir, o.name)
		if err := writeCSV(p, o.rows); err != nil {
			return paths, fmt.Errorf("write %s: %w", o.name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func writeCSV(path string, rows any) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gocsv.MarshalFile(rows, out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
