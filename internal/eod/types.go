package eod

import "github.com/shopspring/decimal"

// aggRow accumulates fills for one symbol.
type aggRow struct {
	Symbol     string
	BuyQty     int64           // total quantity bought
	BuyValue   decimal.Decimal // sum of qty * fill price on buys
	SellQty    int64           // total quantity sold
	SellValue  decimal.Decimal // sum of qty * fill price on sells
	Commission decimal.Decimal // commission paid on both sides
}

// SummaryRow is one line of summary.csv.
type SummaryRow struct {
	Symbol         string `csv:"symbol"`
	BuyQty         int64  `csv:"buy_qty"`
	BuyAvg         string `csv:"buy_avg"`
	SellQty        int64  `csv:"sell_qty"`
	SellAvg        string `csv:"sell_avg"`
	RealizedPnL    string `csv:"realized_pnl"`
	Commission     string `csv:"commission"`
	GrossBuyValue  string `csv:"gross_buy_value"`
	GrossSellValue string `csv:"gross_sell_value"`
}

// fillRow is one line of fills.csv.
type fillRow struct {
	ID         string `csv:"id"`
	Time       string `csv:"time"`
	Symbol     string `csv:"symbol"`
	Side       string `csv:"side"`
	Qty        int64  `csv:"qty"`
	Price      string `csv:"price"`
	Commission string `csv:"commission"`
	Slippage   string `csv:"slippage"`
}

// snapshotRow is one line of snapshots.csv.
type snapshotRow struct {
	Date       string `csv:"date"`
	Cash       string `csv:"cash"`
	Holdings   string `csv:"holdings_value"`
	TotalValue string `csv:"total_value"`
	Positions  int    `csv:"positions"`
}
