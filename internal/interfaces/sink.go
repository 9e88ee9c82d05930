package interfaces

import "bar-backtester/internal/types"

// TradeContextSink receives a record for every fill. Push-only.
type TradeContextSink interface {
	OnTradeContext(tc types.TradeContext)
}

// RegimeSink receives one record per trading bar when a regime is known.
type RegimeSink interface {
	OnRegimeBar(rb types.RegimeBar)
}
