package ledgerobs

import (
	"context"
	"time"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/ledger"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/trace"
	"bar-backtester/internal/types"
)

type observableLedger struct {
	interfaces.Ledger
	log    *logger.Logger
	tracer *trace.Tracer
}

var _ interfaces.Ledger = (*observableLedger)(nil)

// Wrap adds fill and rejection logging plus an execute span around l.
// Every other method passes straight through.
func Wrap(l interfaces.Ledger, log *logger.Logger, tracer *trace.Tracer) interfaces.Ledger {
	if log == nil {
		log = logger.Nop()
	}
	if tracer == nil {
		tracer = trace.Nop()
	}
	return &observableLedger{Ledger: l, log: log, tracer: tracer}
}

func (ol *observableLedger) Execute(ctx context.Context, signal types.Signal, bar types.Bar) (*types.Fill, error) {
	ctx, span := ol.tracer.StartSpan(ctx, "ledger.Execute")
	defer span.End()

	start := time.Now()
	fill, err := ol.Ledger.Execute(ctx, signal, bar)
	if err != nil {
		if ledger.IsRejection(err) {
			ol.log.Risk(ctx, signal.Symbol, "ORDER_REJECTED",
				"direction", signal.Direction,
				"target_fraction", signal.TargetFraction.String(),
				"reason", ledger.RejectionReason(err),
				"cash", ol.Ledger.Cash().String(),
			)
			return nil, err
		}
		ol.log.ErrorWithErrSkip(ctx, 1, "Execute failed", err,
			"symbol", signal.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}
	if fill == nil {
		ol.log.DebugSkip(ctx, 1, "No fill",
			"symbol", signal.Symbol,
			"direction", signal.Direction,
		)
		return nil, nil
	}

	ol.log.Trade(ctx, fill.Symbol, string(fill.Direction), fill.Quantity, fill.Price.StringFixed(4), fill.ID,
		"commission", fill.Commission.String(),
		"slippage", fill.Slippage.String(),
		"position", ol.Ledger.Position(fill.Symbol),
		"cash", ol.Ledger.Cash().StringFixed(2),
		"portfolio_value", ol.Ledger.PortfolioValue().StringFixed(2),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return fill, nil
}

func (ol *observableLedger) Snapshot(date, ts time.Time, indicators map[string]float64) types.DailySnapshot {
	snap := ol.Ledger.Snapshot(date, ts, indicators)
	ol.log.InfoSkip(context.Background(), 1, "Daily snapshot",
		"date", snap.Date.Format(time.DateOnly),
		"cash", snap.Cash.StringFixed(2),
		"total_value", snap.TotalValue.StringFixed(2),
		"positions", len(snap.Positions),
	)
	return snap
}
