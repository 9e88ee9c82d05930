package interfaces

import (
	"context"

	"bar-backtester/internal/types"
)

// Strategy is a stateful decision function driven one bar at a time.
type Strategy interface {
	Name() string
	OnInit(ctx context.Context) error
	// RequiredWarmupBars is queried once before the run.
	RequiredWarmupBars() int
	// Observe pushes the bar into the strategy's rolling history and
	// refreshes its read-only account view. It must not emit signals.
	Observe(bar types.Bar, view types.AccountView)
	OnBar(ctx context.Context, bar types.Bar) error
	// PendingSignals drains the signals emitted since the last call.
	PendingSignals() []types.Signal
}

// IndicatorReporter is implemented by strategies that expose indicator values.
type IndicatorReporter interface {
	CurrentIndicatorValues() map[string]float64
}

// RegimeReporter is implemented by strategies that classify market regimes.
type RegimeReporter interface {
	CurrentRegime() (types.Regime, bool)
}
