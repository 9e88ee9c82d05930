package strategy

import (
	"fmt"

	"bar-backtester/internal/interfaces"
)

// Spec names a strategy and its parameters, as read from configuration.
type Spec struct {
	Name     string
	SMACross SMACrossParams
}

// New builds the named strategy.
func New(spec Spec, cfg Config) (interfaces.Strategy, error) {
	switch spec.Name {
	case "", "hold":
		return NewHold(cfg), nil
	case "sma_cross":
		return NewSMACross(cfg, spec.SMACross)
	default:
		return nil, fmt.Errorf("unknown strategy %q", spec.Name)
	}
}
