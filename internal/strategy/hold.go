package strategy

import (
	"context"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/types"
)

// Hold never trades. Useful as a baseline and for smoke runs.
type Hold struct {
	Base
}

var _ interfaces.Strategy = (*Hold)(nil)

func NewHold(cfg Config) *Hold {
	return &Hold{Base: NewBase(cfg)}
}

func (h *Hold) Name() string {
	return "hold"
}

func (h *Hold) OnBar(context.Context, types.Bar) error {
	return nil
}
