package interfaces

import (
	"context"

	"bar-backtester/internal/types"
)

// Sequencer drives one single-pass simulation run.
type Sequencer interface {
	Run(ctx context.Context) (*types.RunResult, error)
}
