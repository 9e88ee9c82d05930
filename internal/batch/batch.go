// Package batch runs independent backtests side by side. Each job builds
// its own feed, ledger, strategy and sequencer; nothing is shared.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/types"
)

// Job builds a fresh sequencer when it is its turn to run.
type Job struct {
	Name string
	New  func(ctx context.Context) (interfaces.Sequencer, error)
}

// Outcome is the result of one job. Exactly one of Result and Err is set.
type Outcome struct {
	Name     string
	Result   *types.RunResult
	Err      error
	Duration time.Duration
}

type Options struct {
	// Concurrency caps parallel runs; <= 0 means one at a time.
	Concurrency int
	// FailFast cancels the remaining jobs on the first failure.
	FailFast bool
	Logger   *logger.Logger
}

// Run executes jobs and returns their outcomes in job order. The returned
// error is the first failure when FailFast is set, or ctx's error.
func Run(ctx context.Context, jobs []Job, opts Options) ([]Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 1
	}

	outcomes := make([]Outcome, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			out := &outcomes[i]
			out.Name = job.Name
			if err := gctx.Err(); err != nil {
				out.Err = err
				return nil
			}

			start := time.Now()
			out.Result, out.Err = runOne(gctx, job)
			out.Duration = time.Since(start)

			if out.Err != nil {
				log.ErrorWithErr(gctx, "Batch job failed", out.Err, "job", job.Name)
				if opts.FailFast {
					return fmt.Errorf("job %s: %w", job.Name, out.Err)
				}
				return nil
			}
			log.Info(gctx, "Batch job finished",
				"job", job.Name,
				"final_value", out.Result.FinalValue.StringFixed(2),
				"fills", len(out.Result.Fills),
				"duration_ms", out.Duration.Milliseconds(),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, ctx.Err()
}

func runOne(ctx context.Context, job Job) (*types.RunResult, error) {
	seq, err := job.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("build: %w", err)
	}
	return seq.Run(ctx)
}
