package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"bar-backtester/internal/batch"
	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/store"
)

// summary is the per-run line printed to stdout.
type summary struct {
	Name            string    `json:"name"`
	InitialCash     string    `json:"initial_cash,omitempty"`
	FinalValue      string    `json:"final_value,omitempty"`
	ReturnPct       string    `json:"return_pct,omitempty"`
	Fills           int       `json:"fills"`
	Rejections      int       `json:"rejections"`
	Snapshots       int       `json:"snapshots"`
	BarsProcessed   int       `json:"bars_processed"`
	RejectedBars    int       `json:"rejected_bars"`
	FirstTradingBar time.Time `json:"first_trading_bar,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	Error           string    `json:"error,omitempty"`
}

// runBacktests loads every config, runs them through the batch runner and
// writes one JSON summary per run to out.
func runBacktests(ctx context.Context, out io.Writer, paths []string, failFast bool) error {
	cfgs, err := loadConfigs(paths)
	if err != nil {
		return err
	}
	log, tr := initializeSystem(cfgs[0])
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tr.Shutdown(shutdownCtx); err != nil {
			log.ErrorWithErr(shutdownCtx, "Tracer shutdown failed", err)
		}
	}()

	stopProfiler, err := startProfiler(log)
	if err != nil {
		return err
	}
	defer stopProfiler()

	jobs := make([]batch.Job, len(cfgs))
	for i, cfg := range cfgs {
		jobs[i] = batch.Job{
			Name: cfg.Run.Name,
			New: func(context.Context) (interfaces.Sequencer, error) {
				return initializeRun(cfg, log, tr)
			},
		}
	}

	outcomes, runErr := batch.Run(ctx, jobs, batch.Options{
		Concurrency: cfgs[0].Batch.Concurrency,
		FailFast:    failFast,
		Logger:      log,
	})

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	failed := 0
	for i, o := range outcomes {
		s := summarize(cfgs[i], o)
		if o.Err != nil {
			failed++
		}
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(outcomes))
	}
	return nil
}

func summarize(cfg *store.Config, o batch.Outcome) summary {
	s := summary{Name: o.Name, DurationMS: o.Duration.Milliseconds()}
	if o.Err != nil {
		s.Error = o.Err.Error()
		return s
	}
	res := o.Result
	initial := cfg.Execution.InitialCash.Decimal
	s.InitialCash = initial.StringFixed(2)
	s.FinalValue = res.FinalValue.StringFixed(2)
	if initial.IsPositive() {
		s.ReturnPct = res.FinalValue.Div(initial).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).StringFixed(2)
	}
	s.Fills = len(res.Fills)
	s.Rejections = len(res.Rejections)
	s.Snapshots = len(res.Snapshots)
	s.BarsProcessed = res.BarsProcessed
	s.RejectedBars = res.RejectedBars
	s.FirstTradingBar = res.FirstTradingBar
	return s
}
