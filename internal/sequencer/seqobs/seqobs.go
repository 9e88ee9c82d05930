package seqobs

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/trace"
	"bar-backtester/internal/types"
)

type observableSequencer struct {
	seq    interfaces.Sequencer
	name   string
	log    *logger.Logger
	tracer *trace.Tracer
}

var _ interfaces.Sequencer = (*observableSequencer)(nil)

// Wrap opens a span per run and logs its outcome. name labels the run in
// logs, usually the config file or strategy name.
func Wrap(seq interfaces.Sequencer, name string, log *logger.Logger, tracer *trace.Tracer) interfaces.Sequencer {
	if log == nil {
		log = logger.Nop()
	}
	if tracer == nil {
		tracer = trace.Nop()
	}
	return &observableSequencer{seq: seq, name: name, log: log, tracer: tracer}
}

func (so *observableSequencer) Run(ctx context.Context) (*types.RunResult, error) {
	runID := uuid.NewString()
	ctx, span := so.tracer.StartSpan(ctx, "sequencer.Run",
		oteltrace.WithAttributes(
			attribute.String("run.name", so.name),
			attribute.String("run.id", runID),
		),
	)
	defer span.End()

	timer := so.log.With("run_id", runID).StartOperation(ctx, "backtest_run", "run", so.name)

	res, err := so.seq.Run(ctx)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	timer.End(
		"bars", res.BarsProcessed,
		"rejected_bars", res.RejectedBars,
		"fills", len(res.Fills),
		"rejections", len(res.Rejections),
		"snapshots", len(res.Snapshots),
		"final_value", res.FinalValue.StringFixed(2),
	)
	return res, nil
}
