package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/grafana/pyroscope-go"
	"github.com/joho/godotenv"

	"bar-backtester/internal/eod"
	"bar-backtester/internal/feed"
	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/ledger"
	"bar-backtester/internal/ledger/ledgerobs"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/sequencer"
	"bar-backtester/internal/sequencer/seqobs"
	"bar-backtester/internal/store"
	"bar-backtester/internal/strategy"
	"bar-backtester/internal/trace"
	"bar-backtester/internal/tradelog"
	"bar-backtester/internal/types"
)

// initializeSystem builds the logger and tracer from the first config of
// the invocation.
func initializeSystem(cfg *store.Config) (*logger.Logger, *trace.Tracer) {
	log := logger.New(cfg.Logging)

	tr, err := trace.New(cfg.Tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
		tr = trace.Nop()
	}
	return log, tr
}

// loadConfigs reads every config up front so a typo fails before any run starts.
func loadConfigs(paths []string) ([]*store.Config, error) {
	_ = godotenv.Load()

	cfgs := make([]*store.Config, 0, len(paths))
	for _, p := range paths {
		cfg, err := store.LoadConfig(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, nil
}

// startProfiler starts pyroscope when an address was given.
func startProfiler(log *logger.Logger) (stop func(), err error) {
	if pyroscopeAddr == "" {
		return func() {}, nil
	}
	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: "bar-backtester",
		ServerAddress:   pyroscopeAddr,
		Logger:          pyroscopeLogger{log: log},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("pyroscope start failed: %w", err)
	}
	return func() { _ = profiler.Stop() }, nil
}

type pyroscopeLogger struct {
	log *logger.Logger
}

func (p pyroscopeLogger) Infof(format string, args ...any) {
	p.log.Debug(context.Background(), fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroscopeLogger) Debugf(format string, args ...any) {
	p.log.Debug(context.Background(), fmt.Sprintf(format, args...), "component", "pyroscope")
}

func (p pyroscopeLogger) Errorf(format string, args ...any) {
	p.log.Error(context.Background(), fmt.Sprintf(format, args...), "component", "pyroscope")
}

// loadBars reads the configured bar files and merges them into one stream.
func loadBars(cfg *store.Config) ([]types.Bar, error) {
	if cfg.Run.DataDir != "" {
		return feed.LoadDir(cfg.Run.DataDir, cfg.Location(), cfg.Run.Timeframe)
	}
	series := make([][]types.Bar, 0, len(cfg.Run.DataFiles))
	for _, p := range cfg.Run.DataFiles {
		sym := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		bars, err := feed.LoadCSV(p, feed.CSVOptions{Symbol: sym, Location: cfg.Location(), Timeframe: cfg.Run.Timeframe})
		if err != nil {
			return nil, err
		}
		series = append(series, bars)
	}
	return feed.Merge(series...), nil
}

// initializeLedger creates the ledger with observability middleware.
func initializeLedger(cfg *store.Config, log *logger.Logger, tr *trace.Tracer) interfaces.Ledger {
	ex := cfg.Execution
	l := ledger.New(ledger.Params{
		InitialCash: ex.InitialCash.Decimal,
		Slippage:    ex.Slippage.Decimal,
		Commission: ledger.Commission{
			PerShare: ex.CommissionPerShare.Decimal,
			Rate:     ex.CommissionRate.Decimal,
			Minimum:  ex.CommissionMin.Decimal,
		},
		MarginMultiplier: ex.MarginMultiplier.Decimal,
	})
	return ledgerobs.Wrap(l, log, tr)
}

func initializeStrategy(cfg *store.Config, history interfaces.HistoryFeed) (interfaces.Strategy, error) {
	sc := cfg.Strategy.SMACross
	return strategy.New(strategy.Spec{
		Name: cfg.Strategy.Name,
		SMACross: strategy.SMACrossParams{
			Fast:         sc.Fast,
			Slow:         sc.Slow,
			Target:       sc.Target.Decimal,
			AllowShort:   sc.AllowShort,
			ATRPeriod:    sc.ATRPeriod,
			ATRMultiple:  sc.ATRMultiple,
			VolWindow:    sc.VolWindow,
			VolThreshold: sc.VolThreshold,
		},
	}, strategy.Config{
		Symbols:      cfg.Strategy.Symbols,
		TradingStart: cfg.TradingStart(),
		TradingEnd:   cfg.TradingEnd(),
		Benchmark:    cfg.Run.Benchmark,
		Feed:         history,
		HistorySize:  cfg.Strategy.HistorySize,
	})
}

// configuredRun is one run built from a config. It owns the file sink and
// the report for that run.
type configuredRun struct {
	cfg  *store.Config
	seq  interfaces.Sequencer
	sink *tradelog.FileSink
	log  *logger.Logger
}

var _ interfaces.Sequencer = (*configuredRun)(nil)

// initializeRun wires feed, ledger, strategy, sinks and sequencer for cfg.
func initializeRun(cfg *store.Config, log *logger.Logger, tr *trace.Tracer) (*configuredRun, error) {
	bars, err := loadBars(cfg)
	if err != nil {
		return nil, err
	}
	mem := feed.NewMemory(bars)

	strat, err := initializeStrategy(cfg, mem)
	if err != nil {
		return nil, err
	}
	runLog := log.With("run", cfg.Run.Name)

	seqCfg := sequencer.Config{
		TradingStart: cfg.TradingStart(),
		TradingEnd:   cfg.TradingEnd(),
		Location:     cfg.Location(),
		Benchmark:    cfg.Run.Benchmark,
		Logger:       runLog,
	}
	var sink *tradelog.FileSink
	if cfg.Sinks.Dir != "" {
		sink, err = tradelog.NewFileSink(tradelog.FileConfig{Dir: cfg.Sinks.Dir, Compress: cfg.Sinks.Compress})
		if err != nil {
			return nil, err
		}
		seqCfg.TradeSink = sink
		seqCfg.RegimeSink = sink
	}

	seq, err := sequencer.New(mem, initializeLedger(cfg, runLog, tr), strat, seqCfg)
	if err != nil {
		if sink != nil {
			_ = sink.Close()
		}
		return nil, err
	}
	return &configuredRun{
		cfg:  cfg,
		seq:  seqobs.Wrap(seq, cfg.Run.Name, runLog, tr),
		sink: sink,
		log:  runLog,
	}, nil
}

// Run runs the sequencer, then closes the sink and writes the report.
func (r *configuredRun) Run(ctx context.Context) (*types.RunResult, error) {
	res, err := r.seq.Run(ctx)
	if r.sink != nil {
		if cerr := r.sink.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close sinks: %w", cerr))
		}
	}
	if err != nil {
		return nil, err
	}

	if r.cfg.Sinks.Report && r.cfg.Sinks.Dir != "" {
		paths, err := eod.WriteReport(r.cfg.Sinks.Dir, res)
		if err != nil {
			return nil, fmt.Errorf("write report: %w", err)
		}
		r.log.Info(ctx, "Report written", "files", paths)
	}
	return res, nil
}
