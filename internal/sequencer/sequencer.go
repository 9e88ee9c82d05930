package sequencer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/ledger"
	"bar-backtester/internal/logger"
	"bar-backtester/internal/tradelog"
	"bar-backtester/internal/types"
)

var (
	ErrAlreadyRun = errors.New("sequencer: run already started")
	ErrOutOfOrder = errors.New("bar out of order")
)

// Config is everything a run needs besides its collaborators.
type Config struct {
	// TradingStart is the first instant signals may execute. Zero means
	// trading begins after the strategy's warm-up bars.
	TradingStart time.Time
	// TradingEnd is optional. Bars after it still update valuation and
	// strategy state but their signals are not executed.
	TradingEnd time.Time
	// Location defines trading dates for snapshots. Nil means UTC.
	Location *time.Location
	// Benchmark is the symbol whose latest price goes into regime records.
	Benchmark  string
	Logger     *logger.Logger
	TradeSink  interfaces.TradeContextSink
	RegimeSink interfaces.RegimeSink
}

// Sequencer drives one pass over a feed. It owns no account state; that
// is the ledger's.
type Sequencer struct {
	feed     interfaces.Feed
	ledger   interfaces.Ledger
	strategy interfaces.Strategy
	cfg      Config
	log      *logger.Logger

	// optional strategy capabilities, probed once in New
	indicators interfaces.IndicatorReporter
	regimes    interfaces.RegimeReporter

	started bool
}

var _ interfaces.Sequencer = (*Sequencer)(nil)

func New(feed interfaces.Feed, l interfaces.Ledger, strat interfaces.Strategy, cfg Config) (*Sequencer, error) {
	if feed == nil || l == nil || strat == nil {
		return nil, errors.New("sequencer: feed, ledger and strategy are required")
	}
	if !cfg.TradingEnd.IsZero() && cfg.TradingEnd.Before(cfg.TradingStart) {
		return nil, fmt.Errorf("sequencer: trading end %s before start %s",
			cfg.TradingEnd.Format(time.RFC3339), cfg.TradingStart.Format(time.RFC3339))
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.TradeSink == nil {
		cfg.TradeSink = tradelog.Nop{}
	}
	if cfg.RegimeSink == nil {
		cfg.RegimeSink = tradelog.Nop{}
	}

	s := &Sequencer{
		feed:     feed,
		ledger:   l,
		strategy: strat,
		cfg:      cfg,
		log:      cfg.Logger.With("strategy", strat.Name()),
	}
	if ir, ok := strat.(interfaces.IndicatorReporter); ok {
		s.indicators = ir
	}
	if rr, ok := strat.(interfaces.RegimeReporter); ok {
		s.regimes = rr
	}
	return s, nil
}

// runState is the per-run bookkeeping that is not account state.
type runState struct {
	clock  phaseClock
	result *types.RunResult
	warmup int

	hasLast    bool
	lastTime   time.Time
	lastSymbol string
	lastDate   time.Time
}

// Run consumes the feed to the end. A strategy error aborts the run and
// returns no result. Cancelling ctx stops the run between bars.
func (s *Sequencer) Run(ctx context.Context) (*types.RunResult, error) {
	if s.started {
		return nil, ErrAlreadyRun
	}
	s.started = true

	if err := s.strategy.OnInit(ctx); err != nil {
		return nil, fmt.Errorf("strategy %s init: %w", s.strategy.Name(), err)
	}

	warmup := s.strategy.RequiredWarmupBars()
	st := &runState{
		clock:  newPhaseClock(s.cfg.TradingStart, s.cfg.TradingEnd, warmup),
		result: &types.RunResult{},
		warmup: warmup,
	}
	s.log.Debug(ctx, "Run started",
		"trading_start", s.cfg.TradingStart,
		"trading_end", s.cfg.TradingEnd,
		"warmup_bars", st.warmup,
		"symbols", s.feed.Symbols(),
	)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bar, err := s.feed.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("feed: %w", err)
		}
		if err := s.step(ctx, st, bar); err != nil {
			return nil, err
		}
	}

	// No date change follows the last bar, so its date is flushed here.
	if st.hasLast {
		s.ledger.Snapshot(st.lastDate, st.lastTime, s.currentIndicators())
	}

	res := st.result
	res.Fills = s.ledger.Fills()
	res.Snapshots = s.ledger.DailySnapshots()
	res.EquityCurve = s.ledger.EquityCurve()
	res.FinalValue = s.ledger.PortfolioValue()
	if !st.clock.trading() {
		s.log.Warn(ctx, "Feed ended before trading start", "bars", res.BarsProcessed)
	}
	return res, nil
}

// step is the per-bar algorithm. Only strategy failures return an error.
func (s *Sequencer) step(ctx context.Context, st *runState, bar types.Bar) error {
	if err := s.admit(st, bar); err != nil {
		st.result.RejectedBars++
		s.log.Warn(ctx, "Bar rejected",
			"symbol", bar.Symbol,
			"time", bar.Time,
			"reason", err.Error(),
		)
		return nil
	}

	// Snapshot the previous date before this bar moves any price.
	date := types.TradingDate(bar.Time, s.cfg.Location)
	if st.hasLast && !date.Equal(st.lastDate) {
		s.ledger.Snapshot(st.lastDate, st.lastTime, s.currentIndicators())
	}

	s.ledger.UpdatePrices(map[string]decimal.Decimal{bar.Symbol: bar.Close})

	seen := st.result.BarsProcessed
	if st.clock.advance(bar.Time, seen) {
		st.result.FirstTradingBar = bar.Time
		fields := []any{"time", bar.Time, "bars_seen", seen}
		if seen < st.warmup {
			s.log.Warn(ctx, "Trading started before warm-up completed", append(fields, "warmup_bars", st.warmup)...)
		} else {
			s.log.Info(ctx, "Trading phase entered", fields...)
		}
	}

	s.strategy.Observe(bar, types.AccountView{
		Cash:           s.ledger.Cash(),
		PortfolioValue: s.ledger.PortfolioValue(),
		Positions:      s.ledger.Positions(),
	})
	if err := s.strategy.OnBar(ctx, bar); err != nil {
		return fmt.Errorf("strategy %s on %s bar at %s: %w",
			s.strategy.Name(), bar.Symbol, bar.Time.Format(time.RFC3339), err)
	}
	signals := s.strategy.PendingSignals()

	if st.clock.trading() {
		if err := s.execute(ctx, st, bar, signals); err != nil {
			return err
		}
		s.ledger.RecordEquity(bar.Time)
		s.pushRegime(bar)
	} else {
		st.result.WarmupSignals = append(st.result.WarmupSignals, signals...)
	}

	st.hasLast = true
	st.lastTime = bar.Time
	st.lastSymbol = bar.Symbol
	st.lastDate = date
	st.result.BarsProcessed++
	return nil
}

// admit rejects malformed bars and bars that break (time, symbol) order.
func (s *Sequencer) admit(st *runState, bar types.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}
	if !st.hasLast {
		return nil
	}
	if bar.Time.Before(st.lastTime) || (bar.Time.Equal(st.lastTime) && bar.Symbol <= st.lastSymbol) {
		return fmt.Errorf("%w: %s at %s after %s at %s", ErrOutOfOrder,
			bar.Symbol, bar.Time.Format(time.RFC3339), st.lastSymbol, st.lastTime.Format(time.RFC3339))
	}
	return nil
}

func (s *Sequencer) execute(ctx context.Context, st *runState, bar types.Bar, signals []types.Signal) error {
	if len(signals) == 0 {
		return nil
	}
	if st.clock.afterEnd(bar.Time) {
		s.log.Debug(ctx, "Signals after trading end dropped", "count", len(signals), "time", bar.Time)
		return nil
	}

	for _, sig := range signals {
		if sig.Time.IsZero() {
			sig.Time = bar.Time
		}
		s.log.Decision(ctx, sig.Symbol, string(sig.Direction), sig.Reason,
			"target_fraction", sig.TargetFraction.String(),
			"state", sig.StateLabel,
		)

		fill, err := s.ledger.Execute(ctx, sig, bar)
		if err != nil {
			var re *ledger.RejectionError
			if !errors.As(err, &re) {
				return fmt.Errorf("execute %s %s: %w", sig.Direction, sig.Symbol, err)
			}
			st.result.Rejections = append(st.result.Rejections, types.Rejection{
				Time:      bar.Time,
				Symbol:    sig.Symbol,
				Direction: sig.Direction,
				Quantity:  re.Order.Quantity,
				Reason:    ledger.RejectionReason(err),
			})
			continue
		}
		if fill == nil {
			continue
		}
		s.cfg.TradeSink.OnTradeContext(types.TradeContext{
			Time:       fill.Time,
			Symbol:     fill.Symbol,
			StateLabel: sig.StateLabel,
			Reason:     sig.Reason,
			Indicators: s.currentIndicators(),
			Thresholds: sig.Thresholds,
		})
	}
	return nil
}

func (s *Sequencer) pushRegime(bar types.Bar) {
	if s.regimes == nil {
		return
	}
	regime, ok := s.regimes.CurrentRegime()
	if !ok {
		return
	}
	var benchmark decimal.Decimal
	if s.cfg.Benchmark != "" {
		benchmark, _ = s.ledger.LatestPrice(s.cfg.Benchmark)
	}
	s.cfg.RegimeSink.OnRegimeBar(types.RegimeBar{
		Time:           bar.Time,
		Regime:         regime,
		BenchmarkClose: benchmark,
		PortfolioValue: s.ledger.PortfolioValue(),
	})
}

func (s *Sequencer) currentIndicators() map[string]float64 {
	if s.indicators == nil {
		return nil
	}
	return s.indicators.CurrentIndicatorValues()
}
