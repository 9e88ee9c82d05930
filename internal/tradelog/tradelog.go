package tradelog

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/types"
)

const (
	tradesFile  = "trades.jsonl"
	regimesFile = "regimes.jsonl"
)

// FileConfig places the JSON-lines files of one run.
type FileConfig struct {
	Dir string
	// Compress gzips both files on Close.
	Compress bool
}

// FileSink writes trade contexts and regime bars as JSON lines, one file
// each. Lines carry bar time only, so identical runs produce identical files.
type FileSink struct {
	cfg     FileConfig
	trades  *zap.Logger
	regimes *zap.Logger
	files   []*os.File
}

var (
	_ interfaces.TradeContextSink = (*FileSink)(nil)
	_ interfaces.RegimeSink       = (*FileSink)(nil)
)

func NewFileSink(cfg FileConfig) (*FileSink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("tradelog: empty directory")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, err
	}
	s := &FileSink{cfg: cfg}
	var err error
	if s.trades, err = s.open(tradesFile); err != nil {
		return nil, err
	}
	if s.regimes, err = s.open(regimesFile); err != nil {
		_ = s.closeFiles()
		return nil, err
	}
	return s, nil
}

func (s *FileSink) open(name string) (*zap.Logger, error) {
	f, err := os.OpenFile(filepath.Join(s.cfg.Dir, name), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	s.files = append(s.files, f)

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "event",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeTime:     zapcore.RFC3339NanoTimeEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(f), zap.InfoLevel)
	return zap.New(core), nil
}

func (s *FileSink) OnTradeContext(tc types.TradeContext) {
	s.trades.Info("trade_context",
		zap.Time("time", tc.Time),
		zap.String("symbol", tc.Symbol),
		zap.String("state_label", tc.StateLabel),
		zap.String("reason", tc.Reason),
		zap.Any("indicators", tc.Indicators),
		zap.Any("thresholds", tc.Thresholds),
	)
}

func (s *FileSink) OnRegimeBar(rb types.RegimeBar) {
	s.regimes.Info("regime_bar",
		zap.Time("time", rb.Time),
		zap.String("trend", rb.Regime.Trend),
		zap.String("vol", rb.Regime.Vol),
		zap.Int("cell_id", rb.Regime.CellID),
		zap.String("benchmark_close", rb.BenchmarkClose.String()),
		zap.String("portfolio_value", rb.PortfolioValue.String()),
	)
}

// Close flushes and closes both files, compressing them when configured.
func (s *FileSink) Close() error {
	_ = s.trades.Sync()
	_ = s.regimes.Sync()
	if err := s.closeFiles(); err != nil {
		return err
	}
	if !s.cfg.Compress {
		return nil
	}
	for _, name := range []string{tradesFile, regimesFile} {
		if err := gzipFile(filepath.Join(s.cfg.Dir, name)); err != nil {
			return fmt.Errorf("compress %s: %w", name, err)
		}
	}
	return nil
}

func (s *FileSink) closeFiles() error {
	var errs []error
	for _, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.files = nil
	return errors.Join(errs...)
}

// gzipFile replaces p with p.gz.
func gzipFile(p string) error {
	in, err := os.Open(p)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(p+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(p)
}

// Memory keeps everything it receives. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	trades  []types.TradeContext
	regimes []types.RegimeBar
}

var (
	_ interfaces.TradeContextSink = (*Memory)(nil)
	_ interfaces.RegimeSink       = (*Memory)(nil)
)

func (m *Memory) OnTradeContext(tc types.TradeContext) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, tc)
}

func (m *Memory) OnRegimeBar(rb types.RegimeBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regimes = append(m.regimes, rb)
}

func (m *Memory) TradeContexts() []types.TradeContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.TradeContext(nil), m.trades...)
}

func (m *Memory) RegimeBars() []types.RegimeBar {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.RegimeBar(nil), m.regimes...)
}

// Nop discards everything.
type Nop struct{}

func (Nop) OnTradeContext(types.TradeContext) {}
func (Nop) OnRegimeBar(types.RegimeBar)       {}
