package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string    `yaml:"level"`    // DEBUG, INFO, WARN, ERROR
	Format          string    `yaml:"format"`   // json or text
	DetailedLogging bool      `yaml:"detailed"` // Enable debug logs with source
	Output          io.Writer `yaml:"-"`
}

// Logger is an explicit logging handle. Components receive one instead of
// reaching for process-wide state; the zero value is not usable, use Nop.
type Logger struct {
	base     *slog.Logger
	detailed bool
}

// New builds a logger from configuration.
func New(config LogConfig) *Logger {
	opts := &slog.HandlerOptions{
		Level:     parseLogLevel(config.Level),
		AddSource: false, // source is added by logWithTrace to skip wrapper frames
	}
	out := config.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(config.Format, "text") {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return &Logger{base: slog.New(handler), detailed: config.DetailedLogging}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{base: slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))}
}

// With returns a logger that always adds args.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{base: l.base.With(args...), detailed: l.detailed}
}

// parseLogLevel converts string log level to slog.Level
func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// getTraceAttrs extracts trace ID and span ID from context for logging
func getTraceAttrs(ctx context.Context) []any {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return []any{
		"trace_id", span.SpanContext().TraceID().String(),
		"span_id", span.SpanContext().SpanID().String(),
	}
}

// Debug logs a debug message. Only emitted when detailed logging is on.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	if !l.detailed {
		return
	}
	l.logWithTrace(ctx, slog.LevelDebug, msg, 2, args...)
}

// DebugSkip is Debug reporting the caller skip frames further up.
func (l *Logger) DebugSkip(ctx context.Context, skip int, msg string, args ...any) {
	if !l.detailed {
		return
	}
	l.logWithTrace(ctx, slog.LevelDebug, msg, 2+skip, args...)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.logWithTrace(ctx, slog.LevelInfo, msg, 2, args...)
}

func (l *Logger) InfoSkip(ctx context.Context, skip int, msg string, args ...any) {
	l.logWithTrace(ctx, slog.LevelInfo, msg, 2+skip, args...)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.logWithTrace(ctx, slog.LevelWarn, msg, 2, args...)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.logWithTrace(ctx, slog.LevelError, msg, 2, args...)
}

// ErrorWithErr logs an error message with an error object and marks the span failed.
func (l *Logger) ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	l.errorWithErr(ctx, 3, msg, err, args...)
}

func (l *Logger) ErrorWithErrSkip(ctx context.Context, skip int, msg string, err error, args ...any) {
	l.errorWithErr(ctx, 3+skip, msg, err, args...)
}

func (l *Logger) errorWithErr(ctx context.Context, skip int, msg string, err error, args ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	allArgs := append([]any{"error", err}, args...)
	l.logWithTrace(ctx, slog.LevelError, msg, skip, allArgs...)
}

// logWithTrace logs a message with trace ID and span ID if available.
// skip is the number of frames between runtime.Caller and the real caller.
func (l *Logger) logWithTrace(ctx context.Context, level slog.Level, msg string, skip int, args ...any) {
	if !l.base.Enabled(ctx, level) {
		return
	}
	if traceAttrs := getTraceAttrs(ctx); traceAttrs != nil {
		args = append(traceAttrs, args...)
	}

	if l.detailed {
		if pc, file, line, ok := runtime.Caller(skip); ok {
			if fn := runtime.FuncForPC(pc); fn != nil {
				args = append(args, "source", slog.GroupValue(
					slog.String("function", fn.Name()),
					slog.String("file", file),
					slog.Int("line", line),
				))
			}
		}
	}

	l.base.Log(ctx, level, msg, args...)
}

// OperationTimer measures an operation and closes its span
type OperationTimer struct {
	log    *Logger
	ctx    context.Context
	span   trace.Span
	start  time.Time
	fields []any
}

// StartOperation starts timing an operation. The span is taken from ctx,
// callers open it with trace.StartSpan first when they want one.
func (l *Logger) StartOperation(ctx context.Context, operation string, fields ...any) *OperationTimer {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.SetAttributes(toAttributes(fields)...)
	}
	l.Debug(ctx, "Operation started", append([]any{"operation", operation}, fields...)...)

	return &OperationTimer{
		log:    l,
		ctx:    ctx,
		span:   span,
		start:  time.Now(),
		fields: append([]any{"operation", operation}, fields...),
	}
}

// End completes the operation timer and logs the duration
func (ot *OperationTimer) End(additionalFields ...any) {
	duration := time.Since(ot.start)
	if ot.span.SpanContext().IsValid() {
		ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		ot.span.SetAttributes(toAttributes(additionalFields)...)
		ot.span.SetStatus(codes.Ok, "completed")
	}
	fields := append(ot.fields, "duration_ms", duration.Milliseconds())
	fields = append(fields, additionalFields...)
	ot.log.Info(ot.ctx, "Operation completed", fields...)
}

// EndWithError completes the operation timer with an error
func (ot *OperationTimer) EndWithError(err error, additionalFields ...any) {
	duration := time.Since(ot.start)
	if ot.span.SpanContext().IsValid() {
		ot.span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		ot.span.RecordError(err)
		ot.span.SetStatus(codes.Error, err.Error())
	}
	fields := append(ot.fields, "duration_ms", duration.Milliseconds(), "error", err)
	fields = append(fields, additionalFields...)
	ot.log.Error(ot.ctx, "Operation failed", fields...)
}

func toAttributes(fields []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		switch v := fields[i+1].(type) {
		case string:
			attrs = append(attrs, attribute.String(key, v))
		case int:
			attrs = append(attrs, attribute.Int(key, v))
		case int64:
			attrs = append(attrs, attribute.Int64(key, v))
		case float64:
			attrs = append(attrs, attribute.Float64(key, v))
		case bool:
			attrs = append(attrs, attribute.Bool(key, v))
		case interface{ String() string }:
			attrs = append(attrs, attribute.String(key, v.String()))
		}
	}
	return attrs
}

// Decision logs a strategy signal
func (l *Logger) Decision(ctx context.Context, symbol, action, reason string, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("trading_decision", trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("action", action),
			attribute.String("reason", reason),
		))
	}
	allFields := append([]any{
		"type", "DECISION",
		"symbol", symbol,
		"action", action,
		"reason", reason,
	}, fields...)
	l.logWithTrace(ctx, slog.LevelDebug, "Trading decision made", 2, allFields...)
}

// Trade logs a fill
func (l *Logger) Trade(ctx context.Context, symbol, side string, qty int64, price string, fillID string, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("trade_executed", trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("side", side),
			attribute.Int64("quantity", qty),
			attribute.String("price", price),
			attribute.String("fill_id", fillID),
		))
	}
	allFields := append([]any{
		"type", "TRADE",
		"symbol", symbol,
		"side", side,
		"quantity", qty,
		"price", price,
		"fill_id", fillID,
	}, fields...)
	l.logWithTrace(ctx, slog.LevelInfo, "Trade executed", 2, allFields...)
}

// Risk logs a risk management event such as a rejected order
func (l *Logger) Risk(ctx context.Context, symbol, eventType string, fields ...any) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent("risk_event", trace.WithAttributes(
			attribute.String("symbol", symbol),
			attribute.String("event_type", eventType),
		))
	}
	allFields := append([]any{
		"type", "RISK",
		"symbol", symbol,
		"event_type", eventType,
	}, fields...)
	l.logWithTrace(ctx, slog.LevelWarn, "Risk event", 2, allFields...)
}

// IsDebugEnabled returns whether debug logging is enabled
func (l *Logger) IsDebugEnabled() bool {
	return l.detailed
}
