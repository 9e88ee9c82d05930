package seqobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtester/internal/logger"
	"bar-backtester/internal/trace"
	"bar-backtester/internal/types"
)

type stubSequencer struct {
	res *types.RunResult
	err error
}

func (s stubSequencer) Run(context.Context) (*types.RunResult, error) {
	return s.res, s.err
}

func TestWrapLogsCompletion(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LogConfig{Format: "json", Output: &buf})
	var spans bytes.Buffer
	tr, err := trace.New(trace.Config{Enabled: true, Output: &spans})
	require.NoError(t, err)

	seq := Wrap(stubSequencer{res: &types.RunResult{BarsProcessed: 3, FinalValue: decimal.NewFromInt(101)}}, "demo", log, tr)
	res, err := seq.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.BarsProcessed)

	out := buf.String()
	assert.Contains(t, out, `"msg":"Operation completed"`)
	assert.Contains(t, out, `"final_value":"101.00"`)
	assert.Contains(t, out, `"trace_id"`)

	require.NoError(t, tr.Shutdown(context.Background()))
	assert.Contains(t, spans.String(), "sequencer.Run")
}

func TestWrapLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.LogConfig{Format: "json", Output: &buf})

	seq := Wrap(stubSequencer{err: errors.New("strategy exploded")}, "demo", log, nil)
	res, err := seq.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, buf.String(), `"msg":"Operation failed"`)
	assert.Contains(t, buf.String(), "strategy exploded")
}
