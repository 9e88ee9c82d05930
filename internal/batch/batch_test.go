package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bar-backtester/internal/feed"
	"bar-backtester/internal/interfaces"
	"bar-backtester/internal/ledger"
	"bar-backtester/internal/sequencer"
	"bar-backtester/internal/strategy"
	"bar-backtester/internal/types"
)

func closes(n int) []types.Bar {
	start := time.Date(2024, 1, 1, 21, 0, 0, 0, time.UTC)
	var bars []types.Bar
	for i := 0; i < n; i++ {
		c := decimal.NewFromInt(int64(100 + (i*7)%23))
		bars = append(bars, types.Bar{Symbol: "SPY", Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1)})
	}
	return bars
}

func smaJob(fast, slow int, bars []types.Bar) Job {
	return Job{
		Name: fmt.Sprintf("sma_%d_%d", fast, slow),
		New: func(context.Context) (interfaces.Sequencer, error) {
			strat, err := strategy.NewSMACross(strategy.Config{}, strategy.SMACrossParams{Fast: fast, Slow: slow, Target: decimal.NewFromInt(1)})
			if err != nil {
				return nil, err
			}
			l := ledger.New(ledger.Params{InitialCash: decimal.NewFromInt(10000)})
			return sequencer.New(feed.NewMemory(bars), l, strat, sequencer.Config{})
		},
	}
}

func TestRunMatchesSequentialResults(t *testing.T) {
	bars := closes(80)
	jobs := []Job{smaJob(2, 5, bars), smaJob(3, 8, bars), smaJob(5, 13, bars), smaJob(8, 21, bars)}

	parallel, err := Run(context.Background(), jobs, Options{Concurrency: 4})
	require.NoError(t, err)
	serial, err := Run(context.Background(), jobs, Options{Concurrency: 1})
	require.NoError(t, err)

	require.Len(t, parallel, len(jobs))
	for i := range jobs {
		require.NoError(t, parallel[i].Err)
		assert.Equal(t, jobs[i].Name, parallel[i].Name)
		assert.Equal(t, serial[i].Result.Fills, parallel[i].Result.Fills)
		assert.True(t, serial[i].Result.FinalValue.Equal(parallel[i].Result.FinalValue))
	}
}

func TestFailuresStayLocal(t *testing.T) {
	bars := closes(30)
	bad := Job{Name: "bad", New: func(context.Context) (interfaces.Sequencer, error) {
		return nil, errors.New("no data")
	}}

	out, err := Run(context.Background(), []Job{bad, smaJob(2, 5, bars)}, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.ErrorContains(t, out[0].Err, "no data")
	assert.NoError(t, out[1].Err)
	assert.NotNil(t, out[1].Result)
}

func TestFailFastCancelsRemaining(t *testing.T) {
	var built atomic.Int32
	bad := Job{Name: "bad", New: func(context.Context) (interfaces.Sequencer, error) {
		built.Add(1)
		return nil, errors.New("no data")
	}}
	jobs := []Job{bad}
	for i := 0; i < 5; i++ {
		j := smaJob(2, 5, closes(30))
		inner := j.New
		j.New = func(ctx context.Context) (interfaces.Sequencer, error) {
			built.Add(1)
			return inner(ctx)
		}
		jobs = append(jobs, j)
	}

	out, err := Run(context.Background(), jobs, Options{Concurrency: 1, FailFast: true})
	require.Error(t, err)
	assert.ErrorContains(t, err, "job bad")
	assert.Equal(t, int32(1), built.Load())
	assert.ErrorIs(t, out[len(out)-1].Err, context.Canceled)
}
