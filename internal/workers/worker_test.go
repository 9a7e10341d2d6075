package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// slowWorker demora mais que o próprio intervalo
type slowWorker struct {
	interval time.Duration
	work     time.Duration
	active   int32
	overlaps int32
	runs     int32
	err      error
}

func (w *slowWorker) Name() string            { return "slow" }
func (w *slowWorker) Interval() time.Duration { return w.interval }

func (w *slowWorker) Run(ctx context.Context) error {
	if atomic.AddInt32(&w.active, 1) > 1 {
		atomic.AddInt32(&w.overlaps, 1)
	}
	defer atomic.AddInt32(&w.active, -1)
	atomic.AddInt32(&w.runs, 1)

	select {
	case <-time.After(w.work):
	case <-ctx.Done():
	}
	return w.err
}

func TestManager_WorkerNeverOverlapsItself(t *testing.T) {
	w := &slowWorker{interval: 5 * time.Millisecond, work: 20 * time.Millisecond}
	m := NewManager(time.Second, zap.NewNop())
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	time.Sleep(120 * time.Millisecond)
	m.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(&w.runs), int32(2))
	assert.Zero(t, atomic.LoadInt32(&w.overlaps))
}

func TestManager_RunsImmediatelyAndRecordsStats(t *testing.T) {
	w := &slowWorker{interval: time.Hour, work: 0, err: errors.New("db down")}
	m := NewManager(time.Second, zap.NewNop())
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&w.runs) == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return m.Stats()[0].Runs == 1 }, time.Second, 5*time.Millisecond)
	m.Stop()

	stats := m.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "slow", stats[0].Name)
	assert.Equal(t, StateIdle, stats[0].State)
	assert.Equal(t, int64(1), stats[0].Failures)
	assert.Equal(t, "db down", stats[0].LastError)
}

func TestManager_StopWaitsForInFlightRun(t *testing.T) {
	w := &slowWorker{interval: time.Hour, work: time.Hour}
	m := NewManager(time.Hour, zap.NewNop())
	m.Register(w)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&w.active) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateRunning, m.Stats()[0].State)

	m.Stop()
	assert.Zero(t, atomic.LoadInt32(&w.active))
}

func TestManager_StartTwice(t *testing.T) {
	m := NewManager(time.Second, zap.NewNop())
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.ErrorIs(t, m.Start(context.Background()), ErrAlreadyStarted)
}
