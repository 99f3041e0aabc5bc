package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/taskflow/config"
	"github.com/example/taskflow/modules/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	mu    sync.Mutex
	calls []string
	errs  []error
	count int64
	block chan struct{}
}

func (f *fakeExpirer) ExpireOverdue(ctx context.Context, today string) (*task.ExpireOverdueResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, today)
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &task.ExpireOverdueResponse{Today: today, Updated: f.count}, nil
}

func (f *fakeExpirer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestModule(exp Expirer, interval time.Duration) *SweepModule {
	m := NewModule(config.SweepConfig{Enabled: true, Interval: interval, Timeout: time.Second})
	m.expirer = exp
	return m
}

func TestSweepModule_RunOnce(t *testing.T) {
	exp := &fakeExpirer{count: 3}
	m := newTestModule(exp, time.Hour)

	count, err := m.RunOnce(context.Background(), "2024-01-11")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
	assert.Equal(t, []string{"2024-01-11"}, exp.calls)

	health := m.Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Equal(t, int64(3), health.Details["last_count"])
	assert.Equal(t, 1, health.Details["runs"])
	assert.Contains(t, health.Details, "last_run")
}

func TestSweepModule_FailureIsRecordedAndNextPassRuns(t *testing.T) {
	exp := &fakeExpirer{count: 2, errs: []error{errors.New("database is locked")}}
	m := newTestModule(exp, time.Hour)

	_, err := m.RunOnce(context.Background(), "")
	require.Error(t, err)

	health := m.Health(context.Background())
	assert.True(t, health.Healthy)
	assert.Equal(t, "last pass failed", health.Message)
	assert.Equal(t, "database is locked", health.Details["last_error"])

	count, err := m.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NotContains(t, m.Health(context.Background()).Details, "last_error")
}

func TestSweepModule_StartRunsImmediatelyAndOnTick(t *testing.T) {
	exp := &fakeExpirer{errs: []error{errors.New("boom")}}
	m := newTestModule(exp, 20*time.Millisecond)

	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { m.Stop(context.Background()) })

	// The first pass fails; ticks keep coming regardless.
	assert.Eventually(t, func() bool { return exp.callCount() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestSweepModule_StopInterruptsPass(t *testing.T) {
	exp := &fakeExpirer{block: make(chan struct{})}
	m := newTestModule(exp, time.Hour)

	require.NoError(t, m.Start(context.Background()))
	assert.Eventually(t, func() bool { return exp.callCount() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Stop(ctx), "stop is idempotent")
}

func TestSweepModule_Disabled(t *testing.T) {
	exp := &fakeExpirer{}
	m := NewModule(config.SweepConfig{Enabled: false, Interval: time.Millisecond, Timeout: time.Second})
	m.expirer = exp

	require.NoError(t, m.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, exp.callCount())
	assert.NoError(t, m.Stop(context.Background()))
}

func TestSweepModule_StartRequiresTaskDependency(t *testing.T) {
	m := NewModule(config.SweepConfig{Enabled: true, Interval: time.Hour, Timeout: time.Second})
	assert.Error(t, m.Start(context.Background()))
}
