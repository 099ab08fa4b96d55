package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"pds_backend/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type testJob struct {
	name  string
	err   error
	panic bool
	runs  atomic.Int32
}

func (j *testJob) Name() string { return j.name }

func (j *testJob) Run(context.Context) error {
	j.runs.Add(1)
	if j.panic {
		panic("boom")
	}
	return j.err
}

func TestRunCycle_RunsEveryJobAndCombinesFailures(t *testing.T) {
	ok := &testJob{name: "ok"}
	failing := &testJob{name: "failing", err: errors.New("db down")}
	panicking := &testJob{name: "panicking", panic: true}
	lock := &fakeLock{}
	svc := NewService(ServiceParams{
		Registry: NewRegistry(failing, ok, panicking),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.NewRegistry()),
	})

	err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Contains(t, err.Error(), "failing: db down")
	assert.Contains(t, err.Error(), "panicking: panic: boom")

	assert.EqualValues(t, 1, ok.runs.Load())
	assert.EqualValues(t, 1, failing.runs.Load())
	assert.EqualValues(t, 1, panicking.runs.Load())
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestRunCycle_SkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "job"}
	lock := &fakeLock{held: true}
	svc := NewService(ServiceParams{Registry: NewRegistry(job), Lock: lock})

	require.NoError(t, svc.RunCycle(context.Background()))
	assert.Zero(t, job.runs.Load())
	assert.Zero(t, lock.releases)
}

func TestRunCycle_LockError(t *testing.T) {
	job := &testJob{name: "job"}
	svc := NewService(ServiceParams{Registry: NewRegistry(job), Lock: &fakeLock{err: errors.New("redis down")}})

	err := svc.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock acquire")
	assert.Zero(t, job.runs.Load())
}

func TestRun_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	job := &testJob{name: "job"}
	svc := NewService(ServiceParams{Registry: NewRegistry(job), Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("service did not stop")
	}
}

func TestRegistry_IgnoresNil(t *testing.T) {
	r := NewRegistry(nil, &testJob{name: "a"})
	r.Register(nil)
	r.Register(&testJob{name: "b"})

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name())
	assert.Equal(t, "b", jobs[1].Name())
}
