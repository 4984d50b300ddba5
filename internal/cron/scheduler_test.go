package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/introcar/introcar-backend/pkg/logger"
	"github.com/introcar/introcar-backend/pkg/redis"
)

type fakeLock struct {
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.held = false
	f.released++
	return nil
}

type countingJob struct {
	name     string
	affected int64
	err      error
	runs     int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) (int64, error) {
	j.runs++
	return j.affected, j.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestSchedulerRunsEveryJobDespiteFailures(t *testing.T) {
	ok := &countingJob{name: "ok", affected: 3}
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	last := &countingJob{name: "last"}
	lock := &fakeLock{}

	s, err := NewScheduler(SchedulerConfig{
		Logger:   testLogger(),
		Registry: NewRegistry(ok, failing, nil, last),
		Lock:     lock,
		Interval: time.Minute,
	})
	require.NoError(t, err)

	ran, err := s.RunOnce(context.Background())
	assert.True(t, ran)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: boom")
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, last.runs)
	assert.Equal(t, 1, lock.released)
}

func TestSchedulerSkipsWhenLocked(t *testing.T) {
	job := &countingJob{name: "job"}
	s, err := NewScheduler(SchedulerConfig{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{held: true},
		Interval: time.Minute,
	})
	require.NoError(t, err)

	ran, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, job.runs)
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	job := &countingJob{name: "job"}
	s, err := NewScheduler(SchedulerConfig{
		Logger:   testLogger(),
		Registry: NewRegistry(job),
		Lock:     &fakeLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx), context.Canceled)
	assert.Equal(t, 1, job.runs)
}

func TestNewSchedulerValidates(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{Lock: &fakeLock{}, Interval: time.Minute})
	assert.Error(t, err)
	_, err = NewScheduler(SchedulerConfig{Logger: testLogger(), Interval: time.Minute})
	assert.Error(t, err)
	_, err = NewScheduler(SchedulerConfig{Logger: testLogger(), Lock: &fakeLock{}})
	assert.Error(t, err)
}

func TestRegistryReturnsCopy(t *testing.T) {
	a, b := &countingJob{name: "a"}, &countingJob{name: "b"}
	r := NewRegistry(a)
	r.Register(b)
	r.Register(nil)

	jobs := r.Jobs()
	require.Len(t, jobs, 2)
	jobs[0] = nil
	assert.Equal(t, Job(a), r.Jobs()[0])
}

type memoryLockStore struct {
	values map[string]string
}

func (m *memoryLockStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (m *memoryLockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockOwnership(t *testing.T) {
	store := &memoryLockStore{values: map[string]string{}}
	ctx := context.Background()
	first, err := NewRedisLock(store, "introcar:cron:lock", time.Minute)
	require.NoError(t, err)
	second, err := NewRedisLock(store, "introcar:cron:lock", time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "introcar:cron:lock", "non-owner must not release")

	// lock expired and was taken over
	store.values["introcar:cron:lock"] = "someone-else"
	require.NoError(t, first.Release(ctx))
	assert.Equal(t, "someone-else", store.values["introcar:cron:lock"])

	delete(store.values, "introcar:cron:lock")
	ok, err = first.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "introcar:cron:lock")
}
