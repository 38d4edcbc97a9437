package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) CompleteDelivered(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Int(0), args.Error(1)
}

func TestCompletionJobRunDrainsBatches(t *testing.T) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-72 * time.Hour)
	c := new(mockCompleter)

	mock.InOrder(
		c.On("CompleteDelivered", mock.Anything, cutoff, 2).Return(2, nil).Once(),
		c.On("CompleteDelivered", mock.Anything, cutoff, 2).Return(1, nil).Once(),
	)

	job := NewCompletionJob(c, "@every 1m", 72*time.Hour, 2, time.Second, zap.NewNop(), nil)
	job.now = func() time.Time { return now }

	n, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	c.AssertExpectations(t)
}

func TestCompletionJobRunStopsOnError(t *testing.T) {
	c := new(mockCompleter)
	c.On("CompleteDelivered", mock.Anything, mock.Anything, 5).Return(0, errors.New("db down")).Once()

	job := NewCompletionJob(c, "@every 1m", time.Hour, 5, 0, zap.NewNop(), nil)

	_, err := job.Run(context.Background())
	assert.Error(t, err)
	c.AssertExpectations(t)
}

func TestCompletionJobBadSchedule(t *testing.T) {
	job := NewCompletionJob(new(mockCompleter), "every now and then", time.Hour, 5, 0, zap.NewNop(), nil)
	assert.Error(t, job.Start())
}

type fakeJob struct {
	startErr error
	started  bool
	stopped  bool
}

func (f *fakeJob) Start() error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started = true
	return nil
}

func (f *fakeJob) Stop() { f.stopped = true }

func TestJobManagerRollsBackOnStartFailure(t *testing.T) {
	first := &fakeJob{}
	second := &fakeJob{startErr: errors.New("bad schedule")}

	jm := NewJobManager(first, second)
	require.Error(t, jm.StartAll())
	assert.True(t, first.started)
	assert.True(t, first.stopped)
	assert.False(t, second.stopped)
}

func TestJobManagerStopAll(t *testing.T) {
	a, b := &fakeJob{}, &fakeJob{}
	jm := NewJobManager(a, b)
	require.NoError(t, jm.StartAll())

	jm.StopAll()
	assert.True(t, a.stopped)
	assert.True(t, b.stopped)
}
