package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"aem-portal-sync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/ternarybob/arbor"
)

type countingRunner struct {
	runs atomic.Int32
	err  error
}

func (c *countingRunner) Run(ctx context.Context) (*models.SyncLog, error) {
	c.runs.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.SyncLog{Status: models.SyncSuccess}, nil
}

func (c *countingRunner) IsRunning() bool { return false }

func TestScheduler_RunsOnInterval(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewScheduler(runner, 20*time.Millisecond, false, arbor.NewLogger())

	scheduler.Start(context.Background())
	time.Sleep(110 * time.Millisecond)
	scheduler.Stop()

	count := runner.runs.Load()
	assert.GreaterOrEqual(t, count, int32(2))

	// No further runs after Stop.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, count, runner.runs.Load())
}

func TestScheduler_RunOnStart(t *testing.T) {
	runner := &countingRunner{}
	scheduler := NewScheduler(runner, time.Hour, true, arbor.NewLogger())

	scheduler.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	scheduler.Stop()

	assert.Equal(t, int32(1), runner.runs.Load())
}

func TestScheduler_SkipsWhileRunInFlight(t *testing.T) {
	runner := &countingRunner{err: ErrSyncInProgress}
	scheduler := NewScheduler(runner, 20*time.Millisecond, true, arbor.NewLogger())

	scheduler.Start(context.Background())
	time.Sleep(70 * time.Millisecond)
	scheduler.Stop()

	// Ticks still fire; each one is skipped without error.
	assert.GreaterOrEqual(t, runner.runs.Load(), int32(2))
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	scheduler := NewScheduler(runner, 20*time.Millisecond, false, arbor.NewLogger())

	scheduler.Start(ctx)
	cancel()
	time.Sleep(80 * time.Millisecond)

	count := runner.runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, count, runner.runs.Load())
}
