package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gamedex/internal/domain"
)

type refresherFunc func(ctx context.Context) (*domain.RefreshStats, error)

func (f refresherFunc) Refresh(ctx context.Context) (*domain.RefreshStats, error) {
	return f(ctx)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestScheduler_RunsImmediatelyAndOnTick(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := refresherFunc(func(ctx context.Context) (*domain.RefreshStats, error) {
		if runs.Add(1) >= 3 {
			cancel()
		}
		return &domain.RefreshStats{}, nil
	})

	err := NewScheduler(refresher, 10*time.Millisecond, time.Second, testLogger()).Start(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_FailedRunDoesNotStopLoop(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	refresher := refresherFunc(func(ctx context.Context) (*domain.RefreshStats, error) {
		if runs.Add(1) >= 2 {
			cancel()
		}
		return nil, errors.New("request failed")
	})

	err := NewScheduler(refresher, 10*time.Millisecond, time.Second, testLogger()).Start(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestScheduler_EachRunHasDeadline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var deadline time.Duration
	refresher := refresherFunc(func(runCtx context.Context) (*domain.RefreshStats, error) {
		d, ok := runCtx.Deadline()
		require.True(t, ok)
		deadline = time.Until(d)
		cancel()
		return &domain.RefreshStats{}, nil
	})

	_ = NewScheduler(refresher, time.Hour, 2*time.Second, testLogger()).Start(ctx)

	assert.Greater(t, deadline, time.Duration(0))
	assert.LessOrEqual(t, deadline, 2*time.Second)
}
