package scheduler_test

import (
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/central-university-dev/go-channel-poster/internal/bot/scheduler"
)

func TestGocronTimer_FiresOnce(t *testing.T) {
	timer := scheduler.NewGocronTimer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer timer.Stop()

	var calls int32

	require.NoError(t, timer.Arm("job-1", time.Now().Add(200*time.Millisecond), func() {
		atomic.AddInt32(&calls, 1)
	}))

	assert.Zero(t, atomic.LoadInt32(&calls))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&calls) == 1
	}, 5*time.Second, 20*time.Millisecond)

	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGocronTimer_PastDeadlineFiresImmediately(t *testing.T) {
	timer := scheduler.NewGocronTimer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer timer.Stop()

	fired := make(chan struct{})

	require.NoError(t, timer.Arm("job-2", time.Now().Add(-time.Hour), func() { close(fired) }))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("просроченная задача не выполнена")
	}
}
