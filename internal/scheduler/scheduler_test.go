package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSpec(t *testing.T) {
	assert.NoError(t, ValidateSpec("*/30 * * * *"))
	assert.NoError(t, ValidateSpec("0 * * * *"))
	assert.Error(t, ValidateSpec("every half hour"))
	assert.Error(t, ValidateSpec("* * *"))
}

func TestNew_RejectsBadSpec(t *testing.T) {
	_, err := New("61 * * * *", time.Second, func(context.Context) error { return nil }, discard())
	assert.Error(t, err)
}

func TestStart_RunsImmediately(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{}, 1)

	s, err := New("0 0 1 1 *", time.Second, func(ctx context.Context) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		runs.Add(1)
		done <- struct{}{}
		return nil
	}, discard())
	require.NoError(t, err)

	require.NoError(t, s.Start())
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run at start")
	}
	assert.Equal(t, int32(1), runs.Load())
}
