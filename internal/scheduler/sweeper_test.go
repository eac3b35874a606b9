package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSweeper_RunOnce(t *testing.T) {
	s := New("@every 1h", zap.NewNop())
	var order []string
	s.Add("listings", func(context.Context) int { order = append(order, "listings"); return 3 })
	s.Add("catalog", func(context.Context) int { order = append(order, "catalog"); return 0 })

	removed := s.RunOnce(context.Background())
	assert.Equal(t, map[string]int{"listings": 3, "catalog": 0}, removed)
	assert.Equal(t, []string{"catalog", "listings"}, order)
}

func TestSweeper_RunOnceStopsOnCancelledContext(t *testing.T) {
	s := New("@every 1h", zap.NewNop())
	var calls atomic.Int32
	s.Add("listings", func(context.Context) int { calls.Add(1); return 0 })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, s.RunOnce(ctx))
	assert.Zero(t, calls.Load())
}

func TestSweeper_StartRunsOnSchedule(t *testing.T) {
	s := New("@every 1s", zap.NewNop())
	var calls atomic.Int32
	s.Add("listings", func(context.Context) int { calls.Add(1); return 1 })

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestSweeper_InvalidSpec(t *testing.T) {
	s := New("every now and then", zap.NewNop())
	assert.Error(t, s.Start(context.Background()))
}
