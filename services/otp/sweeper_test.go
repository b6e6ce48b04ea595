package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tech-arch1tect/votegate/testutils"
)

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	clock := testutils.NewClock(testutils.FixedTime)
	observer := &recordingObserver{}
	sweeper := NewSweeper(store, clock, 5*time.Minute, "@every 1m", observer, nil)

	_, err := store.Create(ctx, 1, 5, "STALE1", clock.Now().Add(-6*time.Minute))
	require.NoError(t, err)
	_, err = store.Create(ctx, 2, 5, "LIVE01", clock.Now().Add(-4*time.Minute))
	require.NoError(t, err)

	deleted, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Equal(t, int64(1), observer.swept)

	clock.Advance(2 * time.Minute)
	deleted, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSweeper_StartStop(t *testing.T) {
	t.Run("rejects an invalid schedule", func(t *testing.T) {
		sweeper := NewSweeper(newTestStore(t), nil, time.Minute, "not a schedule", nil, nil)

		err := sweeper.Start()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid sweep schedule")
	})

	t.Run("starts and stops", func(t *testing.T) {
		sweeper := NewSweeper(newTestStore(t), nil, time.Minute, "@every 1h", nil, nil)

		require.NoError(t, sweeper.Start())
		require.NoError(t, sweeper.Start())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		assert.NoError(t, sweeper.Stop(ctx))
		assert.NoError(t, sweeper.Stop(ctx))
	})
}
