package cooldown

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/internal/repository/store/inmemory"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTracker(t *testing.T) (*Tracker, *clock.Manual) {
	t.Helper()

	c := clock.NewManual(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	repo := player.NewRepo(inmemory.NewRepo(), protocol.NewNamespace("camwall", "k"))

	return NewTracker(repo, c, slog.Default()), c
}

func TestCoolingDownWindow(t *testing.T) {
	tracker, c := newTracker(t)
	ctx := context.Background()

	cooling, err := tracker.IsCoolingDown(ctx, "a")
	require.NoError(t, err)
	assert.False(t, cooling)

	until, err := tracker.MarkFailed(ctx, "a", 2)
	require.NoError(t, err)
	assert.Equal(t, c.Now().Add(2*time.Minute), until)

	for _, step := range []time.Duration{0, time.Second, time.Minute, 58 * time.Second, 999 * time.Millisecond} {
		c.Advance(step)
		cooling, err := tracker.IsCoolingDown(ctx, "a")
		require.NoError(t, err)
		assert.True(t, cooling, "at %s", c.Now())
	}

	c.Advance(time.Millisecond)
	cooling, err = tracker.IsCoolingDown(ctx, "a")
	require.NoError(t, err)
	assert.False(t, cooling, "cooldown must end at until")
}

func TestMarkFailedLastWriteWins(t *testing.T) {
	tracker, c := newTracker(t)
	ctx := context.Background()

	_, err := tracker.MarkFailed(ctx, "a", 10)
	require.NoError(t, err)
	_, err = tracker.MarkFailed(ctx, "a", 1)
	require.NoError(t, err)

	c.Advance(90 * time.Second)
	cooling, err := tracker.IsCoolingDown(ctx, "a")
	require.NoError(t, err)
	assert.False(t, cooling)
}

func TestReset(t *testing.T) {
	tracker, _ := newTracker(t)
	ctx := context.Background()

	_, err := tracker.MarkFailed(ctx, "a", 10)
	require.NoError(t, err)
	require.NoError(t, tracker.Reset(ctx))

	failures, err := tracker.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestFailuresCoolingDown(t *testing.T) {
	now := time.Unix(100, 0)
	f := Failures{"a": now.Add(time.Second), "b": now}

	assert.True(t, f.CoolingDown("a", now))
	assert.False(t, f.CoolingDown("b", now))
	assert.False(t, f.CoolingDown("c", now))
}
