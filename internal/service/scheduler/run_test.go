package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/internal/repository/store/inmemory"
	"github.com/sharetube/camwall/internal/service/cooldown"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRunSerializesCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := DefaultConfig()
	cfg.SwitchGuard = 0
	cfg.TickInterval = 5 * time.Millisecond
	cfg.Heartbeat = 20 * time.Millisecond

	players := player.NewRepo(inmemory.NewRepo(), protocol.NewNamespace("camwall", ""))
	pub := &fakePublisher{}
	s := NewService(&Params{
		Config:    cfg,
		Tracker:   cooldown.NewTracker(players, clock.Real{}, slog.Default()),
		Players:   players,
		Publisher: pub,
		Clock:     clock.Real{},
		Logger:    slog.Default(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Init(ctx, []catalog.Cam{hls("A"), hls("B"), hls("C")}))

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	next, err := protocol.NewCommand(protocol.CmdNext, nil, 1)
	require.NoError(t, err)
	require.NoError(t, s.Apply(ctx, next))
	require.NoError(t, s.Apply(ctx, next))
	assert.Equal(t, "C", pub.last().CamID())

	assert.ErrorIs(t, s.Report(ctx, protocol.MediaReport{Event: protocol.MediaReady, Seq: 99}), ErrStaleReport)
	require.NoError(t, s.UpdateCatalog(ctx, []catalog.Cam{hls("C")}))
	assert.Equal(t, 1, pub.last().Total)

	assert.Eventually(t, func() bool {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.states) >= 8
	}, time.Second, 10*time.Millisecond, "heartbeat republishes")

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, s.Apply(context.Background(), next), ErrStopped)
}
