package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/internal/repository/store/inmemory"
	"github.com/sharetube/camwall/internal/service/cooldown"
	"github.com/sharetube/camwall/pkg/clock"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu     sync.Mutex
	states []protocol.State
}

func (f *fakePublisher) Publish(_ context.Context, st protocol.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.states = append(f.states, st)
	return nil
}

func (f *fakePublisher) last() protocol.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.states) == 0 {
		return protocol.State{}
	}
	return f.states[len(f.states)-1]
}

type fakeRenderer struct {
	attached int
	loads    []protocol.Load
}

func (f *fakeRenderer) Load(_ context.Context, l protocol.Load) (int, error) {
	f.loads = append(f.loads, l)
	return f.attached, nil
}

type harness struct {
	s       *service
	clock   *clock.Manual
	pub     *fakePublisher
	rend    *fakeRenderer
	players interface {
		GetBans(context.Context) ([]string, error)
		GetPlayer(context.Context) (player.Player, error)
		SetPlayer(context.Context, *player.Player) error
	}
	tracker *cooldown.Tracker
}

func hls(id string) catalog.Cam {
	return catalog.Cam{ID: id, Kind: catalog.KindHLS, URL: "https://example.com/" + id + ".m3u8"}
}

func yt(id string) catalog.Cam {
	return catalog.Cam{ID: id, Kind: catalog.KindYouTube, YouTubeID: "v-" + id}
}

func short(c catalog.Cam) catalog.Cam {
	c.MaxSeconds = 5
	return c
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()

	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	c := clock.NewManual(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	players := player.NewRepo(inmemory.NewRepo(), protocol.NewNamespace("camwall", "k"))
	tracker := cooldown.NewTracker(players, c, slog.Default())
	pub := &fakePublisher{}
	rend := &fakeRenderer{}

	s := NewService(&Params{
		Config:    cfg,
		Tracker:   tracker,
		Players:   players,
		Publisher: pub,
		Renderer:  rend,
		Clock:     c,
		Logger:    slog.Default(),
	})

	return &harness{s: s, clock: c, pub: pub, rend: rend, players: players, tracker: tracker}
}

func (h *harness) init(t *testing.T, cams ...catalog.Cam) {
	t.Helper()
	require.NoError(t, h.s.Init(context.Background(), cams))
}

func (h *harness) apply(t *testing.T, kind protocol.CommandKind, payload any) error {
	t.Helper()

	cmd, err := protocol.NewCommand(kind, payload, h.clock.Now().UnixMilli())
	require.NoError(t, err)

	return h.s.apply(context.Background(), cmd)
}

// settle moves past the guard window.
func (h *harness) settle() {
	h.clock.Advance(time.Second)
}

func (h *harness) tickAfter(d time.Duration) {
	h.clock.Advance(d)
	h.s.tick(context.Background())
}

func (h *harness) camID() string {
	return h.pub.last().CamID()
}
