package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/internal/service/cooldown"
	"github.com/sharetube/camwall/pkg/clock"
)

var (
	ErrSwitchGuarded = errors.New("switch dropped by guard window")
	ErrCamNotFound   = errors.New("cam not found in rotation")
	ErrEmptyRotation = errors.New("rotation is empty")
	ErrStaleReport   = errors.New("media report for a previous load")
	ErrStopped       = errors.New("scheduler stopped")
)

type iTracker interface {
	MarkFailed(ctx context.Context, camID string, minutes float64) (time.Time, error)
	Snapshot(ctx context.Context) (cooldown.Failures, error)
	Reset(ctx context.Context) error
}

type iPlayerRepo interface {
	GetBans(context.Context) ([]string, error)
	AddBan(ctx context.Context, camID string) error
	ClearBans(context.Context) error
	GetPlayer(context.Context) (player.Player, error)
	SetPlayer(context.Context, *player.Player) error
	ClearPlayer(context.Context) error
}

type iPublisher interface {
	Publish(context.Context, protocol.State) error
}

// iRenderer delivers load requests to attached renderers and returns how many received it.
type iRenderer interface {
	Load(context.Context, protocol.Load) (int, error)
}

type iMetrics interface {
	IncSwitches(reason string)
	IncFailures(reason string)
	SetRotationSize(n int)
}

type Params struct {
	Config    Config
	Tracker   iTracker
	Players   iPlayerRepo
	Publisher iPublisher
	Renderer  iRenderer
	Metrics   iMetrics
	Clock     clock.Clock
	Logger    *slog.Logger
}

// inflight guards one load with a watchdog. It is resolved at most once.
type inflight struct {
	seq      uint64
	camID    string
	deadline time.Time
	reason   protocol.FailureReason
}

type pendingSkip struct {
	at     time.Time
	seq    uint64
	reason protocol.FailureReason
}

type event struct {
	fn     func(context.Context) error
	result chan error
}

type service struct {
	cfg       Config
	tracker   iTracker
	players   iPlayerRepo
	publisher iPublisher
	renderer  iRenderer
	metrics   iMetrics
	clock     clock.Clock
	logger    *slog.Logger

	raw      []catalog.Cam
	rotation catalog.Rotation
	state    State

	seq        uint64
	guardUntil time.Time
	inflight   *inflight
	pending    *pendingSkip
	failedSeq  uint64
	failNote   *protocol.Failure
	fellBack   bool
	errorNote  string

	events chan event
	done   chan struct{}
}

func NewService(params *Params) *service {
	s := &service{
		cfg:       params.Config,
		tracker:   params.Tracker,
		players:   params.Players,
		publisher: params.Publisher,
		renderer:  params.Renderer,
		metrics:   params.Metrics,
		clock:     params.Clock,
		logger:    params.Logger,
		state:     params.Config.initial(),
		events:    make(chan event),
		done:      make(chan struct{}),
	}

	if s.renderer == nil {
		s.renderer = nopRenderer{}
	}
	if s.metrics == nil {
		s.metrics = nopMetrics{}
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Run owns the playback state until ctx is done. Every mutation after Init
// happens on this goroutine.
func (s *service) Run(ctx context.Context) error {
	defer close(s.done)

	tick := time.NewTicker(s.cfg.TickInterval)
	defer tick.Stop()
	heartbeat := time.NewTicker(s.cfg.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-s.events:
			ev.result <- ev.fn(ctx)
		case <-tick.C:
			s.tick(ctx)
		case <-heartbeat.C:
			s.publish(ctx, false)
		}
	}
}

func (s *service) do(ctx context.Context, fn func(context.Context) error) error {
	ev := event{fn: fn, result: make(chan error, 1)}
	select {
	case s.events <- ev:
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-ev.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Apply runs a command on the scheduler goroutine and returns its outcome.
func (s *service) Apply(ctx context.Context, cmd protocol.Command) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.apply(ctx, cmd)
	})
}

// Report hands a renderer media report to the scheduler goroutine.
func (s *service) Report(ctx context.Context, report protocol.MediaReport) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.report(ctx, report)
	})
}

// Reload passes the current load to deliver, for a renderer that attaches
// mid-round. Renderers that already play it are left alone.
func (s *service) Reload(ctx context.Context, deliver func(protocol.Load) error) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.reload(ctx, deliver)
	})
}

// UpdateCatalog replaces the raw catalog, keeping the current cam when it survives.
func (s *service) UpdateCatalog(ctx context.Context, cams []catalog.Cam) error {
	return s.do(ctx, func(ctx context.Context) error {
		return s.updateCatalog(ctx, cams)
	})
}

// Init restores persisted player state, builds the rotation and loads the first
// cam. It must be called before Run.
func (s *service) Init(ctx context.Context, cams []catalog.Cam) error {
	s.raw = cams

	target := ""
	p, err := s.players.GetPlayer(ctx)
	switch {
	case err == nil:
		s.restore(p)
		target = p.CamID
	case errors.Is(err, player.ErrPlayerNotFound):
	default:
		s.logger.WarnContext(ctx, "failed to restore player state", "error", err)
	}

	s.rebuild(ctx)
	if s.stopped() {
		s.stop(ctx)
		return nil
	}

	idx := s.rotation.IndexOf(target)
	if idx < 0 {
		idx = 0
		if err == nil && p.Index >= 0 && p.Index < s.rotation.Len() {
			idx = p.Index
		}
	}

	s.jump(ctx, idx, ReasonInit, false)
	return nil
}

func (s *service) restore(p player.Player) {
	if protocol.ValidMinutes(p.Mins) {
		s.state.Mins = p.Mins
	}
	if p.Fit != "" {
		s.state.Fit = p.Fit
	}
	s.state.HUDHidden = p.HUDHidden
	s.state.HUDCollapsed = p.HUDCollapsed
	s.state.Autoskip = p.Autoskip
	s.state.AdFree = p.AdFree
	s.state.Seed = p.Seed
}

func (s *service) stopped() bool {
	return s.rotation.Len() == 0
}

// guarded reports whether the last switch is still inside the guard window.
func (s *service) guarded() bool {
	return s.clock.Now().Before(s.guardUntil)
}

func (s *service) status() Status {
	switch {
	case s.stopped():
		return StatusStopped
	case s.guarded():
		return StatusSwitching
	case s.state.Playing:
		return StatusPlaying
	}

	return StatusPaused
}

func (s *service) current() (catalog.Cam, bool) {
	if s.stopped() || s.state.Index < 0 || s.state.Index >= s.rotation.Len() {
		return catalog.Cam{}, false
	}

	return s.rotation.Cams[s.state.Index], true
}

// rebuild derives the rotation from the raw catalog, bans and the current seed.
func (s *service) rebuild(ctx context.Context) {
	bans, err := s.players.GetBans(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read bans", "error", err)
	}

	rot := catalog.Filter(s.raw, catalog.FilterOptions{
		Banned: bans,
		AdFree: s.state.AdFree,
	})
	rot.Cams = catalog.Order(rot.Cams, s.state.Seed)
	if rot.Degraded {
		s.logger.WarnContext(ctx, "rotation degraded, filters ignored to keep cams playable", "cams", rot.Len())
	}

	s.rotation = rot
	s.metrics.SetRotationSize(rot.Len())
}

// relocate points the index at camID after a rebuild. It reports false when the cam is gone.
func (s *service) relocate(camID string) bool {
	idx := s.rotation.IndexOf(camID)
	if idx < 0 {
		return false
	}

	s.state.Index = idx
	return true
}

func (s *service) stop(ctx context.Context) {
	s.state.Index = -1
	s.inflight = nil
	s.pending = nil
	s.errorNote = protocol.ErrorNoPlayableSources
	s.logger.ErrorContext(ctx, "no playable sources")
	s.publish(ctx, false)
}

type nopRenderer struct{}

func (nopRenderer) Load(context.Context, protocol.Load) (int, error) {
	return 0, nil
}

type nopMetrics struct{}

func (nopMetrics) IncSwitches(string)  {}
func (nopMetrics) IncFailures(string)  {}
func (nopMetrics) SetRotationSize(int) {}
