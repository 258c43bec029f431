package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/protocol"
)

type Reason string

const (
	ReasonInit    Reason = "init"
	ReasonRound   Reason = "round"
	ReasonNext    Reason = "next"
	ReasonPrev    Reason = "prev"
	ReasonGoto    Reason = "goto"
	ReasonBan     Reason = "ban"
	ReasonReset   Reason = "reset"
	ReasonFilter  Reason = "filter"
	ReasonCatalog Reason = "catalog"
	ReasonFailure Reason = "failure"
)

// step moves to the next candidate in direction dir. Unless force is set, a
// request inside the guard window is dropped.
func (s *service) step(ctx context.Context, dir int, reason Reason, force bool) error {
	if s.stopped() {
		return ErrEmptyRotation
	}

	now := s.clock.Now()
	if !force && s.guarded() {
		s.logger.DebugContext(ctx, "switch dropped", "reason", reason)
		return ErrSwitchGuarded
	}

	failures, err := s.tracker.Snapshot(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read cooldowns, selecting without them", "error", err)
	}

	skipCooling := reason == ReasonFailure || s.state.Autoskip
	if cam, ok := s.current(); ok && s.failNote != nil && s.failNote.ID == cam.ID {
		skipCooling = true
	}

	idx, fellBack := SelectCandidate(s.rotation.Len(), s.state.Index, dir, func(i int) bool {
		return skipCooling && failures.CoolingDown(s.rotation.Cams[i].ID, now)
	})
	if fellBack {
		s.logger.WarnContext(ctx, "every candidate is cooling down, using plain neighbour")
	}

	s.fellBack = fellBack
	s.switchTo(ctx, idx, reason, true)
	return nil
}

// jump switches to idx directly, without candidate selection.
func (s *service) jump(ctx context.Context, idx int, reason Reason, reset bool) {
	s.fellBack = false
	s.switchTo(ctx, idx, reason, reset)
}

// switchTo makes idx the current cam and starts a fresh round on it.
func (s *service) switchTo(ctx context.Context, idx int, reason Reason, reset bool) {
	now := s.clock.Now()
	cam := s.rotation.Cams[idx]

	s.state.Index = idx
	s.state = StartRound(s.state, cam.Round(Minutes(s.state.Mins)), now)
	s.guardUntil = now.Add(s.cfg.SwitchGuard)
	s.seq++
	s.inflight = nil
	s.pending = nil
	s.errorNote = ""
	if reason != ReasonFailure {
		s.failNote = nil
	}

	s.load(ctx, cam)
	s.metrics.IncSwitches(string(reason))
	s.logger.InfoContext(ctx, "switched cam", "cam_id", cam.ID, "idx", idx, "reason", reason, "seq", s.seq)

	s.persist(ctx)
	s.publish(ctx, reset)
}

// reload hands the current load to deliver under the same seq and rearms the
// watchdog once it is delivered, unless this load already failed.
func (s *service) reload(ctx context.Context, deliver func(protocol.Load) error) error {
	cam, ok := s.current()
	if !ok {
		return ErrEmptyRotation
	}

	if err := deliver(s.loadFor(cam)); err != nil {
		return fmt.Errorf("failed to deliver load: %w", err)
	}

	if s.failedSeq != s.seq {
		s.arm(cam)
	}
	s.logger.DebugContext(ctx, "load resent", "cam_id", cam.ID, "seq", s.seq)

	return nil
}

func (s *service) loadFor(cam catalog.Cam) protocol.Load {
	return protocol.Load{
		Seq: s.seq,
		Cam: cam.LoadInfo(),
		Fit: s.state.Fit,
	}
}

func (s *service) load(ctx context.Context, cam catalog.Cam) {
	n, err := s.renderer.Load(ctx, s.loadFor(cam))
	if err != nil {
		s.logger.WarnContext(ctx, "failed to deliver load", "cam_id", cam.ID, "error", err)
	}
	if n == 0 {
		return
	}

	s.arm(cam)
}

// arm starts the watchdog for the current load of cam, if its kind has one.
func (s *service) arm(cam catalog.Cam) {
	wd := s.watchdogFor(cam.Kind)
	if wd.reason == "" || wd.after <= 0 {
		s.inflight = nil
		return
	}

	s.inflight = &inflight{
		seq:      s.seq,
		camID:    cam.ID,
		deadline: s.clock.Now().Add(wd.after),
		reason:   wd.reason,
	}
}

type watchdog struct {
	after  time.Duration
	reason protocol.FailureReason
}

func (s *service) watchdogFor(kind catalog.Kind) watchdog {
	switch kind {
	case catalog.KindYouTube:
		return watchdog{after: s.cfg.WatchdogYouTube, reason: protocol.ReasonYTTimeout}
	case catalog.KindHLS:
		return watchdog{after: s.cfg.WatchdogHLS, reason: protocol.ReasonHLSStartTimeout}
	}

	return watchdog{}
}
