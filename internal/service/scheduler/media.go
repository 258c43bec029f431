package scheduler

import (
	"context"
	"fmt"

	"github.com/sharetube/camwall/internal/catalog"
	"github.com/sharetube/camwall/internal/protocol"
)

func (s *service) report(ctx context.Context, r protocol.MediaReport) error {
	if err := r.Validate(); err != nil {
		return err
	}

	if r.Seq != s.seq {
		s.logger.DebugContext(ctx, "stale media report", "seq", r.Seq, "current", s.seq)
		return fmt.Errorf("%w: seq %d, current %d", ErrStaleReport, r.Seq, s.seq)
	}

	cam, ok := s.current()
	if !ok {
		return ErrEmptyRotation
	}

	switch r.Event {
	case protocol.MediaReady:
		if s.pending != nil {
			return nil
		}
		s.inflight = nil
		if s.failNote != nil {
			s.failNote = nil
			s.publish(ctx, false)
		}
		return nil
	case protocol.MediaError:
		if s.failedSeq == s.seq {
			return nil
		}
		s.inflight = nil
		s.fail(ctx, cam, r.Reason)
	}

	return nil
}

// fail handles a failure of the current load. invalid_cam skips at once without
// a cooldown; other reasons mark a cooldown and, with autoskip, schedule a skip
// after the failure delay.
func (s *service) fail(ctx context.Context, cam catalog.Cam, reason protocol.FailureReason) {
	s.failedSeq = s.seq
	s.failNote = &protocol.Failure{ID: cam.ID, Reason: reason}
	s.metrics.IncFailures(string(reason))
	s.logger.WarnContext(ctx, "cam failed", "cam_id", cam.ID, "reason", reason, "seq", s.seq)

	if reason == protocol.ReasonInvalidCam {
		_ = s.step(ctx, +1, ReasonFailure, true)
		return
	}

	if _, err := s.tracker.MarkFailed(ctx, cam.ID, s.cfg.CooldownMins); err != nil {
		s.logger.WarnContext(ctx, "failed to record cooldown", "cam_id", cam.ID, "error", err)
	}

	if s.state.Autoskip {
		s.pending = &pendingSkip{
			at:     s.clock.Now().Add(s.cfg.FailureDelay),
			seq:    s.seq,
			reason: reason,
		}
	}

	s.publish(ctx, false)
}

// tick drives everything time-based: watchdogs, delayed skips and round expiry.
func (s *service) tick(ctx context.Context) {
	if s.stopped() {
		return
	}

	now := s.clock.Now()

	if tok := s.inflight; tok != nil && tok.seq == s.seq && !now.Before(tok.deadline) {
		s.inflight = nil
		if cam, ok := s.current(); ok && cam.ID == tok.camID {
			s.logger.WarnContext(ctx, "load watchdog expired", "cam_id", cam.ID, "seq", tok.seq)
			s.fail(ctx, cam, tok.reason)
		}
	}

	if p := s.pending; p != nil && p.seq == s.seq && !now.Before(p.at) {
		s.pending = nil
		s.logger.InfoContext(ctx, "skipping failed cam", "reason", p.reason)
		_ = s.step(ctx, +1, ReasonFailure, true)
		return
	}

	if s.pending == nil && Expired(s.state, now) {
		_ = s.step(ctx, +1, ReasonRound, true)
	}
}
