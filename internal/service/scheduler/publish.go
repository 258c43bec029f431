package scheduler

import (
	"context"

	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/player"
)

// snapshot projects the playback state for publishing.
func (s *service) snapshot(reset bool) protocol.State {
	now := s.clock.Now()
	st := protocol.State{
		Playing:      s.state.Playing,
		Index:        -1,
		Total:        s.rotation.Len(),
		Mins:         s.state.Mins,
		Fit:          s.state.Fit,
		HUDHidden:    s.state.HUDHidden,
		HUDCollapsed: s.state.HUDCollapsed,
		Autoskip:     s.state.Autoskip,
		AdFree:       s.state.AdFree,
		Seq:          s.seq,
		Skipping:     s.pending != nil,
		Error:        s.errorNote,
		Reset:        reset,
		Degraded:     s.rotation.Degraded || s.fellBack,
	}

	if cam, ok := s.current(); ok {
		info := cam.Info()
		st.Index = s.state.Index
		st.Cam = &info
		st.Remaining = RemainingSeconds(s.state, now)
	}

	if s.failNote != nil {
		fail := *s.failNote
		st.Fail = &fail
	}

	return st
}

func (s *service) publish(ctx context.Context, reset bool) {
	st := s.snapshot(reset)
	s.logger.DebugContext(ctx, "publishing state", "status", s.status(), "seq", st.Seq)
	if err := s.publisher.Publish(ctx, st); err != nil {
		s.logger.WarnContext(ctx, "failed to publish state", "error", err)
	}
}

func (s *service) persist(ctx context.Context) {
	p := player.Player{
		Index:        s.state.Index,
		Mins:         s.state.Mins,
		Fit:          s.state.Fit,
		HUDHidden:    s.state.HUDHidden,
		HUDCollapsed: s.state.HUDCollapsed,
		Autoskip:     s.state.Autoskip,
		AdFree:       s.state.AdFree,
		Seed:         s.state.Seed,
	}
	if cam, ok := s.current(); ok {
		p.CamID = cam.ID
	}

	if err := s.players.SetPlayer(ctx, &p); err != nil {
		s.logger.WarnContext(ctx, "failed to persist player state", "error", err)
	}
}
