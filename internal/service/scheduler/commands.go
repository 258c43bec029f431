package scheduler

import (
	"context"
	"fmt"

	"github.com/sharetube/camwall/internal/protocol"
)

func (s *service) apply(ctx context.Context, cmd protocol.Command) error {
	s.logger.DebugContext(ctx, "applying command", "cmd", cmd.Kind, "ts", cmd.TS)

	switch p := cmd.Payload.(type) {
	case protocol.NoPayload:
		return s.applySimple(ctx, cmd)
	case protocol.Minutes:
		return s.setMins(ctx, float64(p))
	case protocol.Fit:
		s.state.Fit = string(p)
		return s.settingsChanged(ctx)
	case protocol.Flag:
		return s.applyFlag(ctx, cmd.Kind, bool(p))
	case protocol.CamRef:
		switch cmd.Kind {
		case protocol.CmdGoto:
			return s.gotoCam(ctx, string(p))
		case protocol.CmdBan:
			return s.ban(ctx, string(p))
		}
	}

	return fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, cmd.Kind)
}

func (s *service) applySimple(ctx context.Context, cmd protocol.Command) error {
	switch cmd.Kind {
	case protocol.CmdNext:
		return s.step(ctx, +1, ReasonNext, false)
	case protocol.CmdPrev:
		return s.step(ctx, -1, ReasonPrev, false)
	case protocol.CmdTogglePlay:
		if s.state.Playing {
			return s.pause(ctx)
		}
		return s.play(ctx)
	case protocol.CmdPlay:
		return s.play(ctx)
	case protocol.CmdPause:
		return s.pause(ctx)
	case protocol.CmdReshuffle:
		return s.reshuffle(ctx, uint64(cmd.TS))
	case protocol.CmdReset:
		return s.reset(ctx)
	}

	return fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, cmd.Kind)
}

func (s *service) applyFlag(ctx context.Context, kind protocol.CommandKind, on bool) error {
	switch kind {
	case protocol.CmdSetHUD:
		s.state.HUDHidden = !on
	case protocol.CmdSetHUDDetails:
		s.state.HUDCollapsed = !on
	case protocol.CmdSetAutoskip:
		s.state.Autoskip = on
	case protocol.CmdSetAdFree:
		return s.setAdFree(ctx, on)
	default:
		return fmt.Errorf("%w: %s", protocol.ErrUnknownCommand, kind)
	}

	return s.settingsChanged(ctx)
}

func (s *service) settingsChanged(ctx context.Context) error {
	s.persist(ctx)
	s.publish(ctx, false)
	return nil
}

func (s *service) play(ctx context.Context) error {
	if s.stopped() {
		return ErrEmptyRotation
	}

	s.state = Resume(s.state, s.clock.Now())
	return s.settingsChanged(ctx)
}

func (s *service) pause(ctx context.Context) error {
	if s.stopped() {
		return ErrEmptyRotation
	}

	s.state = Pause(s.state, s.clock.Now())
	return s.settingsChanged(ctx)
}

// setMins changes the global round length and restarts the current round with it.
func (s *service) setMins(ctx context.Context, mins float64) error {
	if !protocol.ValidMinutes(mins) {
		return fmt.Errorf("%w: %v minutes", protocol.ErrInvalidPayload, mins)
	}

	s.state.Mins = mins
	if cam, ok := s.current(); ok {
		s.state = StartRound(s.state, cam.Round(Minutes(mins)), s.clock.Now())
	}

	return s.settingsChanged(ctx)
}

// reshuffle reorders the rotation with a new seed, keeping the current cam.
func (s *service) reshuffle(ctx context.Context, seed uint64) error {
	if s.stopped() {
		return ErrEmptyRotation
	}

	cam, _ := s.current()
	s.state.Seed = seed
	s.rebuild(ctx)
	s.relocate(cam.ID)

	return s.settingsChanged(ctx)
}

// setAdFree toggles the ad-free filter. Inside the guard window it is dropped
// when it would move off the current cam.
func (s *service) setAdFree(ctx context.Context, on bool) error {
	prev, prevRotation := s.state.AdFree, s.rotation
	s.state.AdFree = on

	if s.guarded() {
		cam, ok := s.current()
		s.rebuild(ctx)
		if ok && s.rotation.IndexOf(cam.ID) < 0 {
			s.state.AdFree = prev
			s.rotation = prevRotation
			s.metrics.SetRotationSize(prevRotation.Len())
			return ErrSwitchGuarded
		}
	}

	return s.refilter(ctx, ReasonFilter)
}

// refilter rebuilds the rotation and, when the current cam was filtered out,
// lands on the cam now at its old position.
func (s *service) refilter(ctx context.Context, reason Reason) error {
	cam, hadCam := s.current()
	oldIndex := s.state.Index

	s.rebuild(ctx)
	if s.stopped() {
		s.stop(ctx)
		return nil
	}

	if hadCam && s.relocate(cam.ID) {
		return s.settingsChanged(ctx)
	}

	s.jump(ctx, max(oldIndex, 0)%s.rotation.Len(), reason, false)
	return nil
}

func (s *service) gotoCam(ctx context.Context, camID string) error {
	if s.stopped() {
		return ErrEmptyRotation
	}

	idx := s.rotation.IndexOf(camID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCamNotFound, camID)
	}

	if s.guarded() {
		return ErrSwitchGuarded
	}

	s.jump(ctx, idx, ReasonGoto, false)
	return nil
}

// ban excludes camID, or the current cam when camID is empty, until reset.
// Banning the current cam is a switch and respects the guard window.
func (s *service) ban(ctx context.Context, camID string) error {
	cam, ok := s.current()
	if camID == "" {
		if !ok {
			return ErrEmptyRotation
		}
		camID = cam.ID
	}

	if ok && camID == cam.ID && s.guarded() {
		s.logger.DebugContext(ctx, "ban dropped", "cam_id", camID)
		return ErrSwitchGuarded
	}

	if err := s.players.AddBan(ctx, camID); err != nil {
		return fmt.Errorf("failed to ban cam: %w", err)
	}

	s.logger.InfoContext(ctx, "cam banned", "cam_id", camID)
	return s.refilter(ctx, ReasonBan)
}

// reset clears bans, cooldowns and persisted state and starts over from the defaults.
func (s *service) reset(ctx context.Context) error {
	if err := s.tracker.Reset(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cooldowns", "error", err)
	}
	if err := s.players.ClearBans(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear bans", "error", err)
	}
	if err := s.players.ClearPlayer(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to clear player state", "error", err)
	}

	s.state = s.cfg.resetState()
	s.guardUntil = s.clock.Now()
	s.failNote = nil
	s.failedSeq = 0

	s.rebuild(ctx)
	if s.stopped() {
		s.stop(ctx)
		return nil
	}

	s.logger.InfoContext(ctx, "scheduler reset")
	s.jump(ctx, 0, ReasonReset, true)
	return nil
}
