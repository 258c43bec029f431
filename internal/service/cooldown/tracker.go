package cooldown

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sharetube/camwall/internal/repository/player"
	"github.com/sharetube/camwall/pkg/clock"
)

type iFailureRepo interface {
	GetFailures(ctx context.Context) (map[string]int64, error)
	SetFailure(ctx context.Context, params *player.SetFailureParams) error
	ClearFailures(ctx context.Context) error
}

// Tracker records per-cam cooldown windows in the Durable Store.
type Tracker struct {
	repo   iFailureRepo
	clock  clock.Clock
	logger *slog.Logger
}

func NewTracker(repo iFailureRepo, c clock.Clock, logger *slog.Logger) *Tracker {
	return &Tracker{
		repo:   repo,
		clock:  c,
		logger: logger,
	}
}

// MarkFailed puts camID on cooldown until now + minutes. Later calls overwrite earlier ones.
func (t Tracker) MarkFailed(ctx context.Context, camID string, minutes float64) (time.Time, error) {
	until := t.clock.Now().Add(time.Duration(minutes * float64(time.Minute)))
	if err := t.repo.SetFailure(ctx, &player.SetFailureParams{
		CamID: camID,
		Until: until,
	}); err != nil {
		return time.Time{}, fmt.Errorf("failed to mark cam failed: %w", err)
	}

	t.logger.DebugContext(ctx, "cam cooling down", "cam_id", camID, "until", until)
	return until, nil
}

func (t Tracker) IsCoolingDown(ctx context.Context, camID string) (bool, error) {
	failures, err := t.Snapshot(ctx)
	if err != nil {
		return false, err
	}

	return failures.CoolingDown(camID, t.clock.Now()), nil
}

// Snapshot reads the merged failure record once, for use across a whole selection.
func (t Tracker) Snapshot(ctx context.Context) (Failures, error) {
	raw, err := t.repo.GetFailures(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read failures: %w", err)
	}

	failures := make(Failures, len(raw))
	for id, ms := range raw {
		failures[id] = time.UnixMilli(ms)
	}

	return failures, nil
}

func (t Tracker) Reset(ctx context.Context) error {
	if err := t.repo.ClearFailures(ctx); err != nil {
		return fmt.Errorf("failed to reset cooldowns: %w", err)
	}

	return nil
}

// Failures maps cam ids to the end of their cooldown.
type Failures map[string]time.Time

func (f Failures) CoolingDown(camID string, now time.Time) bool {
	until, ok := f[camID]
	return ok && now.Before(until)
}
