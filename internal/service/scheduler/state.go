package scheduler

import (
	"math"
	"time"
)

type Status string

const (
	StatusStopped   Status = "stopped"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusSwitching Status = "switching"
)

// State is the playback state owned by the scheduler. While Playing only
// Deadline is meaningful, otherwise only PausedRemaining is.
type State struct {
	Index           int
	Playing         bool
	Mins            float64
	Round           time.Duration
	Deadline        time.Time
	PausedRemaining time.Duration
	Autoskip        bool
	AdFree          bool
	Fit             string
	HUDHidden       bool
	HUDCollapsed    bool
	Seed            uint64
}

func Minutes(m float64) time.Duration {
	return time.Duration(m * float64(time.Minute))
}

// StartRound begins a round of the given length, keeping the play/pause mode.
func StartRound(s State, length time.Duration, now time.Time) State {
	s.Round = length
	if s.Playing {
		s.Deadline = now.Add(length)
		s.PausedRemaining = 0
	} else {
		s.Deadline = time.Time{}
		s.PausedRemaining = length
	}

	return s
}

func Pause(s State, now time.Time) State {
	if !s.Playing {
		return s
	}

	s.PausedRemaining = max(s.Deadline.Sub(now), 0)
	s.Deadline = time.Time{}
	s.Playing = false

	return s
}

func Resume(s State, now time.Time) State {
	if s.Playing {
		return s
	}

	s.Deadline = now.Add(s.PausedRemaining)
	s.PausedRemaining = 0
	s.Playing = true

	return s
}

func Remaining(s State, now time.Time) time.Duration {
	if s.Playing {
		return max(s.Deadline.Sub(now), 0)
	}

	return s.PausedRemaining
}

// RemainingSeconds rounds up so a fresh round reports its full length.
func RemainingSeconds(s State, now time.Time) int {
	return int(math.Ceil(Remaining(s, now).Seconds()))
}

func Expired(s State, now time.Time) bool {
	return s.Playing && !now.Before(s.Deadline)
}
