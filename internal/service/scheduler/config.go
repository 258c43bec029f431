package scheduler

import "time"

type Config struct {
	Mins         float64
	Fit          string
	HUDHidden    bool
	Seed         uint64
	Autoskip     bool
	AdFree       bool
	CooldownMins float64

	WatchdogYouTube time.Duration
	WatchdogHLS     time.Duration
	SwitchGuard     time.Duration
	FailureDelay    time.Duration
	Heartbeat       time.Duration
	TickInterval    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Mins:            5,
		Fit:             "cover",
		Autoskip:        true,
		CooldownMins:    10,
		WatchdogYouTube: 15 * time.Second,
		WatchdogHLS:     20 * time.Second,
		SwitchGuard:     500 * time.Millisecond,
		FailureDelay:    800 * time.Millisecond,
		Heartbeat:       3 * time.Second,
		TickInterval:    250 * time.Millisecond,
	}
}

func (c Config) initial() State {
	return State{
		Index:     0,
		Playing:   true,
		Mins:      c.Mins,
		Autoskip:  c.Autoskip,
		AdFree:    c.AdFree,
		Fit:       c.Fit,
		HUDHidden: c.HUDHidden,
		Seed:      c.Seed,
	}
}

// resetState is where a reset command returns to: autoskip on and ad-free off
// whatever the configuration says.
func (c Config) resetState() State {
	s := c.initial()
	s.Autoskip = true
	s.AdFree = false

	return s
}
