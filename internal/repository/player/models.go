package player

import "time"

// Player is the persisted subset of playback state restored after a restart.
type Player struct {
	CamID        string  `json:"camId"`
	Index        int     `json:"idx"`
	Mins         float64 `json:"mins"`
	Fit          string  `json:"fit"`
	HUDHidden    bool    `json:"hudHidden"`
	HUDCollapsed bool    `json:"hudCollapsed"`
	Autoskip     bool    `json:"autoskip"`
	AdFree       bool    `json:"adfree"`
	Seed         uint64  `json:"seed"`
}

type SetFailureParams struct {
	CamID string
	Until time.Time
}

// Raw is a value read from one of the mirrored keys.
type Raw struct {
	Key    string
	Legacy bool
	Value  []byte
}
