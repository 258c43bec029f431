package protocol

import (
	"encoding/json"
	"fmt"
)

// ErrorNoPlayableSources is published when no cam ever validated.
const ErrorNoPlayableSources = "no_playable_sources"

type CamInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Place     string `json:"place"`
	Source    string `json:"source"`
	OriginURL string `json:"originUrl"`
	Kind      string `json:"kind"`
}

type Failure struct {
	ID     string        `json:"id"`
	Reason FailureReason `json:"reason"`
}

// State is the snapshot published by the player. Index is -1 and Cam is nil when
// nothing is playable.
type State struct {
	Type         string   `json:"type"`
	TS           int64    `json:"ts"`
	Key          string   `json:"key,omitempty"`
	Playing      bool     `json:"playing"`
	Index        int      `json:"idx"`
	Total        int      `json:"total"`
	Mins         float64  `json:"mins"`
	Fit          string   `json:"fit"`
	HUDHidden    bool     `json:"hudHidden"`
	HUDCollapsed bool     `json:"hudCollapsed"`
	Autoskip     bool     `json:"autoskip"`
	AdFree       bool     `json:"adfree"`
	Cam          *CamInfo `json:"cam"`
	Remaining    int      `json:"remaining"`
	Seq          uint64   `json:"seq"`
	Skipping     bool     `json:"skipping,omitempty"`
	Error        string   `json:"error,omitempty"`
	Fail         *Failure `json:"fail,omitempty"`
	Reset        bool     `json:"reset,omitempty"`
	Degraded     bool     `json:"degraded,omitempty"`
}

// CamID returns the id of the cam in the snapshot or "" when there is none.
func (s State) CamID() string {
	if s.Cam == nil {
		return ""
	}

	return s.Cam.ID
}

// Public returns a copy without the shared secret, for readers outside the
// trusted channels.
func (s State) Public() State {
	s.Key = ""
	return s
}

func EncodeState(s State) ([]byte, error) {
	s.Type = TypeState
	return json.Marshal(s)
}

func DecodeState(data []byte) (State, error) {
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if s.Type != TypeState {
		return State{}, fmt.Errorf("%w: type %q is not %q", ErrMalformed, s.Type, TypeState)
	}

	return s, nil
}
