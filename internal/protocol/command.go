package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed      = errors.New("malformed message")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidPayload = errors.New("invalid command payload")
)

const (
	TypeCommand = "cmd"
	TypeState   = "state"
	TypeLoad    = "load"
	TypeMedia   = "media"
)

type CommandKind string

const (
	CmdNext          CommandKind = "next"
	CmdPrev          CommandKind = "prev"
	CmdTogglePlay    CommandKind = "toggle_play"
	CmdPlay          CommandKind = "play"
	CmdPause         CommandKind = "pause"
	CmdReshuffle     CommandKind = "reshuffle"
	CmdSetMins       CommandKind = "set_mins"
	CmdSetFit        CommandKind = "set_fit"
	CmdSetHUD        CommandKind = "set_hud"
	CmdSetHUDDetails CommandKind = "set_hud_details"
	CmdSetAutoskip   CommandKind = "set_autoskip"
	CmdSetAdFree     CommandKind = "set_adfree"
	CmdGoto          CommandKind = "goto"
	CmdBan           CommandKind = "ban"
	CmdReset         CommandKind = "reset"
)

var CommandKinds = []CommandKind{
	CmdNext, CmdPrev, CmdTogglePlay, CmdPlay, CmdPause, CmdReshuffle, CmdSetMins, CmdSetFit,
	CmdSetHUD, CmdSetHUDDetails, CmdSetAutoskip, CmdSetAdFree, CmdGoto, CmdBan, CmdReset,
}

// Payload is the closed set of command payload shapes.
type Payload interface {
	isPayload()
}

// NoPayload is carried by commands that take no argument.
type NoPayload struct{}

// Minutes is the round length carried by set_mins.
type Minutes float64

// MaxMinutes bounds round lengths and cooldowns to one day.
const MaxMinutes = 24 * 60

// Fit is the opaque display-fit hint carried by set_fit.
type Fit string

// Flag is the boolean carried by set_hud, set_hud_details, set_autoskip and set_adfree.
type Flag bool

// CamRef names a cam for goto and ban. An empty ban reference means the current cam.
type CamRef string

func (NoPayload) isPayload() {}
func (Minutes) isPayload()   {}
func (Fit) isPayload()       {}
func (Flag) isPayload()      {}
func (CamRef) isPayload()    {}

type Command struct {
	Kind    CommandKind
	Payload Payload
	TS      int64
	Key     string
}

type wireCommand struct {
	Type    string          `json:"type"`
	Cmd     CommandKind     `json:"cmd"`
	Payload json.RawMessage `json:"payload,omitempty"`
	TS      int64           `json:"ts"`
	Key     string          `json:"key,omitempty"`
}

// NewCommand builds a command from a kind and a Go value for its payload.
func NewCommand(kind CommandKind, payload any, ts int64) (Command, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Command{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if payload == nil {
		raw = nil
	}

	p, err := decodePayload(kind, raw)
	if err != nil {
		return Command{}, err
	}

	return Command{Kind: kind, Payload: p, TS: ts}, nil
}

func ParseCommandKind(s string) (CommandKind, error) {
	kind := CommandKind(strings.TrimSpace(s))
	for _, k := range CommandKinds {
		if k == kind {
			return kind, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

func DecodeCommand(data []byte) (Command, error) {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if w.Type != TypeCommand {
		return Command{}, fmt.Errorf("%w: type %q is not %q", ErrMalformed, w.Type, TypeCommand)
	}

	if w.TS <= 0 {
		return Command{}, fmt.Errorf("%w: missing ts", ErrMalformed)
	}

	kind, err := ParseCommandKind(string(w.Cmd))
	if err != nil {
		return Command{}, err
	}

	p, err := decodePayload(kind, w.Payload)
	if err != nil {
		return Command{}, err
	}

	return Command{Kind: kind, Payload: p, TS: w.TS, Key: w.Key}, nil
}

func EncodeCommand(c Command) ([]byte, error) {
	w := wireCommand{
		Type: TypeCommand,
		Cmd:  c.Kind,
		TS:   c.TS,
		Key:  c.Key,
	}

	switch p := c.Payload.(type) {
	case nil, NoPayload:
	default:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		w.Payload = raw
	}

	return json.Marshal(w)
}

// ValidMinutes reports whether m is a usable round length.
func ValidMinutes(m float64) bool {
	return m > 0 && m <= MaxMinutes
}

func isEmpty(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodePayload(kind CommandKind, raw json.RawMessage) (Payload, error) {
	switch kind {
	case CmdNext, CmdPrev, CmdTogglePlay, CmdPlay, CmdPause, CmdReshuffle, CmdReset:
		return NoPayload{}, nil
	case CmdSetMins:
		var mins float64
		if isEmpty(raw) || json.Unmarshal(raw, &mins) != nil || !ValidMinutes(mins) {
			return nil, fmt.Errorf("%w: %s needs between 0 and %d minutes", ErrInvalidPayload, kind, MaxMinutes)
		}
		return Minutes(mins), nil
	case CmdSetFit:
		var fit string
		if isEmpty(raw) || json.Unmarshal(raw, &fit) != nil || strings.TrimSpace(fit) == "" {
			return nil, fmt.Errorf("%w: %s needs a fit string", ErrInvalidPayload, kind)
		}
		return Fit(strings.TrimSpace(fit)), nil
	case CmdSetHUD, CmdSetHUDDetails, CmdSetAutoskip, CmdSetAdFree:
		var flag bool
		if isEmpty(raw) || json.Unmarshal(raw, &flag) != nil {
			return nil, fmt.Errorf("%w: %s needs a boolean", ErrInvalidPayload, kind)
		}
		return Flag(flag), nil
	case CmdGoto:
		var id string
		if isEmpty(raw) || json.Unmarshal(raw, &id) != nil || strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("%w: %s needs a cam id", ErrInvalidPayload, kind)
		}
		return CamRef(strings.TrimSpace(id)), nil
	case CmdBan:
		if isEmpty(raw) {
			return CamRef(""), nil
		}
		var id string
		if json.Unmarshal(raw, &id) != nil {
			return nil, fmt.Errorf("%w: %s needs a cam id", ErrInvalidPayload, kind)
		}
		return CamRef(strings.TrimSpace(id)), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, kind)
}

// PeekType returns the "type" field of a raw message without decoding the rest.
func PeekType(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return env.Type, nil
}
