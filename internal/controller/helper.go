package controller

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sharetube/camwall/internal/protocol"
)

// httpChannel tags commands arriving over HTTP and websocket. It is treated as a
// legacy channel, so a configured secret must be carried in the command key.
var httpChannel = protocol.Channel{Name: "ws", Legacy: true}

func (c controller) generateTimeBasedId() string {
	return uuid.Must(uuid.NewV7()).String()
}

// commandInput is the command body shared by POST /cmd and websocket "cmd" messages.
type commandInput struct {
	Type    string          `json:"type" validate:"omitempty,eq=cmd"`
	Cmd     string          `json:"cmd" validate:"required"`
	Payload json.RawMessage `json:"payload"`
	TS      int64           `json:"ts" validate:"gte=0"`
	Key     string          `json:"key"`
}

func (c controller) buildCommand(input commandInput) (protocol.Command, error) {
	kind, err := protocol.ParseCommandKind(strings.ToLower(input.Cmd))
	if err != nil {
		return protocol.Command{}, err
	}

	var payload any
	if len(input.Payload) > 0 {
		payload = input.Payload
	}

	ts := input.TS
	if ts == 0 {
		ts = c.receiver.NextTS()
	}

	cmd, err := protocol.NewCommand(kind, payload, ts)
	if err != nil {
		return protocol.Command{}, fmt.Errorf("failed to build command: %w", err)
	}
	cmd.Key = input.Key

	return cmd, nil
}
