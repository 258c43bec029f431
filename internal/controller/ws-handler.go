package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/connection"
	"github.com/sharetube/camwall/internal/service/receiver"
	"github.com/sharetube/camwall/internal/service/scheduler"
	"github.com/sharetube/camwall/pkg/rest"
	"github.com/sharetube/camwall/pkg/validator"
)

var (
	ErrNotRenderer    = errors.New("only renderers may report media events")
	ErrCommandDropped = errors.New("command was not applied")
	ErrInvalidCommand = errors.New("invalid command")
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (c controller) connect(w http.ResponseWriter, r *http.Request) {
	roleParam := r.URL.Query().Get("role")
	if roleParam == "" {
		roleParam = string(connection.RoleObserver)
	}

	role, ok := connection.ParseRole(roleParam)
	if !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": fmt.Sprintf("unknown role %q", roleParam)})
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	client, err := c.display.Attach(conn, role)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to attach client", "error", err)
		return
	}
	defer c.disconnect(r.Context(), conn)

	ctx := context.WithValue(r.Context(), clientCtxKey, client)
	c.logger.InfoContext(ctx, "client connected", "client_id", client.ID, "role", client.Role)

	c.greet(ctx, conn, role)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "client disconnected", "client_id", client.ID, "error", err)
	}
}

// greet sends the latest snapshot and, to a renderer, the current load. Other
// clients are not written to.
func (c controller) greet(ctx context.Context, conn *websocket.Conn, role connection.Role) {
	if st, ok := c.publisher.Last(); ok {
		data, err := protocol.EncodeState(st)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to encode state", "error", err)
		} else if err := c.display.SendTo(conn, data); err != nil {
			c.logger.DebugContext(ctx, "failed to send state", "error", err)
		}
	}

	if role != connection.RoleRenderer {
		return
	}

	err := c.scheduler.Reload(ctx, func(l protocol.Load) error {
		data, err := protocol.EncodeLoad(l)
		if err != nil {
			return err
		}

		return c.display.SendTo(conn, data)
	})
	if err != nil && !errors.Is(err, scheduler.ErrEmptyRotation) {
		c.logger.WarnContext(ctx, "failed to send current cam", "error", err)
	}
}

func (c controller) disconnect(ctx context.Context, conn *websocket.Conn) {
	if err := c.display.Detach(conn); err != nil {
		c.logger.WarnContext(ctx, "failed to detach client", "error", err)
	}
}

// reportError tells the sender why its message was not handled.
func (c controller) reportError(ctx context.Context, conn *websocket.Conn, err error) {
	c.logger.DebugContext(ctx, "failed to handle websocket message", "error", err)

	data, mErr := json.Marshal(&Output{Type: "error", Payload: err.Error()})
	if mErr != nil {
		return
	}

	if err := c.display.SendTo(conn, data); err != nil {
		c.logger.DebugContext(ctx, "failed to send error", "error", err)
	}
}

type emptyInput struct {
	Type string `json:"type"`
}

func (c controller) handleAlive(_ context.Context, _ *websocket.Conn, _ emptyInput) error {
	return nil
}

func (c controller) handleCommand(ctx context.Context, _ *websocket.Conn, input commandInput) error {
	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, validator.Join(validationErrors))
	}

	cmd, err := c.buildCommand(input)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}

	outcome, err := c.receiver.Accept(ctx, httpChannel, cmd)
	if err != nil {
		return fmt.Errorf("failed to apply command: %w", err)
	}

	if outcome != receiver.OutcomeApplied {
		return fmt.Errorf("%w: %s", ErrCommandDropped, outcome)
	}

	return nil
}

type mediaInput struct {
	Type    string               `json:"type"`
	Payload protocol.MediaReport `json:"payload"`
}

func (c controller) handleMedia(ctx context.Context, _ *websocket.Conn, input mediaInput) error {
	if c.getClientFromCtx(ctx).Role != connection.RoleRenderer {
		return ErrNotRenderer
	}

	err := c.scheduler.Report(ctx, input.Payload)
	if errors.Is(err, scheduler.ErrStaleReport) {
		c.logger.DebugContext(ctx, "ignoring stale media report", "seq", input.Payload.Seq)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to report media event: %w", err)
	}

	return nil
}
