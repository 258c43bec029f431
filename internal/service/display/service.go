package display

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharetube/camwall/internal/protocol"
	"github.com/sharetube/camwall/internal/repository/connection"
)

type iConnRepo interface {
	Add(*websocket.Conn, connection.Client) error
	RemoveByConn(*websocket.Conn) (connection.Client, error)
	List(roles ...connection.Role) []*websocket.Conn
	Count(connection.Role) int
	Write(conn *websocket.Conn, data []byte, timeout time.Duration) error
}

type iMetrics interface {
	SetClients(role string, n int)
}

// service fans snapshots out to websocket clients and load requests to renderers.
type service struct {
	conns        iConnRepo
	writeTimeout time.Duration
	metrics      iMetrics
	logger       *slog.Logger
}

func NewService(conns iConnRepo, writeTimeout time.Duration, metrics iMetrics, logger *slog.Logger) *service {
	return &service{
		conns:        conns,
		writeTimeout: writeTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

func (s service) Attach(conn *websocket.Conn, role connection.Role) (connection.Client, error) {
	client := connection.Client{ID: uuid.NewString(), Role: role}
	if err := s.conns.Add(conn, client); err != nil {
		return connection.Client{}, fmt.Errorf("failed to attach client: %w", err)
	}

	s.report(role)
	return client, nil
}

func (s service) Detach(conn *websocket.Conn) error {
	client, err := s.conns.RemoveByConn(conn)
	if err != nil {
		return fmt.Errorf("failed to detach client: %w", err)
	}

	s.report(client.Role)
	return nil
}

func (s service) Count(role connection.Role) int {
	return s.conns.Count(role)
}

func (s service) report(role connection.Role) {
	if s.metrics != nil {
		s.metrics.SetClients(string(role), s.conns.Count(role))
	}
}

// Load sends l to every renderer and returns how many received it.
func (s service) Load(ctx context.Context, l protocol.Load) (int, error) {
	data, err := protocol.EncodeLoad(l)
	if err != nil {
		return 0, fmt.Errorf("failed to encode load: %w", err)
	}

	return s.write(ctx, data, connection.RoleRenderer)
}

func (s service) Name() string {
	return "ws"
}

// SendTo writes payload to a single client.
func (s service) SendTo(conn *websocket.Conn, payload []byte) error {
	return s.conns.Write(conn, payload, s.writeTimeout)
}

// Send broadcasts a published snapshot to every client.
func (s service) Send(ctx context.Context, payload []byte) error {
	_, err := s.write(ctx, payload)
	return err
}

func (s service) write(ctx context.Context, data []byte, roles ...connection.Role) (int, error) {
	var errs []error
	sent := 0
	for _, conn := range s.conns.List(roles...) {
		if err := s.conns.Write(conn, data, s.writeTimeout); err != nil {
			s.logger.DebugContext(ctx, "failed to write to client", "error", err)
			errs = append(errs, err)
			continue
		}
		sent++
	}

	return sent, errors.Join(errs...)
}
