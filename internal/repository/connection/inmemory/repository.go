package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/camwall/internal/repository/connection"
)

type entry struct {
	client connection.Client
	// websocket connections support one concurrent writer
	writeMu sync.Mutex
}

type repo struct {
	connList map[*websocket.Conn]*entry
	idList   map[string]*websocket.Conn
	mu       sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		connList: make(map[*websocket.Conn]*entry),
		idList:   make(map[string]*websocket.Conn),
	}
}

func (r *repo) Add(conn *websocket.Conn, client connection.Client) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "client_id", client.ID, "role", client.Role)
	if r.connList[conn] != nil || r.idList[client.ID] != nil {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = &entry{client: client}
	r.idList[client.ID] = conn

	return nil
}

// RemoveByConn forgets conn. Closing it is left to the caller.
func (r *repo) RemoveByConn(conn *websocket.Conn) (connection.Client, error) {
	funcName := "connection.inmemory.RemoveByConn"
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.connList[conn]
	if !ok {
		slog.Info(funcName, "error", connection.ErrNotFound)
		return connection.Client{}, connection.ErrNotFound
	}

	delete(r.connList, conn)
	delete(r.idList, e.client.ID)

	slog.Debug(funcName, "client_id", e.client.ID)
	return e.client, nil
}

// List returns the connections with one of roles, or all of them when roles is empty.
func (r *repo) List(roles ...connection.Role) []*websocket.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(r.connList))
	for conn, e := range r.connList {
		if len(roles) > 0 && !hasRole(roles, e.client.Role) {
			continue
		}
		conns = append(conns, conn)
	}

	return conns
}

func (r *repo) Count(role connection.Role) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.connList {
		if e.client.Role == role {
			n++
		}
	}

	return n
}

// Write sends one text message to conn, serialized with other writes to it.
func (r *repo) Write(conn *websocket.Conn, data []byte, timeout time.Duration) error {
	r.mu.RLock()
	e, ok := r.connList[conn]
	r.mu.RUnlock()
	if !ok {
		return connection.ErrNotFound
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return err
		}
	}

	return conn.WriteMessage(websocket.TextMessage, data)
}

func hasRole(roles []connection.Role, role connection.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}

	return false
}
