package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var ErrUnknownMessageType = errors.New("unknown message type")

type envelope struct {
	Type string `json:"type"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

// ErrorHandler is called for every message that failed to decode or whose handler returned an error.
type ErrorHandler func(ctx context.Context, conn *websocket.Conn, err error)

type route func(ctx context.Context, conn *websocket.Conn, raw []byte) error

type WSRouter struct {
	routes      map[string]route
	middlewares []Middleware
	onError     ErrorHandler
}

func New() *WSRouter {
	return &WSRouter{
		routes:  make(map[string]route),
		onError: func(context.Context, *websocket.Conn, error) {},
	}
}

func (r *WSRouter) Use(mw ...Middleware) {
	r.middlewares = append(r.middlewares, mw...)
}

func (r *WSRouter) OnError(h ErrorHandler) {
	r.onError = h
}

// Handle registers handler for messageType. The whole message is decoded into T,
// so payload structs carry the "type" field alongside their own fields.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	var chain HandlerFunc[any] = func(ctx context.Context, conn *websocket.Conn, payload any) error {
		return handler(ctx, conn, payload.(T))
	}
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		chain = r.middlewares[i](chain)
	}

	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, raw []byte) error {
		var payload T
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("failed to decode %s message: %w", messageType, err)
		}

		return chain(ctx, conn, payload)
	}
}

// Dispatch routes a single raw message.
func (r *WSRouter) Dispatch(ctx context.Context, conn *websocket.Conn, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode message envelope: %w", err)
	}

	handler, exists := r.routes[env.Type]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownMessageType, env.Type)
	}

	return handler(context.WithValue(ctx, messageTypeKey, env.Type), conn, raw)
}

// ServeConn reads messages until the connection fails and routes each of them.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := r.Dispatch(ctx, conn, raw); err != nil {
			r.onError(ctx, conn, err)
		}
	}
}
