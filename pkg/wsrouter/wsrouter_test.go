package wsrouter

import (
	"context"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingInput struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

func TestDispatch(t *testing.T) {
	r := New()

	var seenTypes []string
	r.Use(func(next HandlerFunc[any]) HandlerFunc[any] {
		return func(ctx context.Context, conn *websocket.Conn, payload any) error {
			seenTypes = append(seenTypes, GetMessageTypeFromCtx(ctx))
			return next(ctx, conn, payload)
		}
	})

	var got pingInput
	Handle(r, "ping", func(_ context.Context, _ *websocket.Conn, input pingInput) error {
		got = input
		return nil
	})

	require.NoError(t, r.Dispatch(context.Background(), nil, []byte(`{"type":"ping","value":7}`)))
	assert.Equal(t, 7, got.Value)
	assert.Equal(t, []string{"ping"}, seenTypes)

	err := r.Dispatch(context.Background(), nil, []byte(`{"type":"pong"}`))
	assert.ErrorIs(t, err, ErrUnknownMessageType)

	err = r.Dispatch(context.Background(), nil, []byte(`{"type":"ping","value":"x"}`))
	assert.Error(t, err)

	err = r.Dispatch(context.Background(), nil, []byte(`not json`))
	assert.Error(t, err)
}
