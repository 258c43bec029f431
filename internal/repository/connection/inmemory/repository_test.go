package inmemory

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/sharetube/camwall/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRepo()
	renderer := &websocket.Conn{}
	observer := &websocket.Conn{}

	require.NoError(t, r.Add(renderer, connection.Client{ID: "r1", Role: connection.RoleRenderer}))
	require.NoError(t, r.Add(observer, connection.Client{ID: "o1", Role: connection.RoleObserver}))
	assert.ErrorIs(t, r.Add(renderer, connection.Client{ID: "x", Role: connection.RoleObserver}), connection.ErrAlreadyExists)
	assert.ErrorIs(t, r.Add(&websocket.Conn{}, connection.Client{ID: "r1"}), connection.ErrAlreadyExists)

	assert.Equal(t, 1, r.Count(connection.RoleRenderer))
	assert.Equal(t, []*websocket.Conn{renderer}, r.List(connection.RoleRenderer))
	assert.Len(t, r.List(), 2)

	removed, err := r.RemoveByConn(renderer)
	require.NoError(t, err)
	assert.Equal(t, connection.RoleRenderer, removed.Role)
	assert.Zero(t, r.Count(connection.RoleRenderer))

	_, err = r.RemoveByConn(renderer)
	assert.ErrorIs(t, err, connection.ErrNotFound)
	assert.ErrorIs(t, r.Write(renderer, []byte("x"), 0), connection.ErrNotFound)
	assert.NoError(t, r.Add(&websocket.Conn{}, connection.Client{ID: "r1", Role: connection.RoleRenderer}), "the id is free again")
}

func TestParseRole(t *testing.T) {
	role, ok := connection.ParseRole("renderer")
	assert.True(t, ok)
	assert.Equal(t, connection.RoleRenderer, role)

	_, ok = connection.ParseRole("admin")
	assert.False(t, ok)
}
