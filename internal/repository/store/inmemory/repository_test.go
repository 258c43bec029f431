package inmemory

import (
	"context"
	"testing"

	"github.com/sharetube/camwall/internal/repository/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepo(t *testing.T) {
	r := NewRepo()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := r.Watch(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, r.Set(ctx, "b", []byte("1")))
	require.NoError(t, r.Set(ctx, "a", []byte("2")))

	change := <-changes
	assert.Equal(t, "a", change.Key)

	value, err := r.Get(ctx, "a")
	require.NoError(t, err)
	value[0] = 'x'
	again, _ := r.Get(ctx, "a")
	assert.Equal(t, "2", string(again), "stored value must not alias returned slice")

	require.NoError(t, r.Del(ctx, "a"))
	_, err = r.Get(ctx, "a")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, store.Change{Key: "a"}, <-changes)
}
