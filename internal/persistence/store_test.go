package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, KeySnapshot)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, KeySnapshot, `{"destination":"Lisbon"}`))
	v, err := store.Get(ctx, KeySnapshot)
	require.NoError(t, err)
	assert.Equal(t, `{"destination":"Lisbon"}`, v)

	require.NoError(t, store.Set(ctx, KeySnapshot, `{"destination":"Porto"}`))
	v, err = store.Get(ctx, KeySnapshot)
	require.NoError(t, err)
	assert.Equal(t, `{"destination":"Porto"}`, v)

	require.NoError(t, store.Delete(ctx, KeySnapshot))
	_, err = store.Get(ctx, KeySnapshot)
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, KeySnapshot))
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_EscapesKeys(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "../outside", "x"))
	v, err := store.Get(ctx, "../outside")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	assert.NotContains(t, store.path("../outside"), "..")
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "avi:", 0)
	exerciseStore(t, store)

	require.NoError(t, store.Set(context.Background(), KeyCurrentID, "abc"))
	assert.True(t, mr.Exists("avi:"+KeyCurrentID))
}

func TestRedisStore_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "avi:", time.Hour)
	require.NoError(t, store.Set(context.Background(), KeyCurrentID, "abc"))

	mr.FastForward(2 * time.Hour)
	_, err := store.Get(context.Background(), KeyCurrentID)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
