package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	s := New("s1")
	s.SetLogin(googleLogin())
	require.NoError(t, store.Save(ctx, s, time.Minute))
	assert.True(t, mr.Exists("catalog:session:s1"))

	got, found, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Alice", got.Username)

	mr.FastForward(2 * time.Minute)
	_, found, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found, "session should expire with its TTL")

	require.NoError(t, store.Save(ctx, s, time.Minute))
	require.NoError(t, store.Delete(ctx, "s1"))
	_, found, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set("catalog:session:bad", "{not json"))

	_, _, err := store.Get(context.Background(), "bad")
	assert.Error(t, err)
}
