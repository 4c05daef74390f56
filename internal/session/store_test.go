package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := setupTestRedis(t)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(time.Hour),
	}
}

func TestSaveAndLookup(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

			err := store.Save(ctx, "hash-1", Data{UID: "u1", Email: "admin@example.com", CreatedAt: created}, time.Hour)
			require.NoError(t, err)

			got, err := store.Lookup(ctx, "hash-1")
			require.NoError(t, err)
			assert.Equal(t, "u1", got.UID)
			assert.Equal(t, "admin@example.com", got.Email)
			assert.True(t, created.Equal(got.CreatedAt))
		})
	}
}

func TestLookupMissing(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Lookup(context.Background(), "nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestRevoke(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Save(ctx, "hash-2", Data{UID: "u2"}, time.Hour))
			require.NoError(t, store.Save(ctx, "hash-3", Data{UID: "u3"}, time.Hour))

			require.NoError(t, store.Revoke(ctx, "hash-2"))
			require.NoError(t, store.Revoke(ctx, "never-existed"))

			_, err := store.Lookup(ctx, "hash-2")
			assert.ErrorIs(t, err, ErrNotFound)

			other, err := store.Lookup(ctx, "hash-3")
			require.NoError(t, err)
			assert.Equal(t, "u3", other.UID)
		})
	}
}

func TestRedisExpiry(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", Data{UID: "u1"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := store.Lookup(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKeysArePrefixed(t *testing.T) {
	store, mr := setupTestRedis(t)

	require.NoError(t, store.Save(context.Background(), "abc", Data{UID: "u1"}, time.Hour))
	assert.True(t, mr.Exists("vlogadmin:session:abc"))
}

func TestMemoryExpiry(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short", Data{UID: "u1"}, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := store.Lookup(ctx, "short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisStore("redis://" + addr)
	assert.Error(t, err)
}

func TestNewRedisStoreBadURL(t *testing.T) {
	_, err := NewRedisStore("not a url")
	assert.Error(t, err)
}
