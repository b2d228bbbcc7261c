package payment

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisIdempotencyStore(client, time.Minute)
	ctx := context.Background()

	_, ok, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Save(ctx, "k1", CachedIntent{Amount: 1999, IntentID: "pi_1", ClientSecret: "pi_1_secret"}))

	got, ok, err := store.Lookup(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, CachedIntent{Amount: 1999, IntentID: "pi_1", ClientSecret: "pi_1_secret"}, *got)

	// the raw client key never appears in Redis
	for _, key := range mr.Keys() {
		assert.NotContains(t, key, "k1")
	}

	mr.FastForward(2 * time.Minute)
	_, ok, err = store.Lookup(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}
