package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedIntent is what a replayed Idempotency-Key resolves to
type CachedIntent struct {
	Amount       int64
	IntentID     string
	ClientSecret string
}

// RedisIdempotencyStore keeps intent results keyed by a hash of the
// client's Idempotency-Key
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("payment_intent:idempotency:%s", hex.EncodeToString(sum[:]))
}

// Lookup returns the cached intent for key. ok is false when nothing is stored.
func (s *RedisIdempotencyStore) Lookup(ctx context.Context, key string) (cached *CachedIntent, ok bool, err error) {
	data, err := s.client.HGetAll(ctx, idempotencyKey(key)).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if len(data) == 0 {
		return nil, false, nil
	}

	amount, err := strconv.ParseInt(data["amount"], 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}

	return &CachedIntent{
		Amount:       amount,
		IntentID:     data["intent_id"],
		ClientSecret: data["client_secret"],
	}, true, nil
}

// Save stores the intent for key with the configured TTL
func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, cached CachedIntent) error {
	redisKey := idempotencyKey(key)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, redisKey, map[string]any{
		"amount":        cached.Amount,
		"intent_id":     cached.IntentID,
		"client_secret": cached.ClientSecret,
	})
	pipe.Expire(ctx, redisKey, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}
