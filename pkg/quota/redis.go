package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// counterTTL keeps stale day counters from accumulating; two days is
// enough to survive any timezone skew around the rollover.
const counterTTL = 48 * time.Hour

// RedisStore keeps counters in redis so multiple service replicas
// enforce one shared daily limit per user.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a redis-backed counter store and verifies the
// connection.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, prefix: "facegate:quota:"}, nil
}

// Close releases the redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) key(userID string) string {
	return r.prefix + userID
}

// Get implements CounterStore.
func (r *RedisStore) Get(ctx context.Context, userID string) (Counter, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return Counter{}, ErrNoCounter
	}
	if err != nil {
		return Counter{}, fmt.Errorf("redis get: %w", err)
	}

	var c Counter
	if err := json.Unmarshal(data, &c); err != nil {
		return Counter{}, fmt.Errorf("unmarshal counter: %w", err)
	}
	return c, nil
}

// Set implements CounterStore.
func (r *RedisStore) Set(ctx context.Context, userID string, c Counter) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal counter: %w", err)
	}
	if err := r.client.Set(ctx, r.key(userID), data, counterTTL).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete implements CounterStore.
func (r *RedisStore) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
