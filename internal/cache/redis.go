package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StatusChannel carries application status events.
const StatusChannel = "EVENT_APPLICATION_STATUS"

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// Redis provides locks and publishing over one client. A nil client turns
// publishing into a no-op and locking into the in-process fallback.
type Redis struct {
	client   *redis.Client
	fallback *LocalLocker

	warnedUnavailable atomic.Bool
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, fallback: NewLocalLocker()}
}

func (r *Redis) isUnavailable() bool {
	return r == nil || r.client == nil
}

func (r *Redis) warnUnavailableOnce(err error) {
	if r.warnedUnavailable.CompareAndSwap(false, true) {
		log.Printf("⚠️ [cache] redis unavailable, using in-process locks: %v", err)
	}
}

// TryLock takes key with SET NX PX. The returned Unlock releases it through a
// compare-and-delete script so an expired lock taken by someone else is kept.
func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (Unlock, error) {
	if r.isUnavailable() {
		return r.fallback.TryLock(ctx, key, ttl)
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		r.warnUnavailableOnce(err)
		return r.fallback.TryLock(ctx, key, ttl)
	}
	if !ok {
		return nil, ErrLocked
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, r.client, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				log.Printf("⚠️ [cache] releasing %s: %v", key, err)
			}
		})
	}, nil
}

// Publish sends v as JSON on channel. Failures are returned for logging only.
func (r *Redis) Publish(ctx context.Context, channel string, v any) error {
	if r.isUnavailable() {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.isUnavailable() {
		return nil
	}
	return r.client.Close()
}
