package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lock only when still held by the releasing owner,
// so an expired-and-reacquired lock is never released by the old holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLocker implements Locker with Redis SET NX EX locks, serializing
// permission-graph mutations across service instances.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a new Redis-backed locker
func NewRedisLocker(host string, port int, password string, db int, ttl time.Duration, logger *zap.Logger) (Locker, error) {
	addr := fmt.Sprintf("%s:%d", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &RedisLocker{
		client: client,
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Acquire polls SET NX until the lock is obtained or the context is done
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	owner := uuid.New().String()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %q: %w", key, err)
		}
		if ok {
			return func() { l.release(key, owner) }, nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// release deletes the lock if this owner still holds it
func (l *RedisLocker) release(key, owner string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.client.Eval(ctx, releaseScript, []string{key}, owner).Err(); err != nil {
		l.logger.Warn("Failed to release lock",
			zap.String("key", key),
			zap.Error(err))
	}
}

// Ping checks the Redis connection
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
