package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can keep a Redis lock.
const DefaultTTL = 30 * time.Minute

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a single-instance Redis lock: SET key token NX PX ttl, released
// with a compare-and-delete script.
type RedisLock struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisLock connects to addr and returns a lock on key.
func NewRedisLock(addr, password string, db int, key string, ttl time.Duration) (*RedisLock, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisLockWithClient(client, key, ttl), nil
}

// NewRedisLockWithClient uses an existing client.
func NewRedisLockWithClient(client redis.UniversalClient, key string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if key == "" {
		key = "profilesnap:lock"
	}
	return &RedisLock{client: client, key: key, ttl: ttl}
}

func (l *RedisLock) Name() string { return "redis" }

// Ping checks connectivity.
func (l *RedisLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (l *RedisLock) Close() error {
	return l.client.Close()
}

// TryLock implements Locker.
func (l *RedisLock) TryLock(ctx context.Context) (Unlock, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Int()
		if err != nil {
			return fmt.Errorf("redis release %s: %w", l.key, err)
		}
		if n == 0 {
			return fmt.Errorf("redis release %s: lock expired before release", l.key)
		}
		return nil
	}, nil
}
