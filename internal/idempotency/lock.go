// Package idempotency serializes order submits for one configurator session
// across replicas with a Redis lock.
package idempotency

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/eel-studio/storefront/internal/errors"
)

const keyPrefix = "storefront:submit:"

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Client is the subset of go-redis the lock needs.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// Locker hands out submit locks.
type Locker interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}

// NopLocker always succeeds. Used when Redis is not configured; the engine's
// own in-flight guard still applies within one process.
type NopLocker struct{}

func (NopLocker) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

// RedisLocker is a SET NX PX lock with token-checked release.
type RedisLocker struct {
	client Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker. ttl bounds how long a crashed holder blocks others.
func NewRedisLocker(client Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{client: client, ttl: ttl}
}

// Acquire returns SUBMISSION_IN_FLIGHT when another holder has the session.
func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := keyPrefix + sessionID
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.Unavailable("submit lock unavailable", err)
	}
	if !ok {
		return nil, errors.SubmissionInFlight()
	}
	return func() {
		releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token)
	}, nil
}
