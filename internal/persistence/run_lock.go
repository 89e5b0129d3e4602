package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const runLockKey = "sla:monitor:run-lock"

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RunLock is a best-effort cross-process guard against overlapping runs.
type RunLock struct {
	client *redis.Client
	key    string
}

// NewRunLock returns nil when Redis is not configured.
func NewRunLock(r *Redis) *RunLock {
	if r == nil || r.Client == nil {
		return nil
	}
	return &RunLock{client: r.Client, key: runLockKey}
}

// Acquire tries to take the lock for ttl. When ok is false the lock is held elsewhere.
func (l *RunLock) Acquire(ctx context.Context, ttl time.Duration) (release func(context.Context) error, ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	return func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.client, []string{l.key}, token).Err()
	}, true, nil
}
