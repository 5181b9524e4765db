package runlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"ballotwatch/pkg/platform/sentinel"
)

// releaseScript deletes the lock key only if this holder still owns it, so
// an expired-and-reacquired lock is never released by the previous holder.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLocker provides cross-process exclusion via SET NX with a TTL. The
// TTL bounds how long a crashed holder can block the next run.
type RedisLocker struct {
	client *goredis.Client
	token  func() string
}

// NewRedis creates a Redis-backed locker. A nil token generator defaults to
// random UUIDs.
func NewRedis(client *goredis.Client, token func() string) *RedisLocker {
	if token == nil {
		token = uuid.NewString
	}
	return &RedisLocker{client: client, token: token}
}

// Acquire takes the named lock or fails with sentinel.ErrConflict.
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := l.token()

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("lock %s: %w", key, sentinel.ErrConflict)
	}

	return func() {
		// Best effort; the TTL reclaims the lock if release fails.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
	}, nil
}
