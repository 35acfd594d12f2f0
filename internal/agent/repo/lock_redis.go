package repo

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/agrideliver/server/internal/agent/model"
	errx "github.com/agrideliver/server/internal/core/error"
	logx "github.com/agrideliver/server/pkg/logger"
)

const (
	lockKeyFormat    = "chat:turn_lock:%s:%s"
	lockPollInterval = 50 * time.Millisecond

	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 5 * time.Second
)

// releaseScript deletes the lock key only when it still holds our token, so
// an expired lock re-acquired by another turn is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisSessionLocker serializes turns per (userID, sessionID) across server
// instances using a token-fenced SET NX lock.
type RedisSessionLocker struct {
	rdb  redis.Cmdable
	ttl  time.Duration
	wait time.Duration
}

// NewRedisSessionLocker parses the lock durations out of the conversation
// config, falling back to the defaults on malformed values.
func NewRedisSessionLocker(rdb redis.Cmdable, convCfg model.ConversationConfig) *RedisSessionLocker {
	ttl, err := time.ParseDuration(convCfg.Lock.TTL)
	if err != nil || ttl <= 0 {
		ttl = defaultLockTTL
	}
	wait, err := time.ParseDuration(convCfg.Lock.Wait)
	if err != nil || wait <= 0 {
		wait = defaultLockWait
	}
	return &RedisSessionLocker{rdb: rdb, ttl: ttl, wait: wait}
}

// Acquire polls SET NX until the lock is held or the wait window expires.
// The TTL bounds how long a crashed holder can block the session.
func (l *RedisSessionLocker) Acquire(ctx context.Context, userID, sessionID string) (func(), error) {
	key := fmt.Sprintf(lockKeyFormat, userID, sessionID)
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errx.WrapRedis(err)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, errx.New(nil, http.StatusConflict, errx.LockErrorMessage)
		}

		select {
		case <-ctx.Done():
			return nil, errx.New(ctx.Err(), http.StatusConflict, errx.LockErrorMessage)
		case <-time.After(lockPollInterval):
		}
	}
}

// release runs detached from the turn's context so a cancelled request still
// frees its lock instead of leaving it to expire.
func (l *RedisSessionLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil && err != redis.Nil {
		logx.Error().Err(err).Str("lock_key", key).Msg("failed to release session lock")
	}
}
