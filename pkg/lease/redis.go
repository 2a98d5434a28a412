package lease

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker shares leases across processes through SET NX PX
type RedisLocker struct {
	client     redis.UniversalClient
	opts       Options
	prefix     string
	retryEvery time.Duration
	logger     *logrus.Logger
}

// NewRedisLocker creates a Redis backed locker. Keys are namespaced under prefix.
func NewRedisLocker(client redis.UniversalClient, prefix string, opts Options, logger *logrus.Logger) *RedisLocker {
	return &RedisLocker{
		client:     client,
		opts:       opts.withDefaults(),
		prefix:     prefix,
		retryEvery: 25 * time.Millisecond,
		logger:     logger,
	}
}

// Acquire polls SET NX until it wins, ctx is done, or the wait budget is spent
func (l *RedisLocker) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	fullKey := l.prefix + key
	token := newToken()

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, fullKey, token, l.opts.TTL).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if waitCtx.Err() != nil {
				return nil, ErrBusy
			}
			return nil, fmt.Errorf("failed to acquire lease %s: %w", key, err)
		}
		if ok {
			return l.releaser(fullKey, token), nil
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrBusy
		case <-time.After(l.retryEvery):
		}
	}
}

func (l *RedisLocker) releaser(fullKey, token string) ReleaseFunc {
	var once sync.Once
	return func() {
		once.Do(func() {
			// Release must outlive a cancelled request context
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil && err != redis.Nil {
				l.logger.WithFields(logrus.Fields{
					"key":   fullKey,
					"error": err.Error(),
				}).Warn("Failed to release lease, it will expire on its own")
			}
		})
	}
}
