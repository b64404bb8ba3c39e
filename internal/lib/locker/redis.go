package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix      = "lock:"
	defaultRetryPeriod = 50 * time.Millisecond
)

// снимаем блокировку, только если она все еще наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker распределенная блокировка для нескольких инстансов сервиса.
// TTL ограничивает время жизни блокировки, если держатель упал.
type RedisLocker struct {
	client   redis.Cmdable
	ttl      time.Duration
	retry    time.Duration
	newToken func() string
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		retry:    defaultRetryPeriod,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	const op = "locker.RedisLocker.Lock"

	redisKey := lockKeyPrefix + key
	token := l.newToken()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%s: %s: %w", op, key, ErrLockNotAcquired)
		case <-timer.C:
		}
	}

	return func() {
		// контекст запроса мог уже завершиться, снимаем блокировку отдельно
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err()
	}, nil
}
