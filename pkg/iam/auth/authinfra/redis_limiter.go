package authinfra

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const attemptKeyPrefix = "auth:attempts:"

// RedisAttemptLimiter keeps one counter per (scope, subject) that expires
// window after the first failure.
type RedisAttemptLimiter struct {
	client redis.Cmdable
	max    int
	window time.Duration
}

func NewRedisAttemptLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisAttemptLimiter {
	return &RedisAttemptLimiter{client: client, max: maxAttempts, window: window}
}

func (l *RedisAttemptLimiter) Allow(ctx context.Context, scope, subject string) (bool, error) {
	n, err := l.client.Get(ctx, attemptKey(scope, subject)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return n < l.max, nil
}

func (l *RedisAttemptLimiter) RecordFailure(ctx context.Context, scope, subject string) error {
	key := attemptKey(scope, subject)
	n, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return l.client.Expire(ctx, key, l.window).Err()
	}
	return nil
}

func (l *RedisAttemptLimiter) Reset(ctx context.Context, scope, subject string) error {
	return l.client.Del(ctx, attemptKey(scope, subject)).Err()
}

func attemptKey(scope, subject string) string {
	return attemptKeyPrefix + scope + ":" + strings.ToLower(subject)
}
