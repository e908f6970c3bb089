package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Limiter throttles login attempts. Keys are caller-chosen ("ip:1.2.3.4").
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Increment(ctx context.Context, key string, window time.Duration) error
	Block(ctx context.Context, key string, duration time.Duration) error
	IsBlocked(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type redisLimiter struct {
	client *redis.Client
	log    *logrus.Logger
}

// New connects to redis when redisURL is set; with an empty URL it returns
// a no-op limiter so the login path works without redis in development.
func New(redisURL string, log *logrus.Logger) (Limiter, error) {
	if redisURL == "" {
		log.Info("login rate limiting disabled (no REDIS_URL)")
		return noopLimiter{}, nil
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("login rate limiting enabled")
	return &redisLimiter{client: client, log: log}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	n, err := l.client.Get(ctx, attemptsKey(key)).Int()
	if err != nil && err != redis.Nil {
		return false, fmt.Errorf("get attempts: %w", err)
	}
	return n < limit, nil
}

func (l *redisLimiter) Increment(ctx context.Context, key string, window time.Duration) error {
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptsKey(key))
	pipe.Expire(ctx, attemptsKey(key), window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment attempts: %w", err)
	}

	l.log.WithFields(logrus.Fields{"key": key, "attempts": incr.Val()}).Debug("login attempt recorded")
	return nil
}

func (l *redisLimiter) Block(ctx context.Context, key string, duration time.Duration) error {
	if err := l.client.Set(ctx, blockKey(key), "1", duration).Err(); err != nil {
		return fmt.Errorf("block key: %w", err)
	}
	l.log.WithField("key", key).Warn("login source blocked")
	return nil
}

func (l *redisLimiter) IsBlocked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, blockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return n > 0, nil
}

func (l *redisLimiter) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, attemptsKey(key)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

func attemptsKey(key string) string { return "login_attempts:" + key }
func blockKey(key string) string    { return "login_block:" + key }

// noopLimiter never throttles.
type noopLimiter struct{}

func (noopLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}
func (noopLimiter) Increment(context.Context, string, time.Duration) error { return nil }
func (noopLimiter) Block(context.Context, string, time.Duration) error     { return nil }
func (noopLimiter) IsBlocked(context.Context, string) (bool, error)        { return false, nil }
func (noopLimiter) Reset(context.Context, string) error                    { return nil }
