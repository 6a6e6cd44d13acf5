package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"inspectsync/internal/config"
)

// RedisExecutor runs commands over the native Redis protocol.
type RedisExecutor struct {
	client  *redis.Client
	limiter *rate.Limiter
}

// NewRedisClient creates a Redis client from configuration. RESP2 is forced
// so HGETALL replies arrive as flat field/value lists.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
		Protocol: 2,
	})
}

func NewRedisExecutor(client *redis.Client) *RedisExecutor {
	return &RedisExecutor{client: client}
}

// UseLimiter makes every command wait for a token from limiter.
func (e *RedisExecutor) UseLimiter(limiter *rate.Limiter) {
	e.limiter = limiter
}

// Do implements Executor.
func (e *RedisExecutor) Do(ctx context.Context, cmd ...string) ([]string, error) {
	if err := wait(ctx, e.limiter); err != nil {
		return nil, err
	}

	args := make([]interface{}, len(cmd))
	for i, c := range cmd {
		args[i] = c
	}

	res, err := e.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNullResult
	}
	if err != nil {
		return nil, &CommandError{Command: commandName(cmd), Message: err.Error()}
	}

	switch v := res.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				out = append(out, "")
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case nil:
		return nil, ErrNullResult
	default:
		return []string{fmt.Sprint(v)}, nil
	}
}

// Ping checks the connection to Redis.
func (e *RedisExecutor) Ping(ctx context.Context) error {
	if err := e.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (e *RedisExecutor) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
