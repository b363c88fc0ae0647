package prefs

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix redis 键前缀
const DefaultRedisPrefix = "dormform:prefs:"

// Redis 以 redis 字符串键保存偏好
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis 创建 redis 存储，prefix 为空时使用 DefaultRedisPrefix
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{client: client, prefix: prefix}
}

// Get 实现 Store
func (r *Redis) Get(ctx context.Context, key, def string) (string, error) {
	if err := checkKey(key); err != nil {
		return def, err
	}
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("prefs: redis get %q: %w", key, err)
	}
	return v, nil
}

// Set 实现 Store，偏好不过期
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("prefs: redis set %q: %w", key, err)
	}
	return nil
}
