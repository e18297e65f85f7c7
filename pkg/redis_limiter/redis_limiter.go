package redis_limiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrLimitReached 并发槽位已满
var ErrLimitReached = errors.New("并发限制已达到上限")

// acquireScript 未满时计数加一并刷新过期时间，已满时返回 上限+1
var acquireScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current == false then
	current = 0
else
	current = tonumber(current)
end

if current >= tonumber(ARGV[1]) then
	return current + 1
end

local newCount = redis.call('INCR', KEYS[1])
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
return newCount
`)

// releaseScript 计数减一，归零时删除 key
var releaseScript = redis.NewScript(`
local count = redis.call('DECR', KEYS[1])
if tonumber(count) <= 0 then
	redis.call('DEL', KEYS[1])
	return 0
else
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
	return count
end
`)

// RedisLimiter 基于Redis的跨进程并发限制器
type RedisLimiter struct {
	client        *redis.Client
	maxConcurrent int
	keyPrefix     string
	ttl           time.Duration
	pollInterval  time.Duration
	logger        *logrus.Logger
}

// NewRedisLimiter 创建基于Redis的并发限制器
// ttl 用于进程崩溃后槽位自动回收
func NewRedisLimiter(client *redis.Client, maxConcurrent int, keyPrefix string, ttl time.Duration, logger *logrus.Logger) *RedisLimiter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisLimiter{
		client:        client,
		maxConcurrent: maxConcurrent,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
		pollInterval:  200 * time.Millisecond,
		logger:        logger,
	}
}

// TryAcquire 获取并发槽位，已满时立即返回 ErrLimitReached
func (rl *RedisLimiter) TryAcquire(ctx context.Context, key string) error {
	redisKey := rl.keyPrefix + key

	result, err := acquireScript.Run(ctx, rl.client, []string{redisKey}, rl.maxConcurrent, int(rl.ttl.Seconds())).Int64()
	if err != nil {
		return fmt.Errorf("执行Lua脚本失败: %w", err)
	}

	newCount := int(result)
	if newCount > rl.maxConcurrent {
		rl.logger.WithFields(logrus.Fields{
			"key":     key,
			"current": newCount - 1,
			"max":     rl.maxConcurrent,
		}).Debug("槽位已满")
		return fmt.Errorf("%w: %d", ErrLimitReached, rl.maxConcurrent)
	}

	rl.logger.WithFields(logrus.Fields{
		"key":     key,
		"current": newCount,
		"max":     rl.maxConcurrent,
	}).Debug("获取槽位成功")
	return nil
}

// Acquire 等待直到获取槽位或 ctx 结束
func (rl *RedisLimiter) Acquire(ctx context.Context, key string) error {
	ticker := time.NewTicker(rl.pollInterval)
	defer ticker.Stop()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := rl.TryAcquire(ctx, key)
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil || !errors.Is(err, ErrLimitReached) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Release 释放并发槽位
func (rl *RedisLimiter) Release(ctx context.Context, key string) {
	redisKey := rl.keyPrefix + key

	finalCount, err := releaseScript.Run(ctx, rl.client, []string{redisKey}, int(rl.ttl.Seconds())).Int64()
	if err != nil {
		rl.logger.WithError(err).WithField("key", key).Error("释放槽位失败")
		return
	}

	rl.logger.WithFields(logrus.Fields{
		"key":       key,
		"remaining": finalCount,
	}).Debug("释放槽位")
}

// GetCurrent 获取当前并发数
func (rl *RedisLimiter) GetCurrent(ctx context.Context, key string) (int, error) {
	redisKey := rl.keyPrefix + key
	current, err := rl.client.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("获取当前并发数失败: %w", err)
	}
	return current, nil
}
