package rate

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// slidingWindowScript hace drop-insert-count en un solo round-trip atómico.
// Hacer estos pasos como comandos separados permitiría que dos requests
// concurrentes se sub-cuenten y excedan el límite.
//
// KEYS[1] = zset de timestamps (ms) por key de cuota
// ARGV[1] = now en ms
// ARGV[2] = window en ms
// ARGV[3] = member único para este hit
//
// Retorna {count, oldest_score} tras insertar el hit actual.
var slidingWindowScript = rdb.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', key, '-inf', '(' .. (now - window))
redis.call('ZADD', key, now, ARGV[3])
redis.call('PEXPIRE', key, window)
local count = redis.call('ZCARD', key)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
return {count, oldest[2]}
`)

// RedisLimiter: sliding window sobre un ZSET de timestamps, un script Lua
// por check.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
}

func NewRedisLimiter(client *rdb.Client, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error) {
	now := time.Now().UTC()
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	// Miembro único: dos hits en el mismo milisegundo no deben colapsar.
	member := fmt.Sprintf("%d-%06d", nowMs, rand.Intn(1_000_000))

	vals, err := slidingWindowScript.Run(ctx, l.Client,
		[]string{l.Prefix + key}, nowMs, windowMs, member).Slice()
	if err != nil {
		return Result{}, err
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("rate: unexpected script reply %v", vals)
	}

	count, _ := vals[0].(int64)
	resetAt := now.Add(window)
	// El contador vuelve a cero cuando expira la entrada más vieja.
	if oldest, ok := toInt64(vals[1]); ok {
		resetAt = time.UnixMilli(oldest).Add(window)
	}

	return buildResult(limit, count, resetAt), nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case string:
		var out int64
		if _, err := fmt.Sscanf(n, "%d", &out); err == nil {
			return out, true
		}
	}
	return 0, false
}
