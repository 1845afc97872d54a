package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter: misma semántica sliding-window que RedisLimiter pero
// in-process. Solo para dev y tests; no comparte cuota entre procesos.
type MemoryLimiter struct {
	mu   sync.Mutex
	hits map[string][]int64 // key -> timestamps ms, ordenados

	// now es inyectable en tests.
	now func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		hits: make(map[string][]int64),
		now:  time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string, limit int64, window time.Duration) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	ts := l.hits[key]
	// La ventana es el intervalo cerrado [now-window, now]: un hit justo en
	// el borde izquierdo todavía cuenta.
	i := 0
	for i < len(ts) && ts[i] < cutoff {
		i++
	}
	ts = append(ts[i:], nowMs)
	l.hits[key] = ts

	resetAt := time.UnixMilli(ts[0]).Add(window)
	return buildResult(limit, int64(len(ts)), resetAt), nil
}
