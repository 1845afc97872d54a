// Package rate implementa el sliding-window rate limiter por application.
// El estado vive en redis para que todos los procesos compartan cuota; el
// driver memory existe para dev y tests.
package rate

import (
	"context"
	"time"
)

// Result es el veredicto de un check. Se produce siempre, permitido o no,
// porque los headers X-RateLimit-* se adjuntan en ambos casos.
type Result struct {
	Allowed   bool
	Limit     int64
	Current   int64 // hits dentro de la ventana, incluyendo este request
	Remaining int64
	ResetAt   time.Time
}

// Limiter cuenta un hit contra (key, limit, window) y retorna el estado de la
// ventana. Los pasos drop-viejos / insertar / contar deben ser atómicos
// respecto a otros callers sobre la misma key.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (Result, error)
}

func buildResult(limit, current int64, resetAt time.Time) Result {
	remaining := limit - current
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   current <= limit,
		Limit:     limit,
		Current:   current,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}
