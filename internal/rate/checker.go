package rate

import (
	"context"
	"time"

	"github.com/pulsegram/authd/internal/audit"
	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// Policy define los límites por tier de environment.
type Policy struct {
	Enabled   bool
	Window    time.Duration
	DevLimit  int64 // default 1000/h
	ProdLimit int64 // default 10000/h
}

// LimitFor resuelve el límite efectivo para una application: override
// explícito primero, si no el tier del environment.
func (p Policy) LimitFor(app *repository.Application) int64 {
	if app != nil && app.RateLimitOverride != nil && *app.RateLimitOverride > 0 {
		return int64(*app.RateLimitOverride)
	}
	if app != nil && app.Environment == repository.AppEnvProduction {
		return p.ProdLimit
	}
	return p.DevLimit
}

// Checker aplica la Policy sobre un Limiter y encapsula la política de
// degradación: si el backing store falla, el request se permite (fail open)
// y el incidente queda auditado. La disponibilidad de la API pesa más que la
// cuota estricta cuando la infraestructura está degradada.
type Checker struct {
	Limiter Limiter
	Policy  Policy
}

func NewChecker(l Limiter, p Policy) *Checker {
	return &Checker{Limiter: l, Policy: p}
}

// Check cuenta un hit para (application, user, endpoint). Siempre retorna un
// Result usable para headers, incluso deshabilitado o en fail-open.
func (c *Checker) Check(ctx context.Context, app *repository.Application, userID, endpoint string) Result {
	limit := c.Policy.LimitFor(app)
	window := c.Policy.Window

	if !c.Policy.Enabled || c.Limiter == nil || limit <= 0 || window <= 0 {
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: time.Now().UTC().Add(window)}
	}

	key := Key(app.ID, userID, endpoint)
	res, err := c.Limiter.Allow(ctx, key, limit, window)
	if err != nil {
		logger.From(ctx).Warn("rate limiter backend failure, failing open",
			logger.Component("rate"), logger.Key(key), logger.Err(err))
		audit.Log(ctx, audit.EventRateLimitFailOpen,
			logger.AppID(app.ID), logger.Endpoint(NormalizeEndpoint(endpoint)))
		return Result{Allowed: true, Limit: limit, Remaining: limit, ResetAt: time.Now().UTC().Add(window)}
	}

	if !res.Allowed {
		audit.Log(ctx, audit.EventRateLimitExceeded,
			logger.AppID(app.ID),
			logger.Endpoint(NormalizeEndpoint(endpoint)),
			logger.Int64("current", res.Current),
			logger.Int64("limit", res.Limit))
	}
	return res
}
