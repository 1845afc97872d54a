package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegram/authd/internal/domain/repository"
)

func intPtr(v int) *int { return &v }

func devApp() *repository.Application {
	return &repository.Application{
		ID:          "app-uuid",
		ClientID:    "client-1",
		Environment: repository.AppEnvDevelopment,
		Status:      repository.AppStatusActive,
	}
}

func TestPolicy_LimitFor(t *testing.T) {
	p := Policy{DevLimit: 1000, ProdLimit: 10000}

	app := devApp()
	assert.Equal(t, int64(1000), p.LimitFor(app))

	app.Environment = repository.AppEnvProduction
	assert.Equal(t, int64(10000), p.LimitFor(app))

	app.RateLimitOverride = intPtr(42)
	assert.Equal(t, int64(42), p.LimitFor(app))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, int64, time.Duration) (Result, error) {
	return Result{}, errors.New("redis: connection refused")
}

func TestChecker_FailOpenOnBackendFailure(t *testing.T) {
	c := NewChecker(failingLimiter{}, Policy{Enabled: true, Window: time.Hour, DevLimit: 10, ProdLimit: 100})

	res := c.Check(context.Background(), devApp(), "u1", "/oauth/token")
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(10), res.Limit)
	assert.Equal(t, int64(10), res.Remaining)
}

func TestChecker_DisabledAlwaysAllows(t *testing.T) {
	c := NewChecker(NewMemoryLimiter(), Policy{Enabled: false, Window: time.Hour, DevLimit: 1})

	for i := 0; i < 5; i++ {
		res := c.Check(context.Background(), devApp(), "u1", "/oauth/token")
		assert.True(t, res.Allowed)
	}
}

func TestChecker_EnforcesTierLimit(t *testing.T) {
	c := NewChecker(NewMemoryLimiter(), Policy{Enabled: true, Window: time.Hour, DevLimit: 2, ProdLimit: 100})
	app := devApp()

	res := c.Check(context.Background(), app, "u1", "/oauth/token")
	require.True(t, res.Allowed)
	res = c.Check(context.Background(), app, "u1", "/oauth/token")
	require.True(t, res.Allowed)

	res = c.Check(context.Background(), app, "u1", "/oauth/token")
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(0), res.Remaining)

	// Otro usuario de la misma app: bucket independiente.
	res = c.Check(context.Background(), app, "u2", "/oauth/token")
	assert.True(t, res.Allowed)
}
