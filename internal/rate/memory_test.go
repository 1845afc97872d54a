package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClockedLimiter(start time.Time) (*MemoryLimiter, *time.Time) {
	now := start
	l := NewMemoryLimiter()
	l.now = func() time.Time { return now }
	return l, &now
}

func TestMemoryLimiter_ExactLimitAllowed(t *testing.T) {
	l, _ := newClockedLimiter(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	const limit = 5
	for i := 1; i <= limit; i++ {
		res, err := l.Allow(ctx, "k", limit, time.Hour)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d within limit", i)
		assert.Equal(t, int64(i), res.Current)
		assert.Equal(t, int64(limit-i), res.Remaining)
	}

	// limit+1 dentro de la ventana: denegado
	res, err := l.Allow(ctx, "k", limit, time.Hour)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(limit+1), res.Current)
	assert.Equal(t, int64(0), res.Remaining)
}

func TestMemoryLimiter_WindowElapsesCounterResets(t *testing.T) {
	l, now := newClockedLimiter(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := l.Allow(ctx, "k", 3, time.Minute)
		require.NoError(t, err)
	}
	res, err := l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, res.Allowed)

	// ventana completa transcurrida
	*now = now.Add(time.Minute + time.Second)

	res, err = l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Current)
}

func TestMemoryLimiter_SlidingNotBucketed(t *testing.T) {
	l, now := newClockedLimiter(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	// Dos hits al inicio, uno más tarde: a los 45s los dos primeros siguen
	// dentro de una ventana de 60s (una ventana de bucket fijo ya los habría
	// olvidado al cruzar el borde del minuto).
	_, _ = l.Allow(ctx, "k", 3, time.Minute)
	_, _ = l.Allow(ctx, "k", 3, time.Minute)

	*now = now.Add(45 * time.Second)
	res, err := l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Current)

	res, err = l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// A los 61s los dos primeros hits salen de la ventana.
	*now = now.Add(16 * time.Second)
	res, err = l.Allow(ctx, "k", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiter_WindowEdgeIsInclusive(t *testing.T) {
	l, now := newClockedLimiter(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	// Un hit en t0 y el reloj exactamente en t0+window: el hit está en el
	// borde izquierdo del intervalo cerrado y todavía cuenta.
	_, err := l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)

	*now = now.Add(time.Minute)
	res, err := l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Current)

	// Un milisegundo después del borde, el hit viejo sale de la ventana.
	*now = now.Add(time.Millisecond)
	res, err = l.Allow(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Current)
}

func TestMemoryLimiter_KeysIsolated(t *testing.T) {
	l, _ := newClockedLimiter(time.Unix(1_700_000_000, 0))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _ = l.Allow(ctx, "a", 3, time.Hour)
	}
	res, err := l.Allow(ctx, "b", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, int64(1), res.Current)
}

func TestMemoryLimiter_ConcurrentCallersNeverUndercount(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	denied := make(chan struct{}, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "k", 10, time.Hour)
			require.NoError(t, err)
			if !res.Allowed {
				denied <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(denied)

	assert.Len(t, denied, n-10, "exactly limit requests may pass")
}

func TestMemoryLimiter_ResetAtTracksOldestHit(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	l, now := newClockedLimiter(start)
	ctx := context.Background()

	res, err := l.Allow(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, start.UTC().Add(time.Minute).Unix(), res.ResetAt.Unix())

	*now = now.Add(30 * time.Second)
	res, err = l.Allow(ctx, "k", 10, time.Minute)
	require.NoError(t, err)
	// El reset sigue anclado al hit más viejo aún en ventana.
	assert.Equal(t, start.UTC().Add(time.Minute).Unix(), res.ResetAt.Unix())
}
