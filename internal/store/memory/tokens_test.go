package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegram/authd/internal/domain/repository"
)

func strp(s string) *string { return &s }

func newCodeToken(t *testing.T, s *TokenStore, code string) *repository.DelegatedToken {
	t.Helper()
	exp := time.Now().Add(10 * time.Minute)
	tok := &repository.DelegatedToken{
		ApplicationID: "app-1",
		UserID:        strp("user-1"),
		Scopes:        []string{"read:profile"},
		Code:          strp(code),
		CodeExpiresAt: &exp,
		RedirectURI:   "https://client.example/cb",
	}
	require.NoError(t, s.Create(context.Background(), tok))
	return tok
}

func TestTokenStoreExchangeSingleUse(t *testing.T) {
	s := NewTokenStore()
	tok := newCodeToken(t, s, "code-1")

	upd := repository.ExchangeUpdate{
		AccessTokenFingerprint:  "fp-a",
		AccessTokenHash:         "hash-a",
		RefreshTokenFingerprint: "fp-r",
		RefreshTokenHash:        "hash-r",
		ExpiresAt:               time.Now().Add(time.Hour),
		RefreshExpiresAt:        time.Now().Add(2 * time.Hour),
	}

	require.NoError(t, s.Exchange(context.Background(), tok.ID, upd))

	// El segundo canje del mismo registro pierde la carrera.
	err := s.Exchange(context.Background(), tok.ID, upd)
	assert.ErrorIs(t, err, repository.ErrConflict)

	// El code quedó consumido: ya no se puede buscar por él.
	_, err = s.GetByCode(context.Background(), "code-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// Pero sí por fingerprint.
	got, err := s.GetByAccessFingerprint(context.Background(), "fp-a")
	require.NoError(t, err)
	assert.Nil(t, got.Code)
	assert.True(t, got.Exchanged())

	gotR, err := s.GetByRefreshFingerprint(context.Background(), "fp-r")
	require.NoError(t, err)
	assert.Equal(t, got.ID, gotR.ID)
}

func TestTokenStoreExchangeConcurrent(t *testing.T) {
	s := NewTokenStore()
	tok := newCodeToken(t, s, "code-race")

	const n = 20
	var wg sync.WaitGroup
	wins := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			upd := repository.ExchangeUpdate{
				AccessTokenFingerprint:  "fp-" + string(rune('a'+i)),
				AccessTokenHash:         "hash",
				RefreshTokenFingerprint: "rfp-" + string(rune('a'+i)),
				RefreshTokenHash:        "rhash",
				ExpiresAt:               time.Now().Add(time.Hour),
				RefreshExpiresAt:        time.Now().Add(2 * time.Hour),
			}
			if err := s.Exchange(context.Background(), tok.ID, upd); err == nil {
				wins <- struct{}{}
			}
		}(i)
	}
	wg.Wait()
	close(wins)

	count := 0
	for range wins {
		count++
	}
	assert.Equal(t, 1, count, "exactly one exchange must win")
}

func TestTokenStoreRevokeMonotonic(t *testing.T) {
	s := NewTokenStore()
	tok := newCodeToken(t, s, "code-r")

	flipped, err := s.Revoke(context.Background(), tok.ID)
	require.NoError(t, err)
	assert.True(t, flipped)

	flipped, err = s.Revoke(context.Background(), tok.ID)
	require.NoError(t, err)
	assert.False(t, flipped)

	_, err = s.Revoke(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokenStoreCreateIsolation(t *testing.T) {
	s := NewTokenStore()
	tok := newCodeToken(t, s, "code-x")

	// Mutar el puntero del caller no afecta el registro almacenado.
	*tok.Code = "mutated"
	got, err := s.GetByCode(context.Background(), "code-x")
	require.NoError(t, err)
	assert.Equal(t, "code-x", *got.Code)
}
