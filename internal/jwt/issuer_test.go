package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIssuer(t *testing.T) *Issuer {
	t.Helper()
	ks, err := NewEphemeralKeystore()
	require.NoError(t, err)
	return NewIssuer("https://auth.test", ks, time.Hour, 2*time.Hour)
}

func TestIssueAndParseAccess(t *testing.T) {
	iss := newTestIssuer(t)

	tok, exp, err := iss.IssueAccess("user-1", "client-abc", []string{"read:profile", "write:profile"})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := iss.Parse(tok, TypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "client-abc", claims.ClientID)
	assert.Equal(t, TypeAccess, claims.TokenType)
	assert.Equal(t, []string{"read:profile", "write:profile"}, claims.Scopes)
	assert.NotEmpty(t, claims.JTI)
}

func TestParseRejectsWrongType(t *testing.T) {
	iss := newTestIssuer(t)

	refresh, _, err := iss.IssueRefresh("user-1", "client-abc", []string{"read:profile"})
	require.NoError(t, err)

	_, err = iss.Parse(refresh, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongType)

	// El mismo token pasa cuando se pide su tipo real.
	claims, err := iss.Parse(refresh, TypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TypeRefresh, claims.TokenType)
}

func TestParseRejectsExpired(t *testing.T) {
	ks, err := NewEphemeralKeystore()
	require.NoError(t, err)
	iss := NewIssuer("https://auth.test", ks, time.Hour, 2*time.Hour)
	iss.AccessTTL = -time.Minute

	tok, _, err := iss.IssueAccess("user-1", "client-abc", nil)
	require.NoError(t, err)

	_, err = iss.Parse(tok, TypeAccess)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestParseRejectsWrongIssuer(t *testing.T) {
	ks, err := NewEphemeralKeystore()
	require.NoError(t, err)
	a := NewIssuer("https://auth-a.test", ks, time.Hour, 2*time.Hour)
	b := NewIssuer("https://auth-b.test", ks, time.Hour, 2*time.Hour)

	tok, _, err := a.IssueAccess("user-1", "client-abc", nil)
	require.NoError(t, err)

	_, err = b.Parse(tok, TypeAccess)
	assert.ErrorIs(t, err, ErrWrongIssuer)
}

func TestParseRejectsForeignKey(t *testing.T) {
	a := newTestIssuer(t)
	b := newTestIssuer(t)

	tok, _, err := a.IssueAccess("user-1", "client-abc", nil)
	require.NoError(t, err)

	_, err = b.Parse(tok, TypeAccess)
	assert.Error(t, err)
}

func TestParseRejectsTampered(t *testing.T) {
	iss := newTestIssuer(t)

	tok, _, err := iss.IssueAccess("user-1", "client-abc", nil)
	require.NoError(t, err)

	raw := []byte(tok)
	raw[len(raw)-2] ^= 0x01
	_, err = iss.Parse(string(raw), TypeAccess)
	assert.Error(t, err)
}
