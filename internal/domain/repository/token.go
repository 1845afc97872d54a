package repository

import (
	"context"
	"time"
)

const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// DelegatedToken representa el ciclo de vida completo de un grant: nace en
// estado code (authorization code pendiente) o directamente en estado tokens
// (client_credentials), transiciona code→tokens exactamente una vez, y muere
// por expiración o revocación. Nunca se borra desde este core.
type DelegatedToken struct {
	ID            string // UUID
	ApplicationID string
	// UserID es nil para grants client_credentials.
	UserID *string

	// Scopes otorgados, fijados en la emisión. La rotación nunca los amplía.
	Scopes []string

	// Code state. Code se limpia al canjear (single-use).
	Code          *string
	CodeExpiresAt *time.Time
	// RedirectURI usado en /authorize; el exchange debe presentar el mismo.
	RedirectURI string

	// PKCE, solo si el authorization request lo incluyó.
	PKCEChallenge *string
	PKCEMethod    *string

	// Representación dual de cada credencial: fingerprint (lookup indexado,
	// determinístico) + hash (prueba de posesión, argon2id).
	AccessTokenFingerprint  *string
	AccessTokenHash         *string
	RefreshTokenFingerprint *string
	RefreshTokenHash        *string

	ExpiresAt        *time.Time
	RefreshExpiresAt *time.Time

	// Revoked es monotónico: una vez true, nunca vuelve a false.
	Revoked bool

	// RotatedFrom referencia el registro revocado del que rotó este token.
	RotatedFrom *string

	CreatedAt time.Time
}

// Exchanged reports whether the authorization code was already consumed.
func (t *DelegatedToken) Exchanged() bool {
	return t.AccessTokenHash != nil
}

// ExchangeUpdate contiene los campos que se fijan al canjear un code.
type ExchangeUpdate struct {
	AccessTokenFingerprint  string
	AccessTokenHash         string
	RefreshTokenFingerprint string
	RefreshTokenHash        string
	ExpiresAt               time.Time
	RefreshExpiresAt        time.Time
}

// TokenRepository define operaciones sobre delegated tokens.
//
// Las operaciones de mutación condicionales (Exchange, Revoke) son la base de
// las garantías de concurrencia del core: deben ser atomic read-modify-write
// en el driver (conditional UPDATE en SQL, mutex en memoria).
type TokenRepository interface {
	// Create persiste un registro nuevo (estado code o estado tokens).
	Create(ctx context.Context, tok *DelegatedToken) error

	// GetByCode busca por authorization code. Retorna ErrNotFound si no existe.
	GetByCode(ctx context.Context, code string) (*DelegatedToken, error)

	// GetByAccessFingerprint busca por fingerprint del access token.
	GetByAccessFingerprint(ctx context.Context, fp string) (*DelegatedToken, error)

	// GetByRefreshFingerprint busca por fingerprint del refresh token.
	GetByRefreshFingerprint(ctx context.Context, fp string) (*DelegatedToken, error)

	// Exchange consume el code y adjunta los tokens en un solo conditional
	// update: solo procede si AccessTokenHash sigue siendo NULL. Si otro
	// request ganó la carrera retorna ErrConflict; si el registro no existe,
	// ErrNotFound. El code queda limpiado (single-use).
	Exchange(ctx context.Context, id string, upd ExchangeUpdate) error

	// Revoke marca revoked=true si aún no lo estaba. Retorna (true, nil) si
	// esta llamada hizo la transición, (false, nil) si ya estaba revocado.
	// ErrNotFound si el registro no existe.
	Revoke(ctx context.Context, id string) (bool, error)
}
