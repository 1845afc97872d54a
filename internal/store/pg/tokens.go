package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// TokenStore implementa repository.TokenRepository. Las mutaciones
// condicionales (Exchange, Revoke) van como conditional UPDATE de un solo
// statement: postgres decide la carrera, no el proceso.
type TokenStore struct {
	pool *pgxpool.Pool
}

const tokenColumns = `id, application_id, user_id, scopes,
       code, code_expires_at, redirect_uri, pkce_challenge, pkce_method,
       access_token_fingerprint, access_token_hash,
       refresh_token_fingerprint, refresh_token_hash,
       expires_at, refresh_expires_at, revoked, rotated_from, created_at`

func scanToken(row pgx.Row) (*repository.DelegatedToken, error) {
	var t repository.DelegatedToken
	err := row.Scan(
		&t.ID, &t.ApplicationID, &t.UserID, &t.Scopes,
		&t.Code, &t.CodeExpiresAt, &t.RedirectURI, &t.PKCEChallenge, &t.PKCEMethod,
		&t.AccessTokenFingerprint, &t.AccessTokenHash,
		&t.RefreshTokenFingerprint, &t.RefreshTokenHash,
		&t.ExpiresAt, &t.RefreshExpiresAt, &t.Revoked, &t.RotatedFrom, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *TokenStore) Create(ctx context.Context, tok *repository.DelegatedToken) error {
	const q = `
INSERT INTO oauth_tokens
(id, application_id, user_id, scopes,
 code, code_expires_at, redirect_uri, pkce_challenge, pkce_method,
 access_token_fingerprint, access_token_hash,
 refresh_token_fingerprint, refresh_token_hash,
 expires_at, refresh_expires_at, revoked, rotated_from)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, false, $15)
RETURNING id, created_at`
	err := s.pool.QueryRow(ctx, q,
		tok.ApplicationID, tok.UserID, tok.Scopes,
		tok.Code, tok.CodeExpiresAt, tok.RedirectURI, tok.PKCEChallenge, tok.PKCEMethod,
		tok.AccessTokenFingerprint, tok.AccessTokenHash,
		tok.RefreshTokenFingerprint, tok.RefreshTokenHash,
		tok.ExpiresAt, tok.RefreshExpiresAt, tok.RotatedFrom).
		Scan(&tok.ID, &tok.CreatedAt)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func (s *TokenStore) GetByCode(ctx context.Context, code string) (*repository.DelegatedToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM oauth_tokens WHERE code = $1 LIMIT 1`
	return scanToken(s.pool.QueryRow(ctx, q, code))
}

func (s *TokenStore) GetByAccessFingerprint(ctx context.Context, fp string) (*repository.DelegatedToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM oauth_tokens WHERE access_token_fingerprint = $1 LIMIT 1`
	return scanToken(s.pool.QueryRow(ctx, q, fp))
}

func (s *TokenStore) GetByRefreshFingerprint(ctx context.Context, fp string) (*repository.DelegatedToken, error) {
	const q = `SELECT ` + tokenColumns + ` FROM oauth_tokens WHERE refresh_token_fingerprint = $1 LIMIT 1`
	return scanToken(s.pool.QueryRow(ctx, q, fp))
}

// Exchange canjea el code en un solo UPDATE condicional: solo procede si el
// registro sigue sin hash de access token. RowsAffected == 0 distingue entre
// "perdió la carrera" (ErrConflict) y "no existe" (ErrNotFound).
func (s *TokenStore) Exchange(ctx context.Context, id string, upd repository.ExchangeUpdate) error {
	const q = `
UPDATE oauth_tokens
SET code = NULL,
    code_expires_at = NULL,
    access_token_fingerprint = $2,
    access_token_hash = $3,
    refresh_token_fingerprint = $4,
    refresh_token_hash = $5,
    expires_at = $6,
    refresh_expires_at = $7
WHERE id = $1 AND access_token_hash IS NULL`
	tag, err := s.pool.Exec(ctx, q, id,
		upd.AccessTokenFingerprint, upd.AccessTokenHash,
		upd.RefreshTokenFingerprint, upd.RefreshTokenHash,
		upd.ExpiresAt, upd.RefreshExpiresAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM oauth_tokens WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

// Revoke es monotónico: el UPDATE solo toca registros aún no revocados, y
// RowsAffected dice si esta llamada hizo la transición.
func (s *TokenStore) Revoke(ctx context.Context, id string) (bool, error) {
	const q = `UPDATE oauth_tokens SET revoked = true WHERE id = $1 AND revoked = false`
	tag, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() > 0 {
		return true, nil
	}
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM oauth_tokens WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}
