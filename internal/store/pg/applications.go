package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// ApplicationStore implementa repository.ApplicationRepository.
type ApplicationStore struct {
	pool *pgxpool.Pool
}

const appColumns = `id, client_id, name, client_secret_hash, redirect_uris, approved_scopes,
       environment, rate_limit_override, status, created_at, updated_at`

func (s *ApplicationStore) GetByClientID(ctx context.Context, clientID string) (*repository.Application, error) {
	const q = `
SELECT ` + appColumns + `
FROM applications
WHERE client_id = $1
LIMIT 1`
	row := s.pool.QueryRow(ctx, q, clientID)

	var app repository.Application
	err := row.Scan(
		&app.ID, &app.ClientID, &app.Name, &app.ClientSecretHash,
		&app.RedirectURIs, &app.ApprovedScopes,
		&app.Environment, &app.RateLimitOverride, &app.Status,
		&app.CreatedAt, &app.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *ApplicationStore) Create(ctx context.Context, app *repository.Application) error {
	const q = `
INSERT INTO applications
(id, client_id, name, client_secret_hash, redirect_uris, approved_scopes, environment, rate_limit_override, status)
VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`
	err := s.pool.QueryRow(ctx, q,
		app.ClientID, app.Name, app.ClientSecretHash,
		app.RedirectURIs, app.ApprovedScopes,
		app.Environment, app.RateLimitOverride, app.Status).
		Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
