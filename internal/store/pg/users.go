package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// UserStore implementa repository.UserRepository sobre la tabla users, que
// en esta plataforma pertenece al servicio de identidad; acá solo se lee.
type UserStore struct {
	pool *pgxpool.Pool
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*repository.User, error) {
	const q = `SELECT id, username, status FROM users WHERE id = $1 LIMIT 1`
	var u repository.User
	err := s.pool.QueryRow(ctx, q, id).Scan(&u.ID, &u.Username, &u.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *UserStore) Exists(ctx context.Context, id string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
