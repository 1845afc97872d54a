package repository

import "context"

// User es el contrato mínimo con el resto de la plataforma: este core solo
// necesita saber que el usuario existe y su username para introspección.
type User struct {
	ID       string
	Username string
	Status   string
}

// UserRepository define el lookup de usuarios (colaborador externo).
type UserRepository interface {
	// GetByID retorna ErrNotFound si el usuario no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	// Exists verifica existencia sin traer el registro.
	Exists(ctx context.Context, id string) (bool, error)
}
