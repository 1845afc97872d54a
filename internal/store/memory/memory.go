// Package memory implementa los repositorios sobre maps en memoria.
// Sirve para desarrollo local y para los tests de servicio; las garantías
// de concurrencia (Exchange/Revoke condicionales) se sostienen con un mutex
// por store, igual que el conditional UPDATE las sostiene en postgres.
package memory

// Store agrupa los tres repositorios.
type Store struct {
	Apps   *ApplicationStore
	Tokens *TokenStore
	Users  *UserStore
}

func New() *Store {
	return &Store{
		Apps:   NewApplicationStore(),
		Tokens: NewTokenStore(),
		Users:  NewUserStore(),
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
