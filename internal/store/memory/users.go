package memory

import (
	"context"
	"sync"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// UserStore implementa repository.UserRepository en memoria.
type UserStore struct {
	mu   sync.RWMutex
	byID map[string]*repository.User
}

func NewUserStore() *UserStore {
	return &UserStore{byID: make(map[string]*repository.User)}
}

// Put registra o reemplaza un usuario (seed de desarrollo y tests).
func (s *UserStore) Put(u *repository.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.byID[cp.ID] = &cp
}

func (s *UserStore) GetByID(_ context.Context, id string) (*repository.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *UserStore) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byID[id]
	return ok, nil
}
