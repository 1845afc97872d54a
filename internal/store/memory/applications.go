package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// ApplicationStore implementa repository.ApplicationRepository en memoria.
type ApplicationStore struct {
	mu         sync.RWMutex
	byClientID map[string]*repository.Application
}

func NewApplicationStore() *ApplicationStore {
	return &ApplicationStore{byClientID: make(map[string]*repository.Application)}
}

func (s *ApplicationStore) GetByClientID(_ context.Context, clientID string) (*repository.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.byClientID[clientID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneApp(app), nil
}

func (s *ApplicationStore) Create(_ context.Context, app *repository.Application) error {
	if app == nil || app.ClientID == "" {
		return repository.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byClientID[app.ClientID]; exists {
		return repository.ErrConflict
	}
	stored := cloneApp(app)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.byClientID[stored.ClientID] = stored
	*app = *cloneApp(stored)
	return nil
}

func cloneApp(a *repository.Application) *repository.Application {
	out := *a
	out.RedirectURIs = cloneStrings(a.RedirectURIs)
	out.ApprovedScopes = cloneStrings(a.ApprovedScopes)
	out.RateLimitOverride = clonePtr(a.RateLimitOverride)
	return &out
}
