// Package appstore resuelve applications por client_id con un cache
// read-through encima del repositorio. Cada request al token endpoint hace
// este lookup, así que la entrada caliente se sirve desde cache y los misses
// concurrentes se colapsan con singleflight.
package appstore

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pulsegram/authd/internal/cache"
	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/observability/logger"
)

const keyPrefix = "app:"

// Store es un ApplicationRepository con cache; satisface la misma interfaz
// de lectura que el repositorio subyacente.
type Store struct {
	repo  repository.ApplicationRepository
	cache cache.Cache
	ttl   time.Duration
	sf    singleflight.Group
}

func New(repo repository.ApplicationRepository, c cache.Cache, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Store{repo: repo, cache: c, ttl: ttl}
}

// GetByClientID retorna la application desde cache o repositorio.
// Los errores del cache nunca fallan el lookup, solo lo degradan.
func (s *Store) GetByClientID(ctx context.Context, clientID string) (*repository.Application, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(keyPrefix + clientID); ok {
			var app repository.Application
			if err := json.Unmarshal(b, &app); err == nil {
				return &app, nil
			}
			// Entrada corrupta: descartar y recargar.
			s.cache.Delete(keyPrefix + clientID)
		}
	}

	v, err, _ := s.sf.Do(clientID, func() (any, error) {
		app, err := s.repo.GetByClientID(ctx, clientID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if b, err := json.Marshal(app); err == nil {
				s.cache.Set(keyPrefix+clientID, b, s.ttl)
			} else {
				logger.From(ctx).Debug("app cache marshal failed", logger.Err(err))
			}
		}
		return app, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*repository.Application), nil
}

// Invalidate descarta la entrada cacheada de un client_id.
func (s *Store) Invalidate(clientID string) {
	if s.cache != nil {
		s.cache.Delete(keyPrefix + clientID)
	}
}
