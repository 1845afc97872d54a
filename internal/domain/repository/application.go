package repository

import (
	"context"
	"time"
)

const (
	AppStatusActive    = "active"
	AppStatusSuspended = "suspended"

	AppEnvDevelopment = "development"
	AppEnvProduction  = "production"
)

// Application representa un cliente third-party registrado.
// La crea un flujo de registro externo; este core la trata como read-only.
type Application struct {
	ID       string // UUID interno
	ClientID string // identificador público
	Name     string

	// ClientSecretHash es el hash argon2id (PHC) del secret.
	// El plaintext nunca se persiste.
	ClientSecretHash string

	// RedirectURIs admite solo match exacto (nunca prefijo).
	RedirectURIs []string

	// ApprovedScopes es el conjunto de scopes que el operador autorizó
	// a esta application a solicitar.
	ApprovedScopes []string

	// Environment: "development" | "production". Define el tier de rate limit.
	Environment string

	// RateLimitOverride, si no es nil, pisa el límite del tier.
	RateLimitOverride *int

	// Status: "active" | "suspended".
	Status string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Active reports whether the application may take part in any grant.
func (a *Application) Active() bool {
	return a != nil && a.Status == AppStatusActive
}

// AllowsRedirectURI checks for an exact match against the registered URIs.
// Partial or prefix matching is an open-redirect vector and is never done.
func (a *Application) AllowsRedirectURI(uri string) bool {
	for _, u := range a.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// ApplicationRepository define el acceso a applications registradas.
type ApplicationRepository interface {
	// GetByClientID busca una application por su client_id público.
	// Retorna ErrNotFound si no existe.
	GetByClientID(ctx context.Context, clientID string) (*Application, error)

	// Create registra una application. Retorna ErrConflict si el
	// client_id ya existe. Lo usa el CLI de operador, no el core.
	Create(ctx context.Context, app *Application) error
}
