// Package oauth contiene los services del core de autorización: emisión de
// authorization codes, la state machine de token exchange, introspección y
// revocación. Los controllers HTTP son wrappers finos sobre estas interfaces.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// OAuth2 error taxonomy. Los controllers mapean estos sentinels al campo
// "error" del JSON de respuesta.
var (
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidGrant       = errors.New("invalid_grant")
	ErrUnauthorizedClient = errors.New("unauthorized_client")
	ErrInvalidScope       = errors.New("invalid_scope")
	ErrServerError        = errors.New("server_error")
)

// InvalidScopeError lleva los dos conjuntos en el mensaje: qué pidió el
// cliente y qué tiene aprobado (o qué existe en el catálogo). Un integrador
// que ve solo "invalid_scope" pierde horas; con los dos sets a la vista, no.
type InvalidScopeError struct {
	Requested []string
	Allowed   []string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid_scope: requested [%s] but allowed [%s]",
		strings.Join(e.Requested, " "), strings.Join(e.Allowed, " "))
}

func (e *InvalidScopeError) Is(target error) bool { return target == ErrInvalidScope }

// ApplicationLookup es lo que los services necesitan de la capa de
// applications; lo satisface tanto appstore.Store como el repo directo.
type ApplicationLookup interface {
	GetByClientID(ctx context.Context, clientID string) (*repository.Application, error)
}
