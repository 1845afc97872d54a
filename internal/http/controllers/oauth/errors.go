// Package oauth contiene los controllers HTTP del core de autorización:
// wrappers finos que parsean el request, delegan al service y mapean la
// taxonomía de errores al JSON OAuth2.
package oauth

import (
	"errors"
	"net/http"

	"github.com/pulsegram/authd/internal/http/httpx"
	svc "github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// writeServiceError mapea los sentinels del service al par (status, error).
// Para invalid_scope el mensaje del error lleva los dos conjuntos y se
// propaga tal cual; el resto usa descripciones fijas para no filtrar detalle.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, svc.ErrInvalidRequest):
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Missing or invalid parameters")
	case errors.Is(err, svc.ErrInvalidClient):
		httpx.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "Client authentication failed")
	case errors.Is(err, svc.ErrInvalidGrant):
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_grant", "Invalid or expired grant")
	case errors.Is(err, svc.ErrUnauthorizedClient):
		httpx.WriteOAuthError(w, http.StatusForbidden, "unauthorized_client", "Application is not authorized")
	case errors.Is(err, svc.ErrInvalidScope):
		var se *svc.InvalidScopeError
		if errors.As(err, &se) {
			httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_scope", se.Error())
			return
		}
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_scope", "Requested scope is invalid or not allowed")
	default:
		logger.From(r.Context()).Error("oauth endpoint error", logger.Err(err))
		httpx.WriteOAuthError(w, http.StatusInternalServerError, "server_error", "An unexpected error occurred")
	}
}
