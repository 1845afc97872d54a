package oauth

import (
	"net/http"
	"strings"

	"github.com/pulsegram/authd/internal/http/httpx"
	"github.com/pulsegram/authd/internal/metrics"
	svc "github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// RevokeController handles POST /oauth/revoke.
type RevokeController struct {
	service svc.RevokeService
}

// NewRevokeController creates the controller.
func NewRevokeController(s svc.RevokeService) *RevokeController {
	return &RevokeController{service: s}
}

// Revoke responde 200 exista o no el token: la diferencia de respuesta entre
// "revocado" y "no existía" sería un canal de enumeración.
func (c *RevokeController) Revoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.revoke"))

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	if err := c.service.Revoke(ctx, token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	metrics.TokensRevoked.Inc()
	httpx.WriteNoStore(w, map[string]bool{"revoked": true})
}
