package oauth

import (
	"net/http"
	"strings"

	"github.com/pulsegram/authd/internal/http/httpx"
	"github.com/pulsegram/authd/internal/metrics"
	svc "github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// TokenController handles POST /oauth/token.
type TokenController struct {
	service svc.TokenService
}

// NewTokenController creates the controller.
func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token implementa los grants authorization_code, refresh_token y
// client_credentials sobre un body form-encoded.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.token"))

	// Body acotado: un form OAuth jamás necesita más de 64KB.
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	grantType := strings.TrimSpace(r.PostForm.Get("grant_type"))

	req := svc.TokenRequest{
		GrantType:    grantType,
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: strings.TrimSpace(r.PostForm.Get("client_secret")),
		Code:         strings.TrimSpace(r.PostForm.Get("code")),
		RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		CodeVerifier: strings.TrimSpace(r.PostForm.Get("code_verifier")),
		RefreshToken: strings.TrimSpace(r.PostForm.Get("refresh_token")),
		Scope:        strings.TrimSpace(r.PostForm.Get("scope")),
	}

	resp, err := c.service.Exchange(ctx, req)
	if err != nil {
		metrics.GrantExchanges.WithLabelValues(grantLabel(grantType), "error").Inc()
		writeServiceError(w, r, err)
		return
	}

	metrics.GrantExchanges.WithLabelValues(grantLabel(grantType), "ok").Inc()
	httpx.WriteNoStore(w, resp)
}

// grantLabel acota la cardinalidad del label: cualquier string fuera del set
// conocido colapsa en "unknown".
func grantLabel(grantType string) string {
	switch grantType {
	case svc.GrantAuthorizationCode, svc.GrantRefreshToken, svc.GrantClientCredentials:
		return grantType
	default:
		return "unknown"
	}
}
