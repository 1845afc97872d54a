package oauth

import (
	"net/http"
	"strings"

	"github.com/pulsegram/authd/internal/http/httpx"
	svc "github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/scope"
)

// AuthorizeController handles GET/POST /oauth/authorize.
type AuthorizeController struct {
	service svc.AuthorizeService
}

// NewAuthorizeController creates the controller.
func NewAuthorizeController(s svc.AuthorizeService) *AuthorizeController {
	return &AuthorizeController{service: s}
}

type authorizeResponse struct {
	Code  string `json:"code"`
	State string `json:"state,omitempty"`
	Scope string `json:"scope"`
}

// Authorize valida el authorization request y devuelve el single-use code.
// El user_id llega resuelto por la capa de sesión interactiva, que es un
// colaborador externo a este servicio.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.authorize"))

	params := r.URL.Query()
	if r.Method == http.MethodPost {
		r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
		if err := r.ParseForm(); err != nil {
			log.Warn("failed to parse form", logger.Err(err))
			httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
			return
		}
		params = r.PostForm
	}

	req := svc.AuthorizeRequest{
		ResponseType:        strings.TrimSpace(params.Get("response_type")),
		ClientID:            strings.TrimSpace(params.Get("client_id")),
		RedirectURI:         strings.TrimSpace(params.Get("redirect_uri")),
		Scope:               strings.TrimSpace(params.Get("scope")),
		State:               params.Get("state"),
		CodeChallenge:       strings.TrimSpace(params.Get("code_challenge")),
		CodeChallengeMethod: strings.TrimSpace(params.Get("code_challenge_method")),
		UserID:              strings.TrimSpace(params.Get("user_id")),
	}

	resp, err := c.service.Authorize(ctx, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteNoStore(w, authorizeResponse{
		Code:  resp.Code,
		State: resp.State,
		Scope: scope.Join(resp.Scopes),
	})
}
