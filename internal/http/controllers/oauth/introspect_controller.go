package oauth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/pulsegram/authd/internal/http/httpx"
	svc "github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// IntrospectController handles POST /oauth/introspect.
//
// El endpoint puede protegerse con basic auth de resource server (RFC 7662
// exige autenticación del caller); si no hay credenciales configuradas queda
// abierto, pensado para despliegues detrás de una red interna.
type IntrospectController struct {
	service   svc.IntrospectService
	basicUser string
	basicPass string
}

// NewIntrospectController creates the controller. basicUser/basicPass vacíos
// desactivan la autenticación.
func NewIntrospectController(s svc.IntrospectService, basicUser, basicPass string) *IntrospectController {
	return &IntrospectController{service: s, basicUser: basicUser, basicPass: basicPass}
}

// Introspect reporta el estado del token presentado.
func (c *IntrospectController) Introspect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("oauth.introspect"))

	if !c.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Basic realm="introspection"`)
		httpx.WriteOAuthError(w, http.StatusUnauthorized, "invalid_client", "Resource server authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := r.ParseForm(); err != nil {
		log.Warn("failed to parse form", logger.Err(err))
		httpx.WriteOAuthError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	token := strings.TrimSpace(r.PostForm.Get("token"))
	info, err := c.service.Introspect(ctx, token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteNoStore(w, info)
}

func (c *IntrospectController) authorized(r *http.Request) bool {
	if c.basicUser == "" && c.basicPass == "" {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.basicUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(c.basicPass)) == 1
	return userOK && passOK
}
