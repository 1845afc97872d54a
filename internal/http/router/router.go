// Package router registra las rutas HTTP del servidor de autorización.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ctrl "github.com/pulsegram/authd/internal/http/controllers/oauth"
	"github.com/pulsegram/authd/internal/http/httpx"
	mw "github.com/pulsegram/authd/internal/http/middlewares"
	"github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/rate"
)

// Deps contiene todo lo que el router necesita para armar los handlers.
type Deps struct {
	Authorize  *ctrl.AuthorizeController
	Token      *ctrl.TokenController
	Introspect *ctrl.IntrospectController
	Revoke     *ctrl.RevokeController

	// Apps y RateChecker alimentan el middleware de cuota. RateChecker nil
	// desactiva el limiting.
	Apps        oauth.ApplicationLookup
	RateChecker *rate.Checker

	// Health reporta el estado de las dependencias; nil significa "siempre ok".
	Health func() error
}

// New arma el mux chi con las rutas OAuth y las de operación.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Method(http.MethodGet, "/oauth/authorize", oauthHandler(d, http.HandlerFunc(d.Authorize.Authorize)))
	r.Method(http.MethodPost, "/oauth/authorize", oauthHandler(d, http.HandlerFunc(d.Authorize.Authorize)))
	r.Method(http.MethodPost, "/oauth/token", oauthHandler(d, http.HandlerFunc(d.Token.Token)))
	r.Method(http.MethodPost, "/oauth/introspect", oauthHandler(d, http.HandlerFunc(d.Introspect.Introspect)))
	r.Method(http.MethodPost, "/oauth/revoke", oauthHandler(d, http.HandlerFunc(d.Revoke.Revoke)))

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.Health != nil {
			if err := d.Health(); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}

// oauthHandler arma el middleware chain de los endpoints OAuth. El orden
// importa: recover afuera de todo, request id antes del logging, y el rate
// limit después del logging para que los 429 queden logueados.
func oauthHandler(d Deps, handler http.Handler) http.Handler {
	chain := []mw.Middleware{
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithNoStore(),
		mw.WithLogging(),
	}
	if d.RateChecker != nil {
		chain = append(chain, mw.WithRateLimit(d.Apps, d.RateChecker))
	}
	return mw.Chain(handler, chain...)
}
