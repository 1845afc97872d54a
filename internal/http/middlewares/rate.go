package middlewares

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/http/httpx"
	"github.com/pulsegram/authd/internal/metrics"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/rate"
)

// WithRateLimit aplica la cuota por (application, user, endpoint) antes de
// entrar al handler. Los headers X-RateLimit-* se adjuntan SIEMPRE, permita
// o no; el deny responde 429 con el reset en el cuerpo.
//
// La key necesita el application ID, así que el middleware resuelve el
// client_id del request (form o query). Un request sin client_id no se
// limita acá: va a fallar igual en el service con invalid_request o
// invalid_client.
func WithRateLimit(apps oauth.ApplicationLookup, checker *rate.Checker) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if checker == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientID, userID := rateIdentity(r)
			if clientID == "" {
				next.ServeHTTP(w, r)
				return
			}

			app, err := apps.GetByClientID(r.Context(), clientID)
			if err != nil {
				if !repository.IsNotFound(err) {
					logger.From(r.Context()).Warn("rate limit app lookup failed",
						logger.Component("rate"), logger.Err(err))
				}
				next.ServeHTTP(w, r)
				return
			}

			res := checker.Check(r.Context(), app, userID, r.URL.Path)
			setRateHeaders(w, res)

			if !res.Allowed {
				metrics.RateLimitDecisions.WithLabelValues("denied").Inc()
				httpx.WriteOAuthError(w, http.StatusTooManyRequests,
					"rate_limit_exceeded",
					"Rate limit exceeded, retry after "+res.ResetAt.UTC().Format("2006-01-02T15:04:05Z"))
				return
			}
			metrics.RateLimitDecisions.WithLabelValues("allowed").Inc()

			next.ServeHTTP(w, r)
		})
	}
}

// rateIdentity saca client_id y user_id del request sin consumir el body:
// ParseForm cachea PostForm, así que los handlers pueden releerla.
func rateIdentity(r *http.Request) (clientID, userID string) {
	ct := r.Header.Get("Content-Type")
	if r.Method == http.MethodPost && strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		_ = r.ParseForm()
		clientID = strings.TrimSpace(r.PostForm.Get("client_id"))
		userID = strings.TrimSpace(r.PostForm.Get("user_id"))
	}
	if clientID == "" {
		clientID = strings.TrimSpace(r.URL.Query().Get("client_id"))
	}
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user_id"))
	}
	return clientID, userID
}

func setRateHeaders(w http.ResponseWriter, res rate.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
	h.Set("X-RateLimit-Used", strconv.FormatInt(res.Current, 10))
}
