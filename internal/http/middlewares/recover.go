package middlewares

import (
	"net/http"
	"runtime/debug"

	"github.com/pulsegram/authd/internal/http/httpx"
	"github.com/pulsegram/authd/internal/observability/logger"
)

// WithRecover convierte panics en 500 con shape OAuth en vez de tumbar el
// proceso. El stack va al log, nunca al caller.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recovered",
						logger.Path(r.URL.Path),
						logger.String("panic", toString(rec)),
						logger.String("stack", string(debug.Stack())),
					)
					httpx.WriteOAuthError(w, http.StatusInternalServerError,
						"server_error", "An unexpected error occurred")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}
