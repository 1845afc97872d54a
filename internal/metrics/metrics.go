// Package metrics define los contadores Prometheus del servidor de
// autorización. Van en un package propio para que services, middlewares y
// controllers los compartan sin ciclos de import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authd_http_requests_total",
		Help: "Requests HTTP por ruta, método y status",
	}, []string{"route", "method", "status"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "authd_http_request_duration_ms",
		Help:    "Latencia de requests HTTP en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"route"})

	GrantExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authd_grant_exchanges_total",
		Help: "Canjes en /oauth/token por grant_type y resultado",
	}, []string{"grant_type", "result"})

	RateLimitDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "authd_rate_limit_decisions_total",
		Help: "Verdictos del rate limiter (allowed, denied, fail_open)",
	}, []string{"decision"})

	TokensRevoked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "authd_tokens_revoked_total",
		Help: "Tokens marcados como revocados",
	})
)

// Register registra todos los collectors en el registry dado (o el default
// si es nil). Registrar dos veces no es error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		HTTPRequests, HTTPDuration, GrantExchanges, RateLimitDecisions, TokensRevoked,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
