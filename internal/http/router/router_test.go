package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegram/authd/internal/domain/repository"
	ctrl "github.com/pulsegram/authd/internal/http/controllers/oauth"
	jwtx "github.com/pulsegram/authd/internal/jwt"
	"github.com/pulsegram/authd/internal/oauth"
	"github.com/pulsegram/authd/internal/rate"
	"github.com/pulsegram/authd/internal/security/keyhash"
	"github.com/pulsegram/authd/internal/store/memory"
)

var testHashParams = keyhash.Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

const testSecret = "router-test-secret"

// newTestServer arma el stack completo sobre el store en memoria, con un
// límite bajo para poder ejercitar el 429.
func newTestServer(t *testing.T, limit int) http.Handler {
	t.Helper()

	st := memory.New()
	secretHash, err := keyhash.Hash(testHashParams, testSecret)
	require.NoError(t, err)

	app := &repository.Application{
		ClientID:         "client-r",
		Name:             "Router test",
		ClientSecretHash: secretHash,
		RedirectURIs:     []string{"https://client.example/cb"},
		ApprovedScopes:   []string{"read:profile"},
		Environment:      repository.AppEnvDevelopment,
		Status:           repository.AppStatusActive,
	}
	if limit > 0 {
		app.RateLimitOverride = &limit
	}
	require.NoError(t, st.Apps.Create(context.Background(), app))
	st.Users.Put(&repository.User{ID: "user-1", Username: "ana", Status: "active"})

	ks, err := jwtx.NewEphemeralKeystore()
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("https://auth.test", ks, time.Hour, 2*time.Hour)

	authorizeSvc := oauth.NewAuthorizeService(oauth.AuthorizeDeps{
		Apps: st.Apps, Users: st.Users, Tokens: st.Tokens, CodeTTL: 10 * time.Minute,
	})
	tokenSvc := oauth.NewTokenService(oauth.TokenDeps{
		Apps: st.Apps, Tokens: st.Tokens, Issuer: issuer, HashParams: testHashParams,
	})
	introspectSvc := oauth.NewIntrospectService(oauth.IntrospectDeps{
		Tokens: st.Tokens, Users: st.Users, Issuer: issuer,
	})
	revokeSvc := oauth.NewRevokeService(oauth.RevokeDeps{Tokens: st.Tokens})

	var checker *rate.Checker
	if limit > 0 {
		checker = rate.NewChecker(rate.NewMemoryLimiter(), rate.Policy{
			Enabled:  true,
			Window:   time.Hour,
			DevLimit: 1000,
		})
	}

	return New(Deps{
		Authorize:   ctrl.NewAuthorizeController(authorizeSvc),
		Token:       ctrl.NewTokenController(tokenSvc),
		Introspect:  ctrl.NewIntrospectController(introspectSvc, "", ""),
		Revoke:      ctrl.NewRevokeController(revokeSvc),
		Apps:        st.Apps,
		RateChecker: checker,
	})
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFullAuthorizationCodeFlow(t *testing.T) {
	h := newTestServer(t, 0)

	// 1. /oauth/authorize
	rec := postForm(h, "/oauth/authorize", url.Values{
		"response_type": {"code"},
		"client_id":     {"client-r"},
		"redirect_uri":  {"https://client.example/cb"},
		"scope":         {"read:profile"},
		"state":         {"abc"},
		"user_id":       {"user-1"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var authz struct {
		Code  string `json:"code"`
		State string `json:"state"`
		Scope string `json:"scope"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &authz))
	assert.Equal(t, "abc", authz.State)
	assert.Equal(t, "read:profile", authz.Scope)

	// 2. /oauth/token
	rec = postForm(h, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"client-r"},
		"client_secret": {testSecret},
		"code":          {authz.Code},
		"redirect_uri":  {"https://client.example/cb"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	assert.Equal(t, "Bearer", tokens.TokenType)
	assert.InDelta(t, 3600, tokens.ExpiresIn, 5)

	// 3. /oauth/introspect
	rec = postForm(h, "/oauth/introspect", url.Values{"token": {tokens.AccessToken}})
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Active   bool   `json:"active"`
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.True(t, info.Active)
	assert.Equal(t, "ana", info.Username)

	// 4. /oauth/revoke + introspección posterior inactiva
	rec = postForm(h, "/oauth/revoke", url.Values{"token": {tokens.AccessToken}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postForm(h, "/oauth/introspect", url.Values{"token": {tokens.AccessToken}})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"active":false`)
	assert.NotContains(t, body, "username")
}

func TestTokenEndpointErrorShape(t *testing.T) {
	h := newTestServer(t, 0)

	rec := postForm(h, "/oauth/token", url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {"client-r"},
		"client_secret": {"wrong"},
		"code":          {"whatever"},
		"redirect_uri":  {"https://client.example/cb"},
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"invalid_client"`)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRateLimitHeadersAndDeny(t *testing.T) {
	h := newTestServer(t, 3)

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {"client-r"},
		"client_secret": {testSecret},
	}

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = postForm(h, "/oauth/token", form)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		// Headers presentes también en requests permitidos.
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	}

	rec = postForm(h, "/oauth/token", form)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate_limit_exceeded")
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Used"))
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
