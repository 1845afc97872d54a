package oauth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"time"

	"github.com/pulsegram/authd/internal/audit"
	"github.com/pulsegram/authd/internal/domain/repository"
	jwtx "github.com/pulsegram/authd/internal/jwt"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/scope"
	"github.com/pulsegram/authd/internal/security/keyhash"
)

// TokenDeps contains dependencies for the token service.
type TokenDeps struct {
	Apps       ApplicationLookup
	Tokens     repository.TokenRepository
	Scopes     *scope.Registry
	Issuer     *jwtx.Issuer
	HashParams keyhash.Params
}

type grantHandler func(ctx context.Context, req TokenRequest) (*TokenResponse, error)

type tokenService struct {
	apps       ApplicationLookup
	tokens     repository.TokenRepository
	scopes     *scope.Registry
	issuer     *jwtx.Issuer
	hashParams keyhash.Params

	// Dispatch cerrado por grant type; agregar un grant es agregar una
	// entrada acá, no un string-branch más en un switch gigante.
	grants map[string]grantHandler
}

// NewTokenService creates a new TokenService.
func NewTokenService(d TokenDeps) TokenService {
	reg := d.Scopes
	if reg == nil {
		reg = scope.Default()
	}
	params := d.HashParams
	if params.Memory == 0 {
		params = keyhash.Default
	}
	s := &tokenService{
		apps:       d.Apps,
		tokens:     d.Tokens,
		scopes:     reg,
		issuer:     d.Issuer,
		hashParams: params,
	}
	s.grants = map[string]grantHandler{
		GrantAuthorizationCode: s.exchangeAuthorizationCode,
		GrantRefreshToken:      s.exchangeRefreshToken,
		GrantClientCredentials: s.exchangeClientCredentials,
	}
	return s
}

func (s *tokenService) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	handler, ok := s.grants[req.GrantType]
	if !ok {
		logger.From(ctx).Warn("unsupported grant_type",
			logger.Layer("service"), logger.GrantType(req.GrantType))
		return nil, ErrInvalidRequest
	}
	return handler(ctx, req)
}

// authenticateClient resuelve la application y verifica el secret contra el
// hash adaptativo. Cualquier falla es invalid_client sin distinguir causa.
func (s *tokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*repository.Application, error) {
	log := logger.From(ctx).With(logger.Layer("service"))

	app, err := s.apps.GetByClientID(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("client not found", logger.ClientID(clientID))
			return nil, ErrInvalidClient
		}
		log.Error("application lookup failed", logger.Err(err))
		return nil, ErrServerError
	}
	if !keyhash.Verify(clientSecret, app.ClientSecretHash) {
		log.Warn("client secret mismatch", logger.ClientID(clientID))
		return nil, ErrInvalidClient
	}
	if !app.Active() {
		log.Warn("application suspended", logger.ClientID(clientID))
		return nil, ErrUnauthorizedClient
	}
	return app, nil
}

func (s *tokenService) exchangeAuthorizationCode(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.authcode"))

	if req.Code == "" || req.ClientID == "" || req.ClientSecret == "" || req.RedirectURI == "" {
		return nil, ErrInvalidRequest
	}

	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	rec, err := s.tokens.GetByCode(ctx, req.Code)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("authorization code not found", logger.ClientID(req.ClientID))
			return nil, ErrInvalidGrant
		}
		log.Error("code lookup failed", logger.Err(err))
		return nil, ErrServerError
	}

	if rec.ApplicationID != app.ID {
		log.Warn("code issued to another client", logger.ClientID(req.ClientID))
		return nil, ErrInvalidGrant
	}
	if rec.Exchanged() || rec.Revoked {
		log.Warn("authorization code replay", logger.TokenID(rec.ID))
		return nil, ErrInvalidGrant
	}
	if rec.CodeExpiresAt == nil || time.Now().After(*rec.CodeExpiresAt) {
		log.Warn("authorization code expired", logger.TokenID(rec.ID))
		return nil, ErrInvalidGrant
	}
	if rec.RedirectURI != req.RedirectURI {
		log.Warn("redirect_uri mismatch", logger.TokenID(rec.ID))
		return nil, ErrInvalidGrant
	}

	// PKCE: un solo invalid_grant para cualquier falla, sin detallar cuál.
	if rec.PKCEChallenge != nil {
		if req.CodeVerifier == "" || !verifyPKCE(*rec.PKCEChallenge, deref(rec.PKCEMethod), req.CodeVerifier) {
			log.Warn("pkce verification failed", logger.TokenID(rec.ID))
			return nil, ErrInvalidGrant
		}
	}

	sub := deref(rec.UserID)
	pair, upd, err := s.generatePair(ctx, sub, req.ClientID, rec.Scopes)
	if err != nil {
		return nil, err
	}

	// El conditional update decide la carrera: si dos requests canjean el
	// mismo code, exactamente uno ve access_token_hash == NULL.
	if err := s.tokens.Exchange(ctx, rec.ID, *upd); err != nil {
		if repository.IsConflict(err) || repository.IsNotFound(err) {
			log.Warn("authorization code lost exchange race", logger.TokenID(rec.ID))
			return nil, ErrInvalidGrant
		}
		log.Error("exchange write failed", logger.Err(err))
		return nil, ErrServerError
	}

	audit.Log(ctx, audit.EventTokensGenerated,
		logger.GrantType(GrantAuthorizationCode),
		logger.ClientID(req.ClientID),
		logger.TokenID(rec.ID),
		logger.Scope(scope.Join(rec.Scopes)),
	)

	return &TokenResponse{
		AccessToken:  pair.access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.accessExp).Seconds()),
		RefreshToken: pair.refresh,
		Scope:        scope.Join(rec.Scopes),
	}, nil
}

func (s *tokenService) exchangeRefreshToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.refresh"))

	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest
	}

	fp := keyhash.Fingerprint(req.RefreshToken)
	rec, err := s.tokens.GetByRefreshFingerprint(ctx, fp)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("refresh token not found")
			return nil, ErrInvalidGrant
		}
		log.Error("refresh lookup failed", logger.Err(err))
		return nil, ErrServerError
	}

	// Fingerprint matcheó pero el hash no: o colisión del digest o un token
	// forjado con fingerprint copiado. Incidente de seguridad, no detalle
	// para el caller.
	if rec.RefreshTokenHash == nil || !keyhash.Verify(req.RefreshToken, *rec.RefreshTokenHash) {
		audit.Security(ctx, audit.EventFingerprintMismatch,
			logger.TokenID(rec.ID),
			logger.String("credential", "refresh_token"),
		)
		return nil, ErrInvalidGrant
	}

	if rec.Revoked {
		// Reuso de un refresh ya rotado: señal de robo de token.
		audit.Security(ctx, audit.EventRefreshReuse,
			logger.TokenID(rec.ID),
			logger.AppID(rec.ApplicationID),
		)
		return nil, ErrInvalidGrant
	}
	if rec.RefreshExpiresAt == nil || time.Now().After(*rec.RefreshExpiresAt) {
		log.Warn("refresh token expired", logger.TokenID(rec.ID))
		return nil, ErrInvalidGrant
	}
	// El client dueño del token sale del claim del propio refresh; el
	// client_id del request es un binding opcional que, si viene, tiene que
	// coincidir.
	claims, err := s.issuer.Parse(req.RefreshToken, jwtx.TypeRefresh)
	if err != nil {
		log.Warn("refresh token claims rejected", logger.Err(err))
		return nil, ErrInvalidGrant
	}
	clientID := claims.ClientID
	if req.ClientID != "" && req.ClientID != clientID {
		log.Warn("refresh token client mismatch", logger.ClientID(req.ClientID))
		return nil, ErrInvalidGrant
	}

	app, err := s.apps.GetByClientID(ctx, clientID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("refresh token client not found", logger.ClientID(clientID))
			return nil, ErrInvalidGrant
		}
		log.Error("application lookup failed", logger.Err(err))
		return nil, ErrServerError
	}
	if app.ID != rec.ApplicationID {
		log.Warn("refresh token client mismatch", logger.ClientID(clientID))
		return nil, ErrInvalidGrant
	}
	if !app.Active() {
		log.Warn("application suspended", logger.ClientID(clientID))
		return nil, ErrUnauthorizedClient
	}

	// Rotación: revocar el viejo ANTES de emitir el nuevo. Si el proceso
	// muere entre ambos pasos el cliente legítimo re-autentica (modo de
	// falla seguro); nunca quedan dos refresh vivos de la misma cadena.
	flipped, err := s.tokens.Revoke(ctx, rec.ID)
	if err != nil {
		log.Error("revoking rotated refresh failed", logger.Err(err))
		return nil, ErrServerError
	}
	if !flipped {
		// Otro request llegó primero con el mismo token.
		audit.Security(ctx, audit.EventRefreshReuse,
			logger.TokenID(rec.ID),
			logger.AppID(rec.ApplicationID),
		)
		return nil, ErrInvalidGrant
	}

	sub := deref(rec.UserID)
	if sub == "" {
		sub = clientID
	}
	pair, upd, err := s.generatePair(ctx, sub, clientID, rec.Scopes)
	if err != nil {
		return nil, err
	}

	next := &repository.DelegatedToken{
		ApplicationID:           rec.ApplicationID,
		UserID:                  rec.UserID,
		Scopes:                  rec.Scopes, // nunca se amplían en rotación
		AccessTokenFingerprint:  &upd.AccessTokenFingerprint,
		AccessTokenHash:         &upd.AccessTokenHash,
		RefreshTokenFingerprint: &upd.RefreshTokenFingerprint,
		RefreshTokenHash:        &upd.RefreshTokenHash,
		ExpiresAt:               &upd.ExpiresAt,
		RefreshExpiresAt:        &upd.RefreshExpiresAt,
		RotatedFrom:             &rec.ID,
	}
	if err := s.tokens.Create(ctx, next); err != nil {
		log.Error("persisting rotated tokens failed", logger.Err(err))
		return nil, ErrServerError
	}

	audit.Log(ctx, audit.EventTokensGenerated,
		logger.GrantType(GrantRefreshToken),
		logger.AppID(rec.ApplicationID),
		logger.TokenID(next.ID),
	)

	return &TokenResponse{
		AccessToken:  pair.access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.accessExp).Seconds()),
		RefreshToken: pair.refresh,
		Scope:        scope.Join(rec.Scopes),
	}, nil
}

func (s *tokenService) exchangeClientCredentials(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.clientcreds"))

	if req.ClientID == "" || req.ClientSecret == "" {
		return nil, ErrInvalidRequest
	}

	app, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	// Sin usuario no hay consentimiento que recortar: scope vacío significa
	// el set aprobado completo.
	var granted []string
	if requested := scope.Split(req.Scope); len(requested) > 0 {
		valid, invalid := s.scopes.ValidateList(requested)
		if len(invalid) > 0 {
			return nil, &InvalidScopeError{Requested: invalid, Allowed: s.scopes.Names()}
		}
		granted = scope.Intersect(valid, app.ApprovedScopes)
		if len(granted) == 0 {
			return nil, &InvalidScopeError{Requested: requested, Allowed: app.ApprovedScopes}
		}
	} else {
		granted = app.ApprovedScopes
	}

	pair, upd, err := s.generatePair(ctx, req.ClientID, req.ClientID, granted)
	if err != nil {
		return nil, err
	}

	rec := &repository.DelegatedToken{
		ApplicationID:           app.ID,
		UserID:                  nil, // grant máquina-a-máquina
		Scopes:                  granted,
		AccessTokenFingerprint:  &upd.AccessTokenFingerprint,
		AccessTokenHash:         &upd.AccessTokenHash,
		RefreshTokenFingerprint: &upd.RefreshTokenFingerprint,
		RefreshTokenHash:        &upd.RefreshTokenHash,
		ExpiresAt:               &upd.ExpiresAt,
		RefreshExpiresAt:        &upd.RefreshExpiresAt,
	}
	if err := s.tokens.Create(ctx, rec); err != nil {
		log.Error("persisting client_credentials tokens failed", logger.Err(err))
		return nil, ErrServerError
	}

	audit.Log(ctx, audit.EventTokensGenerated,
		logger.GrantType(GrantClientCredentials),
		logger.ClientID(req.ClientID),
		logger.TokenID(rec.ID),
		logger.Scope(scope.Join(granted)),
	)

	return &TokenResponse{
		AccessToken:  pair.access,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(pair.accessExp).Seconds()),
		RefreshToken: pair.refresh,
		Scope:        scope.Join(granted),
	}, nil
}

// --- Token generation (cola compartida de los tres grants) ---

type issuedPair struct {
	access     string
	refresh    string
	accessExp  time.Time
	refreshExp time.Time
}

// generatePair emite el par access/refresh firmado y computa fingerprint y
// hash de verificación de cada uno. El plaintext solo viaja en el retorno;
// lo único que se persiste son las dos representaciones derivadas.
func (s *tokenService) generatePair(ctx context.Context, sub, clientID string, scopes []string) (*issuedPair, *repository.ExchangeUpdate, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.token.generate"))

	access, accessExp, err := s.issuer.IssueAccess(sub, clientID, scopes)
	if err != nil {
		log.Error("issuing access token failed", logger.Err(err))
		return nil, nil, ErrServerError
	}
	refresh, refreshExp, err := s.issuer.IssueRefresh(sub, clientID, scopes)
	if err != nil {
		log.Error("issuing refresh token failed", logger.Err(err))
		return nil, nil, ErrServerError
	}

	accessHash, err := keyhash.Hash(s.hashParams, access)
	if err != nil {
		log.Error("hashing access token failed", logger.Err(err))
		return nil, nil, ErrServerError
	}
	refreshHash, err := keyhash.Hash(s.hashParams, refresh)
	if err != nil {
		log.Error("hashing refresh token failed", logger.Err(err))
		return nil, nil, ErrServerError
	}

	upd := &repository.ExchangeUpdate{
		AccessTokenFingerprint:  keyhash.Fingerprint(access),
		AccessTokenHash:         accessHash,
		RefreshTokenFingerprint: keyhash.Fingerprint(refresh),
		RefreshTokenHash:        refreshHash,
		ExpiresAt:               accessExp,
		RefreshExpiresAt:        refreshExp,
	}
	pair := &issuedPair{access: access, refresh: refresh, accessExp: accessExp, refreshExp: refreshExp}
	return pair, upd, nil
}

// verifyPKCE recomputa el challenge a partir del verifier presentado.
// S256: base64url(SHA-256(verifier)); plain: comparación directa. Ambas en
// tiempo constante.
func verifyPKCE(challenge, method, verifier string) bool {
	switch method {
	case repository.PKCEMethodS256:
		sum := sha256.Sum256([]byte(verifier))
		got := base64.RawURLEncoding.EncodeToString(sum[:])
		return subtle.ConstantTimeCompare([]byte(got), []byte(challenge)) == 1
	case repository.PKCEMethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
