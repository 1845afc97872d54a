package oauth

import (
	"context"
	"time"

	"github.com/pulsegram/authd/internal/audit"
	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/scope"
	tokens "github.com/pulsegram/authd/internal/security/token"
)

// AuthorizeService valida un authorization request interactivo y emite el
// single-use code.
type AuthorizeService interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error)
}

// AuthorizeRequest contains the parameters of GET/POST /oauth/authorize.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	// UserID es el usuario ya autenticado que está delegando acceso; la
	// sesión interactiva que lo autenticó es un colaborador externo.
	UserID string
}

// AuthorizeResponse devuelve el code y hace eco del state para el binding
// CSRF del caller. Scopes es el subconjunto efectivamente otorgado.
type AuthorizeResponse struct {
	Code   string
	State  string
	Scopes []string
}

// AuthorizeDeps contains dependencies for the authorize service.
type AuthorizeDeps struct {
	Apps    ApplicationLookup
	Users   repository.UserRepository
	Tokens  repository.TokenRepository
	Scopes  *scope.Registry
	CodeTTL time.Duration
}

type authorizeService struct {
	apps    ApplicationLookup
	users   repository.UserRepository
	tokens  repository.TokenRepository
	scopes  *scope.Registry
	codeTTL time.Duration
}

// NewAuthorizeService creates a new AuthorizeService.
func NewAuthorizeService(d AuthorizeDeps) AuthorizeService {
	ttl := d.CodeTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	reg := d.Scopes
	if reg == nil {
		reg = scope.Default()
	}
	return &authorizeService{
		apps:    d.Apps,
		users:   d.Users,
		tokens:  d.Tokens,
		scopes:  reg,
		codeTTL: ttl,
	}
}

// Authorize corre las precondiciones en orden fijo, cada una con su error
// propio, y recién entonces persiste el registro en estado code.
func (s *authorizeService) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.authorize"))

	if req.ClientID == "" || req.RedirectURI == "" || req.UserID == "" {
		return nil, ErrInvalidRequest
	}
	if req.ResponseType != "code" {
		log.Warn("unsupported response_type", logger.String("response_type", req.ResponseType))
		return nil, ErrInvalidRequest
	}

	app, err := s.apps.GetByClientID(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Warn("client not found", logger.ClientID(req.ClientID))
			return nil, ErrInvalidClient
		}
		log.Error("application lookup failed", logger.Err(err))
		return nil, ErrServerError
	}
	if !app.Active() {
		log.Warn("application suspended", logger.ClientID(req.ClientID))
		return nil, ErrUnauthorizedClient
	}

	// Match exacto, nunca por prefijo: el matching parcial de redirect URIs
	// es un vector clásico de open redirect.
	if !app.AllowsRedirectURI(req.RedirectURI) {
		log.Warn("redirect_uri not registered", logger.ClientID(req.ClientID))
		return nil, ErrInvalidRequest
	}

	granted, err := s.resolveScopes(req.Scope, app)
	if err != nil {
		log.Warn("scope rejected", logger.ClientID(req.ClientID), logger.Err(err))
		return nil, err
	}

	if req.CodeChallenge != "" || req.CodeChallengeMethod != "" {
		if req.CodeChallenge == "" {
			return nil, ErrInvalidRequest
		}
		if req.CodeChallengeMethod != repository.PKCEMethodS256 &&
			req.CodeChallengeMethod != repository.PKCEMethodPlain {
			log.Warn("unsupported code_challenge_method",
				logger.String("code_challenge_method", req.CodeChallengeMethod))
			return nil, ErrInvalidRequest
		}
	}

	exists, err := s.users.Exists(ctx, req.UserID)
	if err != nil {
		log.Error("user lookup failed", logger.Err(err))
		return nil, ErrServerError
	}
	if !exists {
		log.Warn("unknown user", logger.UserID(req.UserID))
		return nil, ErrInvalidRequest
	}

	code, err := tokens.GenerateCode(32)
	if err != nil {
		log.Error("code generation failed", logger.Err(err))
		return nil, ErrServerError
	}

	codeExp := time.Now().UTC().Add(s.codeTTL)
	rec := &repository.DelegatedToken{
		ApplicationID: app.ID,
		UserID:        &req.UserID,
		Scopes:        granted,
		Code:          &code,
		CodeExpiresAt: &codeExp,
		RedirectURI:   req.RedirectURI,
	}
	if req.CodeChallenge != "" {
		challenge, method := req.CodeChallenge, req.CodeChallengeMethod
		rec.PKCEChallenge = &challenge
		rec.PKCEMethod = &method
	}

	if err := s.tokens.Create(ctx, rec); err != nil {
		log.Error("persisting authorization code failed", logger.Err(err))
		return nil, ErrServerError
	}

	audit.Log(ctx, audit.EventCodeIssued,
		logger.ClientID(req.ClientID),
		logger.AppID(app.ID),
		logger.UserID(req.UserID),
		logger.Scope(scope.Join(granted)),
	)

	return &AuthorizeResponse{Code: code, State: req.State, Scopes: granted}, nil
}

// resolveScopes valida contra el catálogo y después recorta contra lo
// aprobado para la application. Scope desconocido o intersección vacía son
// errores con los dos conjuntos en el mensaje; intersección parcial no es
// error, se otorga el subconjunto.
func (s *authorizeService) resolveScopes(raw string, app *repository.Application) ([]string, error) {
	requested := scope.Split(raw)
	if len(requested) == 0 {
		return nil, ErrInvalidScope
	}

	valid, invalid := s.scopes.ValidateList(requested)
	if len(invalid) > 0 {
		return nil, &InvalidScopeError{Requested: invalid, Allowed: s.scopes.Names()}
	}

	granted := scope.Intersect(valid, app.ApprovedScopes)
	if len(granted) == 0 {
		return nil, &InvalidScopeError{Requested: requested, Allowed: app.ApprovedScopes}
	}
	return granted, nil
}
