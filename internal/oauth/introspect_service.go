package oauth

import (
	"context"
	"errors"
	"time"

	"github.com/pulsegram/authd/internal/audit"
	"github.com/pulsegram/authd/internal/domain/repository"
	jwtx "github.com/pulsegram/authd/internal/jwt"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/scope"
	"github.com/pulsegram/authd/internal/security/keyhash"
)

// IntrospectService reporta el estado de un token presentado.
type IntrospectService interface {
	Introspect(ctx context.Context, token string) (*Introspection, error)
}

// Introspection es la respuesta RFC 7662. Cuando Active es false los demás
// campos van vacíos: el shape de "revocado", "expirado" y "nunca existió"
// tiene que ser idéntico hacia afuera.
type Introspection struct {
	Active   bool   `json:"active"`
	Scope    string `json:"scope,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Username string `json:"username,omitempty"`
	Exp      int64  `json:"exp,omitempty"`
}

var inactive = &Introspection{Active: false}

// IntrospectDeps contains dependencies for the introspection service.
type IntrospectDeps struct {
	Tokens repository.TokenRepository
	Users  repository.UserRepository
	Issuer *jwtx.Issuer
}

type introspectService struct {
	tokens repository.TokenRepository
	users  repository.UserRepository
	issuer *jwtx.Issuer
}

// NewIntrospectService creates a new IntrospectService.
func NewIntrospectService(d IntrospectDeps) IntrospectService {
	return &introspectService{tokens: d.Tokens, users: d.Users, issuer: d.Issuer}
}

// Introspect decodifica el token self-contained primero (barato: la mayoría
// de los expirados mueren acá sin ir al store) y después confirma contra el
// registro persistido, que es la autoridad sobre revocación.
func (s *introspectService) Introspect(ctx context.Context, token string) (*Introspection, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.introspect"))

	if token == "" {
		return inactive, nil
	}

	claims, err := s.issuer.Parse(token, "")
	if err != nil {
		// Firma rota, issuer ajeno o expirado: inactivo sin tocar el store.
		return inactive, nil
	}

	rec, isRefresh, err := s.lookup(ctx, token)
	if err != nil {
		if repository.IsNotFound(err) {
			return inactive, nil
		}
		log.Error("introspection lookup failed", logger.Err(err))
		return nil, ErrServerError
	}
	if rec == nil {
		return inactive, nil
	}

	if rec.Revoked {
		return inactive, nil
	}
	exp := rec.ExpiresAt
	if isRefresh {
		exp = rec.RefreshExpiresAt
	}
	if exp == nil || time.Now().After(*exp) {
		return inactive, nil
	}

	out := &Introspection{
		Active:   true,
		Scope:    scope.Join(rec.Scopes),
		ClientID: claims.ClientID,
		Exp:      claims.ExpiresAt.Unix(),
	}
	if rec.UserID != nil {
		if user, err := s.users.GetByID(ctx, *rec.UserID); err == nil {
			out.Username = user.Username
		}
	}
	return out, nil
}

// lookup resuelve el registro por fingerprint (access primero, refresh
// después) y verifica el hash adaptativo. Un fingerprint que matchea sin
// hash válido es un incidente de seguridad y cuenta como no encontrado.
func (s *introspectService) lookup(ctx context.Context, token string) (*repository.DelegatedToken, bool, error) {
	fp := keyhash.Fingerprint(token)

	if rec, err := s.tokens.GetByAccessFingerprint(ctx, fp); err == nil {
		if rec.AccessTokenHash != nil && keyhash.Verify(token, *rec.AccessTokenHash) {
			return rec, false, nil
		}
		audit.Security(ctx, audit.EventFingerprintMismatch,
			logger.TokenID(rec.ID),
			logger.String("credential", "access_token"),
		)
		return nil, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	if rec, err := s.tokens.GetByRefreshFingerprint(ctx, fp); err == nil {
		if rec.RefreshTokenHash != nil && keyhash.Verify(token, *rec.RefreshTokenHash) {
			return rec, true, nil
		}
		audit.Security(ctx, audit.EventFingerprintMismatch,
			logger.TokenID(rec.ID),
			logger.String("credential", "refresh_token"),
		)
		return nil, false, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	return nil, false, repository.ErrNotFound
}
