package oauth

import (
	"context"
	"errors"

	"github.com/pulsegram/authd/internal/audit"
	"github.com/pulsegram/authd/internal/domain/repository"
	"github.com/pulsegram/authd/internal/observability/logger"
	"github.com/pulsegram/authd/internal/security/keyhash"
)

// RevokeService marca tokens como revocados.
type RevokeService interface {
	// Revoke es idempotente y silencioso: revocar un token desconocido o ya
	// muerto no es un error, para que nadie pueda enumerar tokens válidos
	// comparando respuestas.
	Revoke(ctx context.Context, token string) error
}

// RevokeDeps contains dependencies for the revocation service.
type RevokeDeps struct {
	Tokens repository.TokenRepository
}

type revokeService struct {
	tokens repository.TokenRepository
}

// NewRevokeService creates a new RevokeService.
func NewRevokeService(d RevokeDeps) RevokeService {
	return &revokeService{tokens: d.Tokens}
}

func (s *revokeService) Revoke(ctx context.Context, token string) error {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.revoke"))

	if token == "" {
		return nil
	}

	rec, err := s.lookup(ctx, token)
	if err != nil {
		log.Error("revocation lookup failed", logger.Err(err))
		return ErrServerError
	}
	if rec == nil {
		// Silent success; queda el rastro en el log igual.
		log.Info("revoke of unknown token ignored")
		return nil
	}

	flipped, err := s.tokens.Revoke(ctx, rec.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		log.Error("revoke write failed", logger.Err(err))
		return ErrServerError
	}
	if flipped {
		audit.Log(ctx, audit.EventTokenRevoked,
			logger.TokenID(rec.ID),
			logger.AppID(rec.ApplicationID),
		)
	}
	return nil
}

func (s *revokeService) lookup(ctx context.Context, token string) (*repository.DelegatedToken, error) {
	fp := keyhash.Fingerprint(token)

	if rec, err := s.tokens.GetByAccessFingerprint(ctx, fp); err == nil {
		if rec.AccessTokenHash != nil && keyhash.Verify(token, *rec.AccessTokenHash) {
			return rec, nil
		}
		return nil, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	if rec, err := s.tokens.GetByRefreshFingerprint(ctx, fp); err == nil {
		if rec.RefreshTokenHash != nil && keyhash.Verify(token, *rec.RefreshTokenHash) {
			return rec, nil
		}
		return nil, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	return nil, nil
}
