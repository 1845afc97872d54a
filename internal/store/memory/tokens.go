package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulsegram/authd/internal/domain/repository"
)

// TokenStore implementa repository.TokenRepository en memoria. Todos los
// índices secundarios (code, fingerprints) se mantienen bajo el mismo mutex
// que protege el registro, así Exchange y Revoke son atómicos de verdad.
type TokenStore struct {
	mu        sync.Mutex
	byID      map[string]*repository.DelegatedToken
	byCode    map[string]string // code -> id
	byAccess  map[string]string // access fingerprint -> id
	byRefresh map[string]string // refresh fingerprint -> id
}

func NewTokenStore() *TokenStore {
	return &TokenStore{
		byID:      make(map[string]*repository.DelegatedToken),
		byCode:    make(map[string]string),
		byAccess:  make(map[string]string),
		byRefresh: make(map[string]string),
	}
}

func (s *TokenStore) Create(_ context.Context, tok *repository.DelegatedToken) error {
	if tok == nil || tok.ApplicationID == "" {
		return repository.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneToken(tok)
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if _, exists := s.byID[stored.ID]; exists {
		return repository.ErrConflict
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	s.byID[stored.ID] = stored
	s.index(stored)
	*tok = *cloneToken(stored)
	return nil
}

func (s *TokenStore) GetByCode(_ context.Context, code string) (*repository.DelegatedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byCode[code]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(s.byID[id]), nil
}

func (s *TokenStore) GetByAccessFingerprint(_ context.Context, fp string) (*repository.DelegatedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byAccess[fp]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(s.byID[id]), nil
}

func (s *TokenStore) GetByRefreshFingerprint(_ context.Context, fp string) (*repository.DelegatedToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byRefresh[fp]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneToken(s.byID[id]), nil
}

// Exchange consume el code bajo el lock: el check "¿sigue sin canjear?" y la
// escritura son una sola sección crítica, el equivalente del conditional
// UPDATE ... WHERE access_token_hash IS NULL en postgres.
func (s *TokenStore) Exchange(_ context.Context, id string, upd repository.ExchangeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	if tok.Exchanged() {
		return repository.ErrConflict
	}

	if tok.Code != nil {
		delete(s.byCode, *tok.Code)
	}
	tok.Code = nil
	tok.CodeExpiresAt = nil

	tok.AccessTokenFingerprint = &upd.AccessTokenFingerprint
	tok.AccessTokenHash = &upd.AccessTokenHash
	tok.RefreshTokenFingerprint = &upd.RefreshTokenFingerprint
	tok.RefreshTokenHash = &upd.RefreshTokenHash
	exp := upd.ExpiresAt
	rexp := upd.RefreshExpiresAt
	tok.ExpiresAt = &exp
	tok.RefreshExpiresAt = &rexp

	s.index(tok)
	return nil
}

func (s *TokenStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.byID[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if tok.Revoked {
		return false, nil
	}
	tok.Revoked = true
	return true, nil
}

// index se llama con el lock tomado.
func (s *TokenStore) index(tok *repository.DelegatedToken) {
	if tok.Code != nil {
		s.byCode[*tok.Code] = tok.ID
	}
	if tok.AccessTokenFingerprint != nil {
		s.byAccess[*tok.AccessTokenFingerprint] = tok.ID
	}
	if tok.RefreshTokenFingerprint != nil {
		s.byRefresh[*tok.RefreshTokenFingerprint] = tok.ID
	}
}

func cloneToken(t *repository.DelegatedToken) *repository.DelegatedToken {
	out := *t
	out.Scopes = cloneStrings(t.Scopes)
	out.UserID = clonePtr(t.UserID)
	out.Code = clonePtr(t.Code)
	out.CodeExpiresAt = clonePtr(t.CodeExpiresAt)
	out.PKCEChallenge = clonePtr(t.PKCEChallenge)
	out.PKCEMethod = clonePtr(t.PKCEMethod)
	out.AccessTokenFingerprint = clonePtr(t.AccessTokenFingerprint)
	out.AccessTokenHash = clonePtr(t.AccessTokenHash)
	out.RefreshTokenFingerprint = clonePtr(t.RefreshTokenFingerprint)
	out.RefreshTokenHash = clonePtr(t.RefreshTokenHash)
	out.ExpiresAt = clonePtr(t.ExpiresAt)
	out.RefreshExpiresAt = clonePtr(t.RefreshExpiresAt)
	out.RotatedFrom = clonePtr(t.RotatedFrom)
	return &out
}
