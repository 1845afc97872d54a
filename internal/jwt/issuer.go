// Package jwt emite y valida los tokens self-contained del authorization
// server. Access y refresh llevan un claim "type" discriminador para que un
// resource server rechace un refresh token presentado como access y viceversa.
package jwt

import (
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token type discriminators.
const (
	TypeAccess  = "oauth"
	TypeRefresh = "oauth_refresh"
)

// Issuer firma tokens usando la clave activa del keystore.
type Issuer struct {
	Iss        string
	Keys       *Keystore
	AccessTTL  time.Duration // default 1h
	RefreshTTL time.Duration // default 2h (corto a propósito; ver DESIGN.md)
}

func NewIssuer(iss string, ks *Keystore, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	if refreshTTL <= 0 {
		refreshTTL = 2 * time.Hour
	}
	return &Issuer{Iss: iss, Keys: ks, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// IssueAccess emite un access token para sub (user, o client_id en M2M).
func (i *Issuer) IssueAccess(sub, clientID string, scopes []string) (string, time.Time, error) {
	return i.issue(TypeAccess, sub, clientID, scopes, i.AccessTTL)
}

// IssueRefresh emite el refresh token pareado.
func (i *Issuer) IssueRefresh(sub, clientID string, scopes []string) (string, time.Time, error) {
	return i.issue(TypeRefresh, sub, clientID, scopes, i.RefreshTTL)
}

func (i *Issuer) issue(typ, sub, clientID string, scopes []string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)

	kid, priv, _ := i.Keys.Active()

	claims := jwtv5.MapClaims{
		"iss":       i.Iss,
		"sub":       sub,
		"aud":       clientID,
		"client_id": clientID,
		"iat":       now.Unix(),
		"nbf":       now.Unix(),
		"exp":       exp.Unix(),
		"jti":       uuid.NewString(),
		"scope":     strings.Join(scopes, " "),
		"type":      typ,
	}

	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = kid
	tk.Header["typ"] = "JWT"

	signed, err := tk.SignedString(priv)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}
