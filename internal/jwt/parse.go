package jwt

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Claims es la vista decodificada de un token self-contained.
type Claims struct {
	Subject   string
	ClientID  string
	Scopes    []string
	TokenType string
	JTI       string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongType    = errors.New("wrong token type")
	ErrWrongIssuer  = errors.New("wrong issuer")
	ErrTokenExpired = errors.New("token expired")
)

// Parse valida firma (EdDSA por kid), issuer, exp/nbf y el claim "type".
// wantType "" acepta cualquier tipo.
func (i *Issuer) Parse(token, wantType string) (*Claims, error) {
	keyfunc := func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid != "" {
			return i.Keys.PublicKeyByKID(kid)
		}
		_, _, pub := i.Keys.Active()
		return ed25519.PublicKey(pub), nil
	}

	tok, err := jwtv5.Parse(token, keyfunc, jwtv5.WithValidMethods([]string{"EdDSA"}))
	if err != nil || !tok.Valid {
		if err != nil && strings.Contains(err.Error(), "expired") {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	if iss, _ := claims["iss"].(string); iss != i.Iss {
		return nil, ErrWrongIssuer
	}

	typ, _ := claims["type"].(string)
	if wantType != "" && typ != wantType {
		return nil, ErrWrongType
	}

	out := &Claims{TokenType: typ}
	out.Subject, _ = claims["sub"].(string)
	out.ClientID, _ = claims["client_id"].(string)
	out.JTI, _ = claims["jti"].(string)
	if scopeRaw, _ := claims["scope"].(string); scopeRaw != "" {
		out.Scopes = strings.Fields(scopeRaw)
	}
	if f, ok := claims["iat"].(float64); ok {
		out.IssuedAt = time.Unix(int64(f), 0).UTC()
	}
	if f, ok := claims["exp"].(float64); ok {
		out.ExpiresAt = time.Unix(int64(f), 0).UTC()
	}
	return out, nil
}
