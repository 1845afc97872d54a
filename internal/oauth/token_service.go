package oauth

import (
	"context"
)

// Grant types soportados por el exchange engine.
const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
	GrantClientCredentials = "client_credentials"
)

// TokenService es la state machine del endpoint /oauth/token.
type TokenService interface {
	// Exchange despacha por grant_type. Un grant_type desconocido es
	// invalid_request, nunca un no-op silencioso.
	Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error)
}

// TokenRequest contiene la unión de los campos de los tres grants; cada
// handler valida los suyos.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// authorization_code
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token
	RefreshToken string

	// client_credentials
	Scope string
}

// TokenResponse is the standard OAuth2 token response.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
