// Package httpx trae los helpers de respuesta compartidos por los
// controllers.
package httpx

import (
	"encoding/json"
	"net/http"
)

// WriteJSON serializa v con el status dado.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OAuthError es el shape estándar de error de los endpoints OAuth2.
type OAuthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteOAuthError responde un error OAuth2 con los headers de no-cache que
// exigen los endpoints de token.
func WriteOAuthError(w http.ResponseWriter, status int, code, description string) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	WriteJSON(w, status, OAuthError{Error: code, Description: description})
}

// WriteNoStore serializa v con status 200 y headers de no-cache.
func WriteNoStore(w http.ResponseWriter, v any) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	WriteJSON(w, http.StatusOK, v)
}
