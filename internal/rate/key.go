package rate

import "strings"

// ClientCredentialsSubject identifica la porción user de la key cuando el
// grant no tiene usuario final.
const ClientCredentialsSubject = "client-credentials"

// Key arma la clave de cuota (application, user-or-none, endpoint).
func Key(applicationID, userID, endpoint string) string {
	if userID == "" {
		userID = ClientCredentialsSubject
	}
	return applicationID + ":" + userID + ":" + NormalizeEndpoint(endpoint)
}

// NormalizeEndpoint reduce un endpoint a su forma canónica para que rutas
// idénticas no fragmenten el contador: quita el prefijo de método HTTP, el
// query string y el fragmento, colapsa slashes repetidos y el trailing slash.
func NormalizeEndpoint(endpoint string) string {
	s := strings.TrimSpace(endpoint)

	// "POST /oauth/token" -> "/oauth/token"
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = strings.TrimSpace(s[i+1:])
	}

	// sin query ni fragment
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	for strings.Contains(s, "//") {
		s = strings.ReplaceAll(s, "//", "/")
	}

	if len(s) > 1 {
		s = strings.TrimRight(s, "/")
	}
	if s == "" {
		s = "/"
	}
	return s
}
