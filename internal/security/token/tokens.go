package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// GenerateOpaque genera un token opaco aleatorio (base64url sin padding).
func GenerateOpaque(nBytes int) (string, error) {
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateCode genera un authorization code de nBytes de entropía, hex.
// Mínimo 32 bytes; valores menores se elevan.
func GenerateCode(nBytes int) (string, error) {
	if nBytes < 32 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
