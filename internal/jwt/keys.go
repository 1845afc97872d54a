package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Keystore mantiene la clave de firma ed25519 activa. El kid se deriva de la
// public key, así un verificador puede detectar rotaciones.
type Keystore struct {
	kid  string
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewKeystoreFromSeed construye el keystore desde base64(32 bytes).
func NewKeystoreFromSeed(seedB64 string) (*Keystore, error) {
	seed, err := base64.StdEncoding.DecodeString(seedB64)
	if err != nil {
		return nil, fmt.Errorf("jwt: decoding key seed: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("jwt: key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return newKeystore(priv), nil
}

// NewEphemeralKeystore genera una clave al vuelo. Solo dev: los tokens no
// sobreviven un restart del proceso.
func NewEphemeralKeystore() (*Keystore, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return newKeystore(priv), nil
}

func newKeystore(priv ed25519.PrivateKey) *Keystore {
	pub := priv.Public().(ed25519.PublicKey)
	sum := sha256.Sum256(pub)
	return &Keystore{
		kid:  base64.RawURLEncoding.EncodeToString(sum[:8]),
		priv: priv,
		pub:  pub,
	}
}

// Active retorna (kid, privada, pública) de la clave activa.
func (k *Keystore) Active() (string, ed25519.PrivateKey, ed25519.PublicKey) {
	return k.kid, k.priv, k.pub
}

// PublicKeyByKID retorna la public key para un kid conocido.
func (k *Keystore) PublicKeyByKID(kid string) (ed25519.PublicKey, error) {
	if kid != k.kid {
		return nil, fmt.Errorf("jwt: unknown kid %q", kid)
	}
	return k.pub, nil
}
