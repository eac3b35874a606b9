// internal/pkg/jwt/loader.go
package jwt

import (
	"crypto/rsa"
	"fmt"
)

type Config struct {
	PubPath  string
	Issuer   string
	Audience string
}

// LoadVerifier builds a Verifier from cfg. Without a public key path the
// verifier only decodes tokens. That is enough where the marketplace API
// re-checks the token, but not for data this service keeps by identity.
func LoadVerifier(cfg Config) (*Verifier, error) {
	var pub *rsa.PublicKey
	if cfg.PubPath != "" {
		key, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
		}
		pub = key
	}
	return NewVerifier(pub, cfg.Issuer, cfg.Audience), nil
}
