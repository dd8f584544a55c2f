package security

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidKey is returned when a key source holds no usable RSA or P-256 key.
var ErrInvalidKey = errors.New("invalid key")

// LoadPEM returns src when it is inline PEM and otherwise reads src as a file path.
// Inline PEM from env files often carries literal "\n" sequences; those are expanded.
func LoadPEM(src string) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, ErrInvalidKey
	}
	if strings.HasPrefix(src, "-----BEGIN") {
		return []byte(strings.ReplaceAll(src, `\n`, "\n")), nil
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return b, nil
}

// ParsePrivateKey loads a PKCS#1, PKCS#8 or SEC 1 signing key.
func ParsePrivateKey(src string) (crypto.Signer, error) {
	pemBytes, err := LoadPEM(src)
	if err != nil {
		return nil, err
	}
	if k, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPrivateKeyFromPEM(pemBytes); err == nil && KeyAlg(&k.PublicKey) != "" {
		return k, nil
	}
	return nil, ErrInvalidKey
}

// ParsePublicKey loads a PKIX or PKCS#1 verification key, or the key of a certificate.
func ParsePublicKey(src string) (crypto.PublicKey, error) {
	pemBytes, err := LoadPEM(src)
	if err != nil {
		return nil, err
	}
	if k, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
		return k, nil
	}
	if k, err := jwt.ParseECPublicKeyFromPEM(pemBytes); err == nil && KeyAlg(k) != "" {
		return k, nil
	}
	return nil, ErrInvalidKey
}

// KeyAlg names the JWS algorithm for pub: RS256 for RSA, ES256 for P-256, empty otherwise.
func KeyAlg(pub crypto.PublicKey) string {
	switch k := pub.(type) {
	case *rsa.PublicKey:
		return "RS256"
	case *ecdsa.PublicKey:
		if k.Curve == elliptic.P256() {
			return "ES256"
		}
	}
	return ""
}

// LoadKeyPair parses the signing key and the verification key and checks that they belong together.
func LoadKeyPair(privateSrc, publicSrc string) (crypto.Signer, crypto.PublicKey, error) {
	signer, err := ParsePrivateKey(privateSrc)
	if err != nil {
		return nil, nil, fmt.Errorf("private key: %w", err)
	}
	pub, err := ParsePublicKey(publicSrc)
	if err != nil {
		return nil, nil, fmt.Errorf("public key: %w", err)
	}
	type equaler interface{ Equal(crypto.PublicKey) bool }
	eq, ok := signer.Public().(equaler)
	if !ok || !eq.Equal(pub) {
		return nil, nil, fmt.Errorf("%w: public key does not match private key", ErrInvalidKey)
	}
	return signer, pub, nil
}
