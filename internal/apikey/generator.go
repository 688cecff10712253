package apikey

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// API key format: nv_live_{base64url(32 bytes)}
	keyMarker = "nv"
	keyEnv    = "live"
	keyBytes  = 32 // 256 bits of entropy

	// prefixDisplayLength is how many leading characters are retained
	// as the non-secret display prefix. Covers the marker plus a few
	// characters of the encoded secret; far too short to reconstruct it.
	prefixDisplayLength = 12
)

// Generator produces API key secrets and their storable forms.
type Generator struct{}

// NewGenerator creates a new API key generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate creates a new secret of the form nv_live_{base64url(32 random
// bytes)} and returns it together with its display prefix and SHA-256
// hash. Only the hash is ever persisted; the full secret is returned to
// the caller exactly once.
func (g *Generator) Generate() (plainKey, prefix, keyHash string, err error) {
	randomBytes := make([]byte, keyBytes)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("generate random bytes: %w", err)
	}

	encoded := base64.RawURLEncoding.EncodeToString(randomBytes)
	plainKey = fmt.Sprintf("%s_%s_%s", keyMarker, keyEnv, encoded)

	return plainKey, Prefix(plainKey), g.Hash(plainKey), nil
}

// Hash computes the SHA-256 hex digest of a key. The store holds only
// this digest; validation hashes the presented secret and looks up by
// digest, never by prefix.
func (g *Generator) Hash(plainKey string) string {
	hash := sha256.Sum256([]byte(plainKey))
	return fmt.Sprintf("%x", hash)
}

// Prefix returns the short non-secret leading substring retained for
// display and audit.
func Prefix(plainKey string) string {
	if len(plainKey) < prefixDisplayLength {
		return plainKey
	}
	return plainKey[:prefixDisplayLength]
}

// ValidateFormat cheaply rejects strings that cannot be NetView API
// keys, before any store lookup.
func (g *Generator) ValidateFormat(plainKey string) error {
	parts := strings.SplitN(plainKey, "_", 3)
	if len(parts) < 3 {
		return fmt.Errorf("%w: missing platform marker", ErrKeyMalformed)
	}

	if parts[0] != keyMarker {
		return fmt.Errorf("%w: invalid marker", ErrKeyMalformed)
	}
	if parts[1] != keyEnv && parts[1] != "test" {
		return fmt.Errorf("%w: invalid environment", ErrKeyMalformed)
	}

	decoded, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("%w: invalid encoding", ErrKeyMalformed)
	}
	if len(decoded) != keyBytes {
		return fmt.Errorf("%w: invalid secret length", ErrKeyMalformed)
	}

	return nil
}
