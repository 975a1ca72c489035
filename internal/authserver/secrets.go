package authserver

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/google/uuid"
)

const (
	// ClientIDPrefix marks identifiers issued by this server.
	ClientIDPrefix = "mcp-"

	// secretBytes is the entropy of secrets, codes and tokens: 256 bits,
	// which encodes to 43 base64url characters.
	secretBytes = 32
)

// SecretGenerator produces unguessable identifiers and secrets.
type SecretGenerator interface {
	// ClientID returns a new client identifier carrying ClientIDPrefix.
	ClientID() (string, error)
	// Secret returns a fixed-length random string used for client secrets,
	// authorization codes, access tokens and grant ids.
	Secret() (string, error)
}

// RandomGenerator is the SecretGenerator backed by a CSPRNG.
type RandomGenerator struct {
	reader io.Reader
}

// NewRandomGenerator returns a generator reading from crypto/rand.
func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{reader: rand.Reader}
}

// ClientID returns "mcp-" followed by a random (version 4) UUID.
func (g *RandomGenerator) ClientID() (string, error) {
	id, err := uuid.NewRandomFromReader(g.reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate client id: %w", err)
	}
	return ClientIDPrefix + id.String(), nil
}

// Secret returns 32 random bytes encoded as unpadded base64url.
func (g *RandomGenerator) Secret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(g.reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// fingerprint is the storage key for secrets, codes and tokens, so the
// in-memory stores never hold a usable credential.
func fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
