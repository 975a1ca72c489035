package oauth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"regexp"

	"golang.org/x/oauth2"
)

// s256ChallengeLength is the length of a base64url (unpadded) SHA-256 digest.
const s256ChallengeLength = 43

var (
	// RFC 7636 section 4.1: 43-128 characters from the unreserved set.
	verifierPattern = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

	challengePattern = regexp.MustCompile(`^[A-Za-z0-9\-_]{43}$`)
)

// GeneratePKCE generates a new PKCE code verifier and S256 challenge.
// The verifier comes from golang.org/x/oauth2, which yields 32 random
// bytes base64url-encoded.
func GeneratePKCE() *PKCEChallenge {
	verifier, challenge := GeneratePKCERaw()

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       challenge,
		CodeChallengeMethod: CodeChallengeMethodS256,
	}
}

// GeneratePKCERaw generates a PKCE code verifier and challenge as raw strings.
func GeneratePKCERaw() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, S256Challenge(verifier)
}

// S256Challenge computes BASE64URL(SHA256(verifier)) without padding.
func S256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// ValidCodeChallenge reports whether challenge is shaped like an S256 challenge.
func ValidCodeChallenge(challenge string) bool {
	return len(challenge) == s256ChallengeLength && challengePattern.MatchString(challenge)
}

// ValidCodeVerifier reports whether verifier satisfies RFC 7636 syntax.
func ValidCodeVerifier(verifier string) bool {
	return verifierPattern.MatchString(verifier)
}

// VerifyS256 checks a code verifier against a stored S256 challenge in constant time.
func VerifyS256(verifier, challenge string) bool {
	if !ValidCodeVerifier(verifier) {
		return false
	}
	computed := S256Challenge(verifier)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
}
