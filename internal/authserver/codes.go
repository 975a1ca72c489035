package authserver

import (
	"crypto/subtle"
	"sync"
	"time"

	"github.com/Zipties/toolarr/pkg/logging"
	"github.com/Zipties/toolarr/pkg/oauth"
)

// DefaultCodeTTL is the lifetime of an authorization code.
const DefaultCodeTTL = 10 * time.Minute

// AuthorizationCode is a single-use grant bound to a client, a redirect URI
// and a PKCE challenge.
type AuthorizationCode struct {
	// Code is the plaintext value. It is only set on the value returned by
	// Issue; the store keys entries by fingerprint.
	Code string

	ClientID            string
	RedirectURI         string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               Scopes
	IssuedAt            time.Time
	ExpiresAt           time.Time
	Consumed            bool

	// Revoked is set once the code is presented again after redemption.
	Revoked bool

	// GrantID links the code to the tokens issued from it.
	GrantID string
}

// CodeStore holds outstanding authorization codes.
type CodeStore struct {
	mu    sync.RWMutex
	codes map[string]*AuthorizationCode

	secrets SecretGenerator
	clock   Clock
	ttl     time.Duration
}

// NewCodeStore creates an empty code store. A zero ttl selects DefaultCodeTTL.
func NewCodeStore(secrets SecretGenerator, clock Clock, ttl time.Duration) *CodeStore {
	if ttl <= 0 {
		ttl = DefaultCodeTTL
	}
	return &CodeStore{
		codes:   make(map[string]*AuthorizationCode),
		secrets: secrets,
		clock:   clock,
		ttl:     ttl,
	}
}

// Issue mints a code for a validated authorization request.
func (s *CodeStore) Issue(clientID, redirectURI, challenge string, scope Scopes) (*AuthorizationCode, error) {
	if challenge == "" {
		return nil, ErrInvalidRequest("code_challenge is required")
	}
	if !oauth.ValidCodeChallenge(challenge) {
		return nil, ErrInvalidRequest("code_challenge must be a base64url SHA-256 digest")
	}

	code, err := s.secrets.Secret()
	if err != nil {
		return nil, ErrServer(err)
	}
	grantID, err := s.secrets.Secret()
	if err != nil {
		return nil, ErrServer(err)
	}

	now := s.clock.Now()
	entry := &AuthorizationCode{
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		CodeChallenge:       challenge,
		CodeChallengeMethod: oauth.CodeChallengeMethodS256,
		Scope:               scope,
		IssuedAt:            now,
		ExpiresAt:           now.Add(s.ttl),
		GrantID:             grantID,
	}

	s.mu.Lock()
	s.codes[fingerprint(code)] = entry
	s.mu.Unlock()

	logging.Debug("OAuth", "Issued authorization code %s for client %s (expires: %v)",
		logging.Fingerprint(code), clientID, entry.ExpiresAt)

	issued := *entry
	issued.Code = code
	return &issued, nil
}

// Redeem consumes a code. All checks run in one critical section, and the
// code is burnt before client, redirect URI and verifier are compared, so a
// failed attempt still uses it up.
func (s *CodeStore) Redeem(code, clientID, redirectURI, verifier string) (*AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	entry, ok := s.codes[fingerprint(code)]
	if !ok || !now.Before(entry.ExpiresAt) {
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}

	if entry.Consumed {
		logging.Warn("OAuth", "Authorization code %s for client %s was presented again",
			logging.Fingerprint(code), entry.ClientID)
		entry.Revoked = true
		return nil, ErrInvalidGrant("authorization code has already been used").
			withCause(&CodeReplayError{GrantID: entry.GrantID})
	}
	entry.Consumed = true

	if subtle.ConstantTimeCompare([]byte(entry.ClientID), []byte(clientID)) != 1 {
		return nil, ErrInvalidGrant("authorization code was issued to another client")
	}
	if entry.RedirectURI != redirectURI {
		return nil, ErrInvalidGrant("redirect_uri does not match the authorization request")
	}
	if !oauth.VerifyS256(verifier, entry.CodeChallenge) {
		return nil, ErrInvalidGrant("code_verifier does not match the code challenge")
	}

	redeemed := *entry
	return &redeemed, nil
}

// GrantRevoked reports whether the code was replayed after redemption.
// Codes that are unknown or already swept report false.
func (s *CodeStore) GrantRevoked(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.codes[fingerprint(code)]
	return ok && entry.Revoked
}

// Sweep drops codes whose expiry is at or before now, consumed or not.
func (s *CodeStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.codes {
		if !now.Before(entry.ExpiresAt) {
			delete(s.codes, key)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("OAuth", "Swept %d expired authorization codes", removed)
	}
	return removed
}

// Count returns the number of stored codes, including consumed ones.
func (s *CodeStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.codes)
}
