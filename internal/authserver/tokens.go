package authserver

import (
	"sync"
	"time"

	"github.com/Zipties/toolarr/pkg/logging"
)

// DefaultTokenTTL is the lifetime of an access token.
const DefaultTokenTTL = time.Hour

// AccessToken is the server-side record of an issued bearer token.
type AccessToken struct {
	ClientID  string
	Scope     Scopes
	IssuedAt  time.Time
	ExpiresAt time.Time

	// GrantID is set for tokens issued from an authorization code.
	GrantID string
}

// ExpiresIn returns the remaining lifetime in whole seconds.
func (t *AccessToken) ExpiresIn(now time.Time) int {
	remaining := t.ExpiresAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Round(time.Second).Seconds())
}

// TokenStore holds issued access tokens keyed by fingerprint.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*AccessToken

	secrets SecretGenerator
	clock   Clock
	ttl     time.Duration
}

// NewTokenStore creates an empty token store. A zero ttl selects DefaultTokenTTL.
func NewTokenStore(secrets SecretGenerator, clock Clock, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenStore{
		tokens:  make(map[string]*AccessToken),
		secrets: secrets,
		clock:   clock,
		ttl:     ttl,
	}
}

// Issue mints a token and returns its record together with the plaintext
// bearer value.
func (s *TokenStore) Issue(clientID string, scope Scopes, grantID string) (*AccessToken, string, error) {
	value, err := s.secrets.Secret()
	if err != nil {
		return nil, "", ErrServer(err)
	}

	now := s.clock.Now()
	key := fingerprint(value)
	record := &AccessToken{
		ClientID:  clientID,
		Scope:     scope,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
		GrantID:   grantID,
	}

	s.mu.Lock()
	s.tokens[key] = record
	s.mu.Unlock()

	logging.Debug("OAuth", "Issued access token %s for client %s scope=%q (expires: %v)",
		logging.Fingerprint(value), clientID, scope.String(), record.ExpiresAt)

	issued := *record
	return &issued, value, nil
}

// Validate resolves a bearer value. Unknown and expired tokens are not
// distinguished. Expired entries are evicted on the way out.
func (s *TokenStore) Validate(token string) (*AccessToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	key := fingerprint(token)

	s.mu.RLock()
	record, ok := s.tokens[key]
	var snapshot AccessToken
	if ok {
		snapshot = *record
	}
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidToken
	}
	if s.clock.Now().Before(snapshot.ExpiresAt) {
		return &snapshot, nil
	}

	s.evictIfExpired(key)
	return nil, ErrInvalidToken
}

// evictIfExpired deletes key after re-checking expiry under the write lock.
func (s *TokenStore) evictIfExpired(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record, ok := s.tokens[key]; ok && !s.clock.Now().Before(record.ExpiresAt) {
		delete(s.tokens, key)
	}
}

// RevokeGrant removes every token issued from the given grant.
func (s *TokenStore) RevokeGrant(grantID string) int {
	if grantID == "" {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for key, record := range s.tokens {
		if record.GrantID == grantID {
			delete(s.tokens, key)
			revoked++
		}
	}
	return revoked
}

// Sweep removes tokens whose expiry is at or before now.
func (s *TokenStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.tokens {
		if !now.Before(record.ExpiresAt) {
			delete(s.tokens, key)
			removed++
		}
	}
	if removed > 0 {
		logging.Debug("OAuth", "Swept %d expired access tokens", removed)
	}
	return removed
}

// Count returns the number of stored tokens.
func (s *TokenStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokens)
}
