package authserver

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zipties/toolarr/pkg/oauth"
)

const (
	testClientID    = "mcp-client"
	testRedirectURI = "https://app.example.com/callback"
)

func newTestCodeStore() (*CodeStore, *fakeClock) {
	clock := newFakeClock()
	return NewCodeStore(NewRandomGenerator(), clock, 0), clock
}

func TestCodeStore_Issue(t *testing.T) {
	store, clock := newTestCodeStore()
	_, challenge := pkcePair()

	code, err := store.Issue(testClientID, testRedirectURI, challenge, NewScopes(ScopeRead))
	require.NoError(t, err)

	assert.NotEmpty(t, code.Code)
	assert.NotEmpty(t, code.GrantID)
	assert.Equal(t, oauth.CodeChallengeMethodS256, code.CodeChallengeMethod)
	assert.Equal(t, clock.Now().Add(10*time.Minute), code.ExpiresAt)
	assert.False(t, code.Consumed)
	assert.Equal(t, 1, store.Count())
}

func TestCodeStore_IssueRejectsBadChallenge(t *testing.T) {
	store, _ := newTestCodeStore()

	for _, challenge := range []string{"", "too-short", "this+is/not+base64url+and+is+long+enough+xx"} {
		_, err := store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
		requireOAuthError(t, err, ErrorCodeInvalidRequest)
	}
	assert.Equal(t, 0, store.Count())
}

func TestCodeStore_RedeemOnce(t *testing.T) {
	store, _ := newTestCodeStore()
	verifier, challenge := pkcePair()

	code, err := store.Issue(testClientID, testRedirectURI, challenge, NewScopes(ScopeWrite))
	require.NoError(t, err)

	redeemed, err := store.Redeem(code.Code, testClientID, testRedirectURI, verifier)
	require.NoError(t, err)
	assert.Equal(t, NewScopes(ScopeWrite), redeemed.Scope)
	assert.Equal(t, code.GrantID, redeemed.GrantID)
	assert.False(t, store.GrantRevoked(code.Code))

	_, err = store.Redeem(code.Code, testClientID, testRedirectURI, verifier)
	requireOAuthError(t, err, ErrorCodeInvalidGrant)
	assert.ErrorIs(t, err, ErrCodeReplayed)

	var replay *CodeReplayError
	require.ErrorAs(t, err, &replay)
	assert.Equal(t, code.GrantID, replay.GrantID)
	assert.True(t, store.GrantRevoked(code.Code))
	assert.False(t, store.GrantRevoked("unknown"))
}

func TestCodeStore_RedeemFailures(t *testing.T) {
	tests := []struct {
		name        string
		clientID    string
		redirectURI string
		verifier    func(good string) string
	}{
		{
			name:        "wrong client",
			clientID:    "mcp-other",
			redirectURI: testRedirectURI,
			verifier:    func(good string) string { return good },
		},
		{
			name:        "redirect uri prefix",
			clientID:    testClientID,
			redirectURI: testRedirectURI + "/extra",
			verifier:    func(good string) string { return good },
		},
		{
			name:        "wrong verifier",
			clientID:    testClientID,
			redirectURI: testRedirectURI,
			verifier: func(string) string {
				other, _ := pkcePair()
				return other
			},
		},
		{
			name:        "malformed verifier",
			clientID:    testClientID,
			redirectURI: testRedirectURI,
			verifier:    func(string) string { return "short" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newTestCodeStore()
			verifier, challenge := pkcePair()
			code, err := store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
			require.NoError(t, err)

			_, err = store.Redeem(code.Code, tt.clientID, tt.redirectURI, tt.verifier(verifier))
			requireOAuthError(t, err, ErrorCodeInvalidGrant)

			// A failed attempt still burns the code.
			_, err = store.Redeem(code.Code, testClientID, testRedirectURI, verifier)
			requireOAuthError(t, err, ErrorCodeInvalidGrant)
			assert.ErrorIs(t, err, ErrCodeReplayed)
		})
	}
}

func TestCodeStore_RedeemUnknownCode(t *testing.T) {
	store, _ := newTestCodeStore()
	verifier, _ := pkcePair()

	_, err := store.Redeem("not-a-code", testClientID, testRedirectURI, verifier)
	requireOAuthError(t, err, ErrorCodeInvalidGrant)
	assert.NotErrorIs(t, err, ErrCodeReplayed)
}

func TestCodeStore_Expiry(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		valid   bool
	}{
		{name: "just before expiry", elapsed: 10*time.Minute - time.Second, valid: true},
		{name: "at expiry", elapsed: 10 * time.Minute, valid: false},
		{name: "after expiry", elapsed: 11 * time.Minute, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, clock := newTestCodeStore()
			verifier, challenge := pkcePair()
			code, err := store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			_, err = store.Redeem(code.Code, testClientID, testRedirectURI, verifier)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				requireOAuthError(t, err, ErrorCodeInvalidGrant)
			}
		})
	}
}

func TestCodeStore_ConcurrentRedeem(t *testing.T) {
	store, _ := newTestCodeStore()
	verifier, challenge := pkcePair()
	code, err := store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
	require.NoError(t, err)

	const redeemers = 50
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		failures  atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < redeemers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := store.Redeem(code.Code, testClientID, testRedirectURI, verifier); err != nil {
				failures.Add(1)
				return
			}
			successes.Add(1)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, int32(redeemers-1), failures.Load())
}

func TestCodeStore_Sweep(t *testing.T) {
	store, clock := newTestCodeStore()
	_, challenge := pkcePair()

	_, err := store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
	require.NoError(t, err)
	clock.Advance(5 * time.Minute)
	_, err = store.Issue(testClientID, testRedirectURI, challenge, DefaultScopes)
	require.NoError(t, err)

	assert.Equal(t, 0, store.Sweep(clock.Now()))
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, store.Sweep(clock.Now()))
	assert.Equal(t, 1, store.Count())
	clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, store.Sweep(clock.Now()))
	assert.Equal(t, 0, store.Count())
}
