package authserver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Zipties/toolarr/pkg/oauth"
)

const testIssuer = "https://toolarr.example.com"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newTestServer builds an AuthServer with registration enabled and a fake clock.
func newTestServer(t *testing.T) (*AuthServer, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	srv, err := New(Options{
		Issuer:       testIssuer,
		ResourceName: "toolarr",
		Registration: RegistrationOptions{Enabled: true, MaxPerWindow: 5, Window: time.Hour},
		Clock:        clock,
	})
	require.NoError(t, err)
	return srv, clock
}

// pkcePair returns a verifier and its S256 challenge computed by x/oauth2.
func pkcePair() (string, string) {
	verifier := oauth2.GenerateVerifier()
	return verifier, oauth2.S256ChallengeFromVerifier(verifier)
}

func registerAuthCodeClient(t *testing.T, srv *AuthServer, redirectURI string) (*Client, string) {
	t.Helper()
	client, secret, err := srv.Clients.Register(ClientRegistration{
		Name:         "browser",
		GrantTypes:   []string{oauth.GrantTypeAuthorizationCode},
		RedirectURIs: []string{redirectURI},
	})
	require.NoError(t, err)
	return client, secret
}

func requireOAuthError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var oauthErr *Error
	require.ErrorAs(t, err, &oauthErr)
	require.Equal(t, code, oauthErr.Code, "description: %s", oauthErr.Description)
}
