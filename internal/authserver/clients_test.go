package authserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zipties/toolarr/pkg/oauth"
)

func newTestRegistry() *ClientRegistry {
	return NewClientRegistry(NewRandomGenerator(), newFakeClock(), DefaultScopes)
}

func TestClientRegistry_RegisterDefaults(t *testing.T) {
	registry := newTestRegistry()

	client, secret, err := registry.Register(ClientRegistration{Name: "Test"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(client.ID, ClientIDPrefix))
	assert.Len(t, secret, 43)
	assert.Equal(t, "Test", client.Name)
	assert.Equal(t, []string{oauth.GrantTypeClientCredentials}, client.GrantTypes)
	assert.Equal(t, oauth.AuthMethodClientSecretBasic, client.AuthMethod)
	assert.Equal(t, DefaultScopes, client.AllowedScopes)
	assert.False(t, client.Static)
	assert.Equal(t, 1, registry.Count())
}

func TestClientRegistry_RegisterUniqueIDs(t *testing.T) {
	registry := newTestRegistry()

	first, firstSecret, err := registry.Register(ClientRegistration{Name: "a"})
	require.NoError(t, err)
	second, secondSecret, err := registry.Register(ClientRegistration{Name: "b"})
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, firstSecret, secondSecret)
}

func TestClientRegistry_RegisterValidation(t *testing.T) {
	tests := []struct {
		name string
		reg  ClientRegistration
		code string
	}{
		{
			name: "unknown grant type",
			reg:  ClientRegistration{GrantTypes: []string{"password"}},
			code: ErrorCodeInvalidClientMetadata,
		},
		{
			name: "unknown auth method",
			reg:  ClientRegistration{AuthMethod: "private_key_jwt"},
			code: ErrorCodeInvalidClientMetadata,
		},
		{
			name: "no supported scope",
			reg:  ClientRegistration{Scope: "openid profile"},
			code: ErrorCodeInvalidClientMetadata,
		},
		{
			name: "authorization code without redirect uri",
			reg:  ClientRegistration{GrantTypes: []string{oauth.GrantTypeAuthorizationCode}},
			code: ErrorCodeInvalidRedirectURI,
		},
		{
			name: "plain http redirect",
			reg: ClientRegistration{
				GrantTypes:   []string{oauth.GrantTypeAuthorizationCode},
				RedirectURIs: []string{"http://example.com/cb"},
			},
			code: ErrorCodeInvalidRedirectURI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRegistry()
			_, _, err := registry.Register(tt.reg)
			requireOAuthError(t, err, tt.code)
			assert.Equal(t, 0, registry.Count())
		})
	}
}

func TestClientRegistry_RegisterScopeIntersection(t *testing.T) {
	registry := newTestRegistry()

	client, _, err := registry.Register(ClientRegistration{Scope: "mcp:read openid"})
	require.NoError(t, err)
	assert.Equal(t, NewScopes(ScopeRead), client.AllowedScopes)
}

func TestClientRegistry_Authenticate(t *testing.T) {
	registry := newTestRegistry()
	client, secret, err := registry.Register(ClientRegistration{Name: "Test"})
	require.NoError(t, err)

	authenticated, err := registry.Authenticate(client.ID, secret)
	require.NoError(t, err)
	assert.Equal(t, client.ID, authenticated.ID)

	_, wrongSecretErr := registry.Authenticate(client.ID, "not-the-secret")
	requireOAuthError(t, wrongSecretErr, ErrorCodeInvalidClient)

	_, unknownErr := registry.Authenticate("mcp-unknown", secret)
	requireOAuthError(t, unknownErr, ErrorCodeInvalidClient)

	_, emptyErr := registry.Authenticate(client.ID, "")
	requireOAuthError(t, emptyErr, ErrorCodeInvalidClient)

	// Unknown client and wrong secret must look identical.
	assert.Equal(t, wrongSecretErr.Error(), unknownErr.Error())
}

func TestClientRegistry_Lookup(t *testing.T) {
	registry := newTestRegistry()
	client, _, err := registry.Register(ClientRegistration{Name: "Test"})
	require.NoError(t, err)

	found, err := registry.Lookup(client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Name, found.Name)

	// Returned clients are copies.
	found.GrantTypes[0] = "mutated"
	again, err := registry.Lookup(client.ID)
	require.NoError(t, err)
	assert.Equal(t, oauth.GrantTypeClientCredentials, again.GrantTypes[0])

	_, err = registry.Lookup("mcp-missing")
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestClientRegistry_AddStatic(t *testing.T) {
	registry := newTestRegistry()

	err := registry.AddStatic(StaticClient{
		ID:     "ci-runner",
		Secret: "static-secret",
		Name:   "CI",
		Scopes: []string{ScopeRead},
	})
	require.NoError(t, err)

	client, err := registry.Authenticate("ci-runner", "static-secret")
	require.NoError(t, err)
	assert.True(t, client.Static)
	assert.Equal(t, NewScopes(ScopeRead), client.AllowedScopes)

	err = registry.AddStatic(StaticClient{ID: "ci-runner", Secret: "other"})
	assert.Error(t, err)

	err = registry.AddStatic(StaticClient{ID: "no-secret"})
	assert.Error(t, err)
}

func TestValidateRedirectURI(t *testing.T) {
	tests := []struct {
		uri   string
		valid bool
	}{
		{uri: "https://claude.ai/api/mcp/auth_callback", valid: true},
		{uri: "http://localhost:8080/callback", valid: true},
		{uri: "http://127.0.0.1:33418/cb", valid: true},
		{uri: "http://[::1]/cb", valid: true},
		{uri: "com.example.app:/oauth2redirect", valid: true},
		{uri: "http://example.com/cb", valid: false},
		{uri: "https://example.com/cb#frag", valid: false},
		{uri: "/relative/cb", valid: false},
		{uri: "javascript:alert(1)", valid: false},
		{uri: "https:///nohost", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			err := ValidateRedirectURI(tt.uri)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				requireOAuthError(t, err, ErrorCodeInvalidRedirectURI)
			}
		})
	}
}
