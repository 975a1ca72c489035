package oauth

import (
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Grant types supported by the toolarr authorization server.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeClientCredentials = "client_credentials"
)

// Token endpoint client authentication methods.
const (
	AuthMethodClientSecretBasic = "client_secret_basic"
	AuthMethodClientSecretPost  = "client_secret_post"
)

const (
	// ResponseTypeCode is the only response_type OAuth 2.1 allows.
	ResponseTypeCode = "code"

	// CodeChallengeMethodS256 is the only PKCE method accepted.
	CodeChallengeMethodS256 = "S256"

	// TokenTypeBearer is the token_type of every issued access token.
	TokenTypeBearer = "Bearer"
)

// Well-known paths served by the authorization server.
const (
	AuthorizationServerMetadataPath = "/.well-known/oauth-authorization-server"
	ProtectedResourceMetadataPath   = "/.well-known/oauth-protected-resource"
	RegistrationPath                = "/oauth/register"
	AuthorizationPath               = "/oauth/authorize"
	TokenPath                       = "/oauth/token"
)

// NormalizeServerURL strips the transport path suffix (/mcp) and trailing
// slashes so the base server URL can be used for metadata discovery.
func NormalizeServerURL(serverURL string) string {
	serverURL = strings.TrimSuffix(serverURL, "/")
	serverURL = strings.TrimSuffix(serverURL, "/mcp")
	return strings.TrimSuffix(serverURL, "/")
}

// Token represents an OAuth access token response (RFC 6749 section 5.1).
type Token struct {
	// AccessToken is the bearer token used for authorization.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the token lifetime in seconds (from token response).
	ExpiresIn int `json:"expires_in,omitempty"`

	// Scope is the granted scope(s), space-separated.
	Scope string `json:"scope,omitempty"`

	// ExpiresAt is the calculated expiration timestamp. It is never sent by
	// the server; clients fill it in from ExpiresIn.
	ExpiresAt time.Time `json:"-"`
}

// IsExpired reports whether the token has expired at the given instant.
func (t *Token) IsExpired(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// Scopes returns the scope as a slice of individual scopes.
func (t *Token) Scopes() []string {
	if t.Scope == "" {
		return nil
	}
	return strings.Fields(t.Scope)
}

// ToOAuth2Token converts the Token for use with golang.org/x/oauth2 transports.
func (t *Token) ToOAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      t.ExpiresAt,
	}
}

// TokenFromOAuth2 converts a golang.org/x/oauth2 token into a Token.
func TokenFromOAuth2(tok *oauth2.Token, now time.Time) *Token {
	t := &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresAt:   tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresIn = int(tok.Expiry.Sub(now).Round(time.Second).Seconds())
	}
	return t
}

// Metadata represents OAuth 2.0 Authorization Server Metadata as defined in RFC 8414.
type Metadata struct {
	// Issuer is the authorization server's issuer identifier.
	Issuer string `json:"issuer"`

	// AuthorizationEndpoint is the URL of the authorization endpoint.
	AuthorizationEndpoint string `json:"authorization_endpoint"`

	// TokenEndpoint is the URL of the token endpoint.
	TokenEndpoint string `json:"token_endpoint"`

	// RegistrationEndpoint is the URL for dynamic client registration.
	RegistrationEndpoint string `json:"registration_endpoint,omitempty"`

	// ScopesSupported lists the OAuth 2.0 scope values supported.
	ScopesSupported []string `json:"scopes_supported,omitempty"`

	// ResponseTypesSupported lists the response_type values supported.
	ResponseTypesSupported []string `json:"response_types_supported,omitempty"`

	// GrantTypesSupported lists the grant types supported.
	GrantTypesSupported []string `json:"grant_types_supported,omitempty"`

	// TokenEndpointAuthMethodsSupported lists the client authentication methods.
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported,omitempty"`

	// CodeChallengeMethodsSupported lists the PKCE code challenge methods.
	CodeChallengeMethodsSupported []string `json:"code_challenge_methods_supported,omitempty"`
}

// SupportsPKCE returns true if the server supports S256 PKCE.
func (m *Metadata) SupportsPKCE() bool {
	for _, method := range m.CodeChallengeMethodsSupported {
		if method == CodeChallengeMethodS256 {
			return true
		}
	}
	// If not specified, assume S256 is supported (OAuth 2.1 requirement)
	return len(m.CodeChallengeMethodsSupported) == 0
}

// SupportsGrant reports whether the server advertises the grant type.
func (m *Metadata) SupportsGrant(grantType string) bool {
	for _, g := range m.GrantTypesSupported {
		if g == grantType {
			return true
		}
	}
	return false
}

// ProtectedResourceMetadata is the RFC 9728 document describing the MCP endpoint.
type ProtectedResourceMetadata struct {
	Resource               string   `json:"resource"`
	AuthorizationServers   []string `json:"authorization_servers"`
	ScopesSupported        []string `json:"scopes_supported,omitempty"`
	BearerMethodsSupported []string `json:"bearer_methods_supported,omitempty"`
	ResourceName           string   `json:"resource_name,omitempty"`
}

// AuthChallenge represents parsed information from a WWW-Authenticate header.
type AuthChallenge struct {
	// Scheme is the authentication scheme (typically "Bearer").
	Scheme string

	// Realm is the protection realm (the issuer URL for toolarr).
	Realm string

	// Issuer is the OAuth issuer URL, derived from the Realm if it's a URL.
	Issuer string

	// ResourceMetadataURL is the URL to the protected resource metadata (RFC 9728).
	ResourceMetadataURL string

	// Scope is the space-separated list of required OAuth scopes.
	Scope string

	// Error is the error code from the WWW-Authenticate header (if any).
	Error string

	// ErrorDescription is a human-readable error description (if any).
	ErrorDescription string
}

// IsOAuthChallenge returns true if this represents an OAuth authentication challenge.
func (c *AuthChallenge) IsOAuthChallenge() bool {
	if c == nil {
		return false
	}
	if !strings.EqualFold(c.Scheme, "Bearer") {
		return false
	}
	return c.Realm != "" || c.ResourceMetadataURL != "" || c.Issuer != ""
}

// GetIssuer returns the OAuth issuer URL.
// It prefers the explicit Issuer field, falls back to Realm if it's a URL.
func (c *AuthChallenge) GetIssuer() string {
	if c == nil {
		return ""
	}
	if c.Issuer != "" {
		return c.Issuer
	}
	if strings.HasPrefix(c.Realm, "http://") || strings.HasPrefix(c.Realm, "https://") {
		return c.Realm
	}
	return ""
}

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) challenge.
type PKCEChallenge struct {
	// CodeVerifier is kept by the client and sent only to the token endpoint.
	CodeVerifier string

	// CodeChallenge is the S256 transform of the verifier, sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// ClientRegistrationRequest is the RFC 7591 registration request body.
type ClientRegistrationRequest struct {
	ClientName              string   `json:"client_name"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types,omitempty"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method,omitempty"`
	Scope                   string   `json:"scope,omitempty"`
}

// ClientRegistrationResponse is the RFC 7591 registration response body.
// ClientSecret is only ever present in this one response.
type ClientRegistrationResponse struct {
	ClientID                string   `json:"client_id"`
	ClientSecret            string   `json:"client_secret"`
	ClientIDIssuedAt        int64    `json:"client_id_issued_at"`
	ClientSecretExpiresAt   int64    `json:"client_secret_expires_at"`
	ClientName              string   `json:"client_name,omitempty"`
	RedirectURIs            []string `json:"redirect_uris,omitempty"`
	GrantTypes              []string `json:"grant_types"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`
}

// ErrorResponse is the OAuth error body (RFC 6749 section 5.2).
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}
