// Package oauth provides the OAuth 2.1 wire types and client helpers shared
// by the toolarr server and its command line client.
//
// # Core Components
//
//   - Token, Metadata, ProtectedResourceMetadata: response documents
//   - ClientRegistrationRequest/Response: RFC 7591 bodies
//   - ErrorResponse: the RFC 6749 error body
//   - PKCE: S256 challenge generation and verification (RFC 7636)
//   - AuthChallenge: WWW-Authenticate parsing and formatting (RFC 6750)
//   - Client: discovery, registration, client credentials and code exchange
//
// # Usage
//
// Server side, the authorization server renders these types and verifies
// PKCE with VerifyS256:
//
//	if !oauth.VerifyS256(verifier, storedChallenge) { ... }
//
// Client side, the CLI discovers the server and obtains a token:
//
//	client := oauth.NewClient()
//	metadata, err := client.DiscoverMetadata(ctx, "https://toolarr.example.com")
//	reg, err := client.RegisterClient(ctx, metadata.RegistrationEndpoint,
//	    oauth.ClientRegistrationRequest{ClientName: "cli"})
//	token, err := client.ClientCredentialsToken(ctx, metadata.TokenEndpoint,
//	    reg.ClientID, reg.ClientSecret, reg.TokenEndpointAuthMethod, nil)
package oauth
