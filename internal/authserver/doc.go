// Package authserver implements the embedded OAuth 2.1 authorization server
// that protects the MCP endpoint.
//
// # Core Components
//
//   - ClientRegistry: dynamically registered and configured clients
//   - CodeStore: single-use, PKCE-bound authorization codes
//   - TokenStore: opaque bearer tokens with a fixed lifetime
//   - Engine: the authorization_code and client_credentials flows
//   - Handler: RFC 8414, RFC 9728, RFC 7591, authorize and token endpoints
//   - Sweeper: periodic removal of expired codes and tokens
//
// All stores are in memory and guarded by their own lock. Nothing survives
// a restart. Secrets, codes and tokens are stored as SHA-256 fingerprints
// and never logged.
//
// # Time
//
// Every expiry is computed from an injected Clock, so tests can move time
// without sleeping.
//
// # Replay
//
// Redeeming an authorization code twice fails with invalid_grant and
// revokes every token issued from that code.
package authserver
