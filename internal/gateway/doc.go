// Package gateway protects the MCP endpoint with the bearer tokens issued
// by the embedded authorization server.
//
// A request passes four gates before the MCP server sees it: a well-formed
// Bearer header, a valid token (or the legacy pre-shared key), a JSON-RPC
// body that parses, and, for every tools/call in the body, the scope the
// Registry assigns to that tool. The token itself is dropped and an
// Identity travels in the request context instead.
//
// The MCP server built by NewMCPServer filters tools/list by the same
// scopes and re-checks them in its tool middleware.
package gateway
