// Package server assembles the toolarr HTTP server.
//
// One mux carries three groups of routes:
//
//   - GET /health (and GET /): unauthenticated status with auth counters
//   - the OAuth 2.1 endpoints of the embedded authorization server
//   - /mcp: the MCP streamable HTTP endpoint behind the bearer gateway
//
// Serve runs the HTTP server and the expired-credential sweeper in one
// errgroup, so a failure of either or cancellation of the context shuts
// both down. Readiness and shutdown are reported to systemd when the
// process runs under a notify unit.
package server
