// Package logging provides the structured logging used across toolarr.
//
// It is a thin layer over Go's slog package that adds a subsystem attribute
// to every entry and printf-style helpers, so call sites stay short:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Bootstrap", "Application starting up")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Gateway", "Rejected call to %s", toolName)
//	logging.Error("Server", err, "HTTP server failed")
//
// JSON output is available through InitWithFormat(level, w, FormatJSON).
//
// # Subsystems
//
//   - Bootstrap: application initialization and startup
//   - Config: configuration loading and validation
//   - OAuth: authorization server (registration, codes, tokens)
//   - Gateway: bearer validation and scope checks on the MCP endpoint
//   - Tools: Sonarr/Radarr tool handlers
//   - Server: HTTP lifecycle
//
// # Audit Logging
//
// Security-sensitive operations are recorded with Audit:
//
//	logging.Audit(logging.AuditEvent{
//	    Action:   "token_issued",
//	    Outcome:  "success",
//	    ClientID: client.ID,
//	})
//
// Audit events are logged at INFO level with an [AUDIT] prefix for easy
// filtering. Secrets and tokens must never be placed in an event; use
// Fingerprint when two log lines need to be correlated by a secret value.
package logging
