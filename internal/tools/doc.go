// Package tools defines the Sonarr and Radarr MCP tools and the scope
// each one requires. Results are JSON text; backend failures are reported
// as tool errors so the calling model can see them.
package tools
