package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"

	"github.com/Zipties/toolarr/pkg/logging"
)

// DefaultEndpointPath is where the MCP endpoint is served.
const DefaultEndpointPath = "/mcp"

// NewMCPServer builds the MCP server from the registry. tools/list is
// filtered to the caller's scopes and every tool call is checked again
// against the identity in its context.
func NewMCPServer(registry *Registry, name, version string) *server.MCPServer {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithToolFilter(scopeFilter(registry)),
		server.WithToolHandlerMiddleware(authorizeToolCall(registry)),
	)

	tools := lo.Map(registry.Operations(), func(op Operation, _ int) server.ServerTool {
		return server.ServerTool{Tool: op.Tool, Handler: op.Handler}
	})
	mcpServer.AddTools(tools...)

	logging.Info("Gateway", "MCP server %s %s serving %d tools", name, version, len(tools))
	return mcpServer
}

// NewHTTPHandler serves mcpServer over stateless streamable HTTP.
func NewHTTPHandler(mcpServer *server.MCPServer, endpointPath string) http.Handler {
	if endpointPath == "" {
		endpointPath = DefaultEndpointPath
	}
	return server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath(endpointPath),
		server.WithStateLess(true),
		server.WithHTTPContextFunc(identityFromRequest),
	)
}

// identityFromRequest carries the gateway identity into the MCP session
// context.
func identityFromRequest(ctx context.Context, r *http.Request) context.Context {
	if id, ok := IdentityFromContext(r.Context()); ok {
		return WithIdentity(ctx, id)
	}
	return ctx
}

// scopeFilter hides tools the caller may not call. Callers without an
// identity see nothing.
func scopeFilter(registry *Registry) server.ToolFilterFunc {
	return func(ctx context.Context, tools []mcp.Tool) []mcp.Tool {
		id, ok := IdentityFromContext(ctx)
		if !ok {
			return []mcp.Tool{}
		}
		return lo.Filter(tools, func(tool mcp.Tool, _ int) bool {
			scope, known := registry.RequiredScope(tool.Name)
			return known && id.HasScope(scope)
		})
	}
}

// authorizeToolCall re-checks scope inside the MCP server and logs every
// invocation.
func authorizeToolCall(registry *Registry) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			tool := request.Params.Name
			id, ok := IdentityFromContext(ctx)
			if !ok {
				return mcp.NewToolResultError("unauthenticated tool call"), nil
			}
			if scope, known := registry.RequiredScope(tool); known && !id.HasScope(scope) {
				return mcp.NewToolResultError("insufficient scope: " + scope + " required"), nil
			}

			start := time.Now()
			result, err := next(ctx, request)
			duration := time.Since(start)

			outcome := "success"
			switch {
			case err != nil:
				outcome = "failure"
				logging.Warn("Tools", "Tool %s failed for %s after %v: %v", tool, id.Subject(), duration, err)
			case result != nil && result.IsError:
				outcome = "failure"
				logging.Debug("Tools", "Tool %s returned an error result for %s after %v", tool, id.Subject(), duration)
			default:
				logging.Debug("Tools", "Tool %s completed for %s in %v", tool, id.Subject(), duration)
			}
			logging.Audit(logging.AuditEvent{
				Action:   "tool_call",
				Outcome:  outcome,
				ClientID: id.ClientID,
				Target:   tool,
			})
			return result, err
		}
	}
}
