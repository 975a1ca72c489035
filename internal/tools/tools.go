package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/internal/gateway"
	"github.com/Zipties/toolarr/pkg/logging"
)

const instanceArg = "instance_name"

// Toolset exposes Sonarr and Radarr operations as MCP tools.
type Toolset struct {
	instances *arr.Instances
}

// New creates a toolset backed by instances.
func New(instances *arr.Instances) *Toolset {
	return &Toolset{instances: instances}
}

// Register adds every tool to registry.
func (t *Toolset) Register(registry *gateway.Registry) error {
	return registry.Register(t.Operations()...)
}

// Operations returns every tool with its required scope.
func (t *Toolset) Operations() []gateway.Operation {
	ops := []gateway.Operation{
		{
			Tool: mcp.NewTool("list_instances",
				mcp.WithDescription("List the configured Sonarr and Radarr instances"),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleListInstances,
		},
	}
	ops = append(ops, t.sonarrOperations()...)
	ops = append(ops, t.radarrOperations()...)
	ops = append(ops, t.sharedOperations(arr.KindSonarr)...)
	ops = append(ops, t.sharedOperations(arr.KindRadarr)...)
	return ops
}

type instanceInfo struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (t *Toolset) handleListInstances(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	infos := []instanceInfo{}
	for _, kind := range []arr.Kind{arr.KindSonarr, arr.KindRadarr} {
		for _, name := range t.instances.Names(kind) {
			client, err := t.instances.Client(kind, name)
			if err != nil {
				continue
			}
			infos = append(infos, instanceInfo{Kind: string(kind), Name: name, URL: client.URL()})
		}
	}
	return jsonResult(infos)
}

// withInstance is the common instance_name argument.
func withInstance() mcp.ToolOption {
	return mcp.WithString(instanceArg,
		mcp.Description("Instance name. Use 'default' unless the user names another instance."),
	)
}

func instanceName(request mcp.CallToolRequest) string {
	return request.GetString(instanceArg, arr.DefaultInstanceName)
}

// jsonResult renders v as indented JSON text content.
func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError reports a backend failure as a tool error rather than a
// protocol error.
func toolError(action string, err error) (*mcp.CallToolResult, error) {
	logging.Warn("Tools", "Failed to %s: %v", action, err)
	return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", action, err)), nil
}

func argumentError(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}
