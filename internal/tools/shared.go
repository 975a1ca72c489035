package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/internal/gateway"
)

// sharedOperations returns the tools both services support, named
// get_<service>_queue and so on.
func (t *Toolset) sharedOperations(kind arr.Kind) []gateway.Operation {
	display := kind.DisplayName()
	name := func(format string) string {
		return fmt.Sprintf(format, kind)
	}

	return []gateway.Operation{
		{
			Tool: mcp.NewTool(name("get_%s_queue"),
				mcp.WithDescription(fmt.Sprintf("Get the %s download queue", display)),
				withInstance(),
				mcp.WithNumber("pageSize", mcp.Description("Items to return (default 50)")),
			),
			Scope: authserver.ScopeRead,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				queue, err := c.Queue(ctx, request.GetInt("pageSize", arr.DefaultPageSize))
				if err != nil {
					return toolError("get queue", err)
				}
				return jsonResult(queue)
			}),
		},
		{
			Tool: mcp.NewTool(name("get_%s_history"),
				mcp.WithDescription(fmt.Sprintf("Get the %s download history, newest first", display)),
				withInstance(),
				mcp.WithNumber("pageSize", mcp.Description("Items to return (default 20)")),
			),
			Scope: authserver.ScopeRead,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				history, err := c.History(ctx, request.GetInt("pageSize", 20))
				if err != nil {
					return toolError("get history", err)
				}
				return jsonResult(history)
			}),
		},
		{
			Tool: mcp.NewTool(name("get_%s_quality_profiles"),
				mcp.WithDescription(fmt.Sprintf("Get the %s quality profiles", display)),
				withInstance(),
			),
			Scope: authserver.ScopeRead,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				profiles, err := c.QualityProfiles(ctx)
				if err != nil {
					return toolError("get quality profiles", err)
				}
				return jsonResult(profiles)
			}),
		},
		{
			Tool: mcp.NewTool(name("get_%s_root_folders"),
				mcp.WithDescription(fmt.Sprintf("Get the %s root folders", display)),
				withInstance(),
			),
			Scope: authserver.ScopeRead,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				folders, err := c.RootFolders(ctx)
				if err != nil {
					return toolError("get root folders", err)
				}
				return jsonResult(folders)
			}),
		},
		{
			Tool: mcp.NewTool(name("get_%s_tags"),
				mcp.WithDescription(fmt.Sprintf("Get the %s tags", display)),
				withInstance(),
			),
			Scope: authserver.ScopeRead,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				tags, err := c.Tags(ctx)
				if err != nil {
					return toolError("get tags", err)
				}
				return jsonResult(tags)
			}),
		},
		{
			Tool: mcp.NewTool(name("create_%s_tag"),
				mcp.WithDescription(fmt.Sprintf("Create a %s tag", display)),
				withInstance(),
				mcp.WithString("label", mcp.Required(), mcp.Description("Tag label")),
			),
			Scope: authserver.ScopeWrite,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				label, err := request.RequireString("label")
				if err != nil {
					return argumentError(err)
				}
				tag, err := c.CreateTag(ctx, label)
				if err != nil {
					return toolError("create tag", err)
				}
				return jsonResult(tag)
			}),
		},
		{
			Tool: mcp.NewTool(name("delete_%s_queue_item"),
				mcp.WithDescription(fmt.Sprintf("Remove an item from the %s download queue", display)),
				withInstance(),
				mcp.WithNumber("queue_id", mcp.Required(), mcp.Description("Queue item ID to delete")),
				mcp.WithBoolean("remove_from_client", mcp.Description("Also remove from the download client (default true)")),
				mcp.WithBoolean("blocklist", mcp.Description("Blocklist the release")),
			),
			Scope: authserver.ScopeAdmin,
			Handler: t.withClient(kind, func(ctx context.Context, c *arr.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				queueID, err := request.RequireInt("queue_id")
				if err != nil {
					return argumentError(err)
				}
				err = c.DeleteQueueItem(ctx, queueID,
					request.GetBool("remove_from_client", true),
					request.GetBool("blocklist", false))
				if err != nil {
					return toolError("delete queue item", err)
				}
				return jsonResult(map[string]interface{}{
					"deleted": true,
					"queueId": queueID,
				})
			}),
		},
	}
}

type clientHandler func(ctx context.Context, c *arr.Client, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// withClient resolves the instance named in the request before calling fn.
func (t *Toolset) withClient(kind arr.Kind, fn clientHandler) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		client, err := t.instances.Client(kind, instanceName(request))
		if err != nil {
			return argumentError(err)
		}
		return fn(ctx, client, request)
	}
}
