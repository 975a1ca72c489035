package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/internal/gateway"
)

func (t *Toolset) sonarrOperations() []gateway.Operation {
	return []gateway.Operation{
		{
			Tool: mcp.NewTool("search_sonarr_series",
				mcp.WithDescription("Search the Sonarr library for series whose title contains a term"),
				withInstance(),
				mcp.WithString("term", mcp.Required(), mcp.Description("Search term for series")),
				mcp.WithBoolean("include_tags", mcp.Description("Include tag names in the results")),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleSearchSonarrSeries,
		},
		{
			Tool: mcp.NewTool("lookup_sonarr_series",
				mcp.WithDescription("Look up TV series to add to Sonarr"),
				withInstance(),
				mcp.WithString("term", mcp.Required(), mcp.Description("Search term for series lookup, or tvdb:<id>")),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleLookupSonarrSeries,
		},
		{
			Tool: mcp.NewTool("get_sonarr_episodes",
				mcp.WithDescription("Get all episodes for a TV series"),
				withInstance(),
				mcp.WithNumber("series_id", mcp.Required(), mcp.Description("The series ID in Sonarr")),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleGetSonarrEpisodes,
		},
		{
			Tool: mcp.NewTool("find_series_with_tags",
				mcp.WithDescription("Find TV series carrying any of the given tags"),
				withInstance(),
				mcp.WithArray("tags",
					mcp.Required(),
					mcp.Description("Tag names to search for"),
					mcp.Items(map[string]interface{}{"type": "string"}),
				),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleFindSeriesWithTags,
		},
		{
			Tool: mcp.NewTool("add_sonarr_series",
				mcp.WithDescription("Add a new TV series to Sonarr"),
				withInstance(),
				mcp.WithNumber("tvdbId", mcp.Required(), mcp.Description("TVDB ID of the series")),
				mcp.WithString("title", mcp.Description("Series title")),
				mcp.WithNumber("qualityProfileId", mcp.Description("Quality profile ID. Defaults to HD-1080p or the first profile.")),
				mcp.WithString("rootFolderPath", mcp.Description("Root folder path. Defaults to the first root folder.")),
				mcp.WithBoolean("monitored", mcp.Description("Whether to monitor the series (default true)")),
				mcp.WithBoolean("searchForMissingEpisodes", mcp.Description("Search for missing episodes after adding")),
			),
			Scope:   authserver.ScopeWrite,
			Handler: t.handleAddSonarrSeries,
		},
		{
			Tool: mcp.NewTool("update_sonarr_monitoring",
				mcp.WithDescription("Monitor or unmonitor a series, or a single season of it"),
				withInstance(),
				mcp.WithNumber("series_id", mcp.Required(), mcp.Description("The series ID in Sonarr")),
				mcp.WithBoolean("monitored", mcp.Required(), mcp.Description("New monitoring state")),
				mcp.WithNumber("season_number", mcp.Description("Only change this season")),
			),
			Scope:   authserver.ScopeWrite,
			Handler: t.handleUpdateSonarrMonitoring,
		},
		{
			Tool: mcp.NewTool("search_sonarr_series_episodes",
				mcp.WithDescription("Trigger a search for all missing episodes of a series"),
				withInstance(),
				mcp.WithNumber("series_id", mcp.Required(), mcp.Description("The series ID in Sonarr")),
			),
			Scope:   authserver.ScopeWrite,
			Handler: t.handleSearchSonarrSeriesEpisodes,
		},
		{
			Tool: mcp.NewTool("delete_sonarr_series",
				mcp.WithDescription("Delete a series from Sonarr"),
				withInstance(),
				mcp.WithNumber("series_id", mcp.Required(), mcp.Description("The series ID in Sonarr")),
				mcp.WithBoolean("delete_files", mcp.Description("Also delete files on disk")),
				mcp.WithBoolean("add_import_exclusion", mcp.Description("Prevent the series from being re-added by lists")),
			),
			Scope:   authserver.ScopeAdmin,
			Handler: t.handleDeleteSonarrSeries,
		},
	}
}

func (t *Toolset) sonarr(request mcp.CallToolRequest) (*arr.Sonarr, error) {
	return t.instances.Sonarr(instanceName(request))
}

func (t *Toolset) handleSearchSonarrSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	series, err := sonarr.SearchLibrary(ctx, term, request.GetBool("include_tags", false))
	if err != nil {
		return toolError("search Sonarr library", err)
	}
	return jsonResult(series)
}

func (t *Toolset) handleLookupSonarrSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	results, err := sonarr.LookupSeries(ctx, term)
	if err != nil {
		return toolError("look up series", err)
	}
	return jsonResult(results)
}

func (t *Toolset) handleGetSonarrEpisodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := request.RequireInt("series_id")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	episodes, err := sonarr.Episodes(ctx, seriesID)
	if err != nil {
		return toolError("get episodes", err)
	}
	return jsonResult(episodes)
}

func (t *Toolset) handleFindSeriesWithTags(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := request.GetStringSlice("tags", nil)
	if len(tags) == 0 {
		return mcp.NewToolResultError("at least one tag is required"), nil
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	series, err := sonarr.FindByTags(ctx, tags)
	if err != nil {
		return toolError("find series by tags", err)
	}
	return jsonResult(series)
}

func (t *Toolset) handleAddSonarrSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tvdbID, err := request.RequireInt("tvdbId")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	added, err := sonarr.AddSeries(ctx, arr.AddSeriesOptions{
		TvdbID:           tvdbID,
		QualityProfileID: request.GetInt("qualityProfileId", 0),
		RootFolderPath:   request.GetString("rootFolderPath", ""),
		Monitored:        request.GetBool("monitored", true),
		SearchForMissing: request.GetBool("searchForMissingEpisodes", false),
	})
	if err != nil {
		return toolError("add series", err)
	}
	return jsonResult(added)
}

func (t *Toolset) handleUpdateSonarrMonitoring(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := request.RequireInt("series_id")
	if err != nil {
		return argumentError(err)
	}
	monitored, err := request.RequireBool("monitored")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	var season *int
	if _, ok := request.GetArguments()["season_number"]; ok {
		n := request.GetInt("season_number", 0)
		season = &n
	}

	updated, err := sonarr.SetMonitored(ctx, seriesID, monitored, season)
	if err != nil {
		return toolError("update monitoring", err)
	}
	return jsonResult(updated)
}

func (t *Toolset) handleSearchSonarrSeriesEpisodes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := request.RequireInt("series_id")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	command, err := sonarr.SearchSeries(ctx, seriesID)
	if err != nil {
		return toolError("start series search", err)
	}
	return jsonResult(command)
}

func (t *Toolset) handleDeleteSonarrSeries(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seriesID, err := request.RequireInt("series_id")
	if err != nil {
		return argumentError(err)
	}
	sonarr, err := t.sonarr(request)
	if err != nil {
		return argumentError(err)
	}

	deleteFiles := request.GetBool("delete_files", false)
	if err := sonarr.DeleteSeries(ctx, seriesID, deleteFiles, request.GetBool("add_import_exclusion", false)); err != nil {
		return toolError("delete series", err)
	}
	return jsonResult(map[string]interface{}{
		"deleted":     true,
		"seriesId":    seriesID,
		"deleteFiles": deleteFiles,
		"message":     fmt.Sprintf("Series %d deleted", seriesID),
	})
}
