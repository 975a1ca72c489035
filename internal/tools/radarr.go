package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Zipties/toolarr/internal/arr"
	"github.com/Zipties/toolarr/internal/authserver"
	"github.com/Zipties/toolarr/internal/gateway"
)

func (t *Toolset) radarrOperations() []gateway.Operation {
	return []gateway.Operation{
		{
			Tool: mcp.NewTool("search_radarr_movies",
				mcp.WithDescription("Search the Radarr library for movies whose title contains a term"),
				withInstance(),
				mcp.WithString("term", mcp.Required(), mcp.Description("Search term for movies")),
				mcp.WithBoolean("include_tags", mcp.Description("Include tag names in the results")),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleSearchRadarrMovies,
		},
		{
			Tool: mcp.NewTool("lookup_radarr_movie",
				mcp.WithDescription("Look up movies to add to Radarr"),
				withInstance(),
				mcp.WithString("term", mcp.Required(), mcp.Description("Search term for movie lookup")),
			),
			Scope:   authserver.ScopeRead,
			Handler: t.handleLookupRadarrMovie,
		},
		{
			Tool: mcp.NewTool("add_radarr_movie",
				mcp.WithDescription("Add a new movie to Radarr"),
				withInstance(),
				mcp.WithNumber("tmdbId", mcp.Required(), mcp.Description("TMDB ID of the movie")),
				mcp.WithString("title", mcp.Description("Movie title")),
				mcp.WithNumber("qualityProfileId", mcp.Description("Quality profile ID. Defaults to HD-1080p or the first profile.")),
				mcp.WithString("rootFolderPath", mcp.Description("Root folder path. Defaults to the first root folder.")),
				mcp.WithBoolean("monitored", mcp.Description("Whether to monitor the movie (default true)")),
				mcp.WithBoolean("searchForMovie", mcp.Description("Search for the movie after adding (default true)")),
			),
			Scope:   authserver.ScopeWrite,
			Handler: t.handleAddRadarrMovie,
		},
		{
			Tool: mcp.NewTool("search_radarr_movie",
				mcp.WithDescription("Trigger a release search for a movie"),
				withInstance(),
				mcp.WithNumber("movie_id", mcp.Required(), mcp.Description("The movie ID in Radarr")),
			),
			Scope:   authserver.ScopeWrite,
			Handler: t.handleSearchRadarrMovie,
		},
		{
			Tool: mcp.NewTool("delete_radarr_movie",
				mcp.WithDescription("Delete a movie from Radarr"),
				withInstance(),
				mcp.WithNumber("movie_id", mcp.Required(), mcp.Description("The movie ID in Radarr")),
				mcp.WithBoolean("delete_files", mcp.Description("Also delete files on disk")),
				mcp.WithBoolean("add_import_exclusion", mcp.Description("Prevent the movie from being re-added by lists")),
			),
			Scope:   authserver.ScopeAdmin,
			Handler: t.handleDeleteRadarrMovie,
		},
		{
			Tool: mcp.NewTool("fix_radarr_movie",
				mcp.WithDescription("Delete a movie and its files, then re-add it and search for a new release"),
				withInstance(),
				mcp.WithNumber("movie_id", mcp.Required(), mcp.Description("The movie ID in Radarr")),
				mcp.WithBoolean("add_import_exclusion", mcp.Description("Blocklist the old release (default true)")),
			),
			Scope:   authserver.ScopeAdmin,
			Handler: t.handleFixRadarrMovie,
		},
	}
}

func (t *Toolset) radarr(request mcp.CallToolRequest) (*arr.Radarr, error) {
	return t.instances.Radarr(instanceName(request))
}

func (t *Toolset) handleSearchRadarrMovies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	movies, err := radarr.SearchLibrary(ctx, term, request.GetBool("include_tags", false))
	if err != nil {
		return toolError("search Radarr library", err)
	}
	return jsonResult(movies)
}

func (t *Toolset) handleLookupRadarrMovie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	results, err := radarr.LookupMovie(ctx, term)
	if err != nil {
		return toolError("look up movie", err)
	}
	return jsonResult(results)
}

func (t *Toolset) handleAddRadarrMovie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tmdbID, err := request.RequireInt("tmdbId")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	added, err := radarr.AddMovie(ctx, arr.AddMovieOptions{
		TmdbID:           tmdbID,
		QualityProfileID: request.GetInt("qualityProfileId", 0),
		RootFolderPath:   request.GetString("rootFolderPath", ""),
		Monitored:        request.GetBool("monitored", true),
		SearchForMovie:   request.GetBool("searchForMovie", true),
	})
	if err != nil {
		return toolError("add movie", err)
	}
	return jsonResult(added)
}

func (t *Toolset) handleSearchRadarrMovie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movieID, err := request.RequireInt("movie_id")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	command, err := radarr.SearchMovie(ctx, movieID)
	if err != nil {
		return toolError("start movie search", err)
	}
	return jsonResult(command)
}

func (t *Toolset) handleDeleteRadarrMovie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movieID, err := request.RequireInt("movie_id")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	deleteFiles := request.GetBool("delete_files", false)
	if err := radarr.DeleteMovie(ctx, movieID, deleteFiles, request.GetBool("add_import_exclusion", false)); err != nil {
		return toolError("delete movie", err)
	}
	return jsonResult(map[string]interface{}{
		"deleted":     true,
		"movieId":     movieID,
		"deleteFiles": deleteFiles,
		"message":     fmt.Sprintf("Movie %d deleted", movieID),
	})
}

func (t *Toolset) handleFixRadarrMovie(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	movieID, err := request.RequireInt("movie_id")
	if err != nil {
		return argumentError(err)
	}
	radarr, err := t.radarr(request)
	if err != nil {
		return argumentError(err)
	}

	added, err := radarr.FixMovie(ctx, movieID, request.GetBool("add_import_exclusion", true))
	if err != nil {
		return toolError("fix movie", err)
	}
	return jsonResult(map[string]interface{}{
		"movie":   added,
		"message": fmt.Sprintf("Movie '%s' was deleted, blocklisted, and is being re-downloaded.", added.Title),
	})
}
