package arr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/samber/lo"
)

// Radarr is a client for a Radarr instance.
type Radarr struct {
	*Client
}

// NewRadarr creates a Radarr client.
func NewRadarr(instance Instance, opts ...Option) *Radarr {
	instance.Kind = KindRadarr
	return &Radarr{Client: NewClient(instance, opts...)}
}

// Movies returns every movie in the library.
func (r *Radarr) Movies(ctx context.Context) ([]Movie, error) {
	var movies []Movie
	if err := r.get(ctx, "movie", nil, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// SearchLibrary returns library movies whose title contains term, with
// quality profile names and, optionally, tag names filled in.
func (r *Radarr) SearchLibrary(ctx context.Context, term string, includeTags bool) ([]Movie, error) {
	all, err := r.Movies(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := r.qualityProfileNames(ctx)
	if err != nil {
		return nil, err
	}
	var tags map[int]string
	if includeTags {
		if tags, err = r.tagNames(ctx); err != nil {
			return nil, err
		}
	}

	matches := lo.Filter(all, func(movie Movie, _ int) bool {
		return containsFold(movie.Title, term)
	})
	for i := range matches {
		matches[i].QualityProfileName = lo.ValueOr(profiles, matches[i].QualityProfileID, "Unknown")
		if includeTags {
			matches[i].TagNames = labelTags(matches[i].Tags, tags)
		}
	}
	return matches, nil
}

// LookupMovie searches the metadata provider by free text.
func (r *Radarr) LookupMovie(ctx context.Context, term string) ([]Movie, error) {
	var results []Movie
	if err := r.get(ctx, "movie/lookup", url.Values{"term": {term}}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// LookupMovieByTmdbID fetches a single movie from the metadata provider.
func (r *Radarr) LookupMovieByTmdbID(ctx context.Context, tmdbID int) (*Movie, error) {
	var movie Movie
	query := url.Values{"tmdbId": {strconv.Itoa(tmdbID)}}
	if err := r.get(ctx, "movie/lookup/tmdb", query, &movie); err != nil {
		return nil, err
	}
	if movie.TmdbID == 0 {
		return nil, fmt.Errorf("movie with TMDB id %d not found", tmdbID)
	}
	return &movie, nil
}

// AddMovieOptions describes a movie to add.
type AddMovieOptions struct {
	TmdbID           int
	QualityProfileID int
	RootFolderPath   string
	Monitored        bool
	SearchForMovie   bool
}

type addMoviePayload struct {
	TmdbID           int            `json:"tmdbId"`
	Title            string         `json:"title"`
	TitleSlug        string         `json:"titleSlug,omitempty"`
	Year             int            `json:"year,omitempty"`
	QualityProfileID int            `json:"qualityProfileId"`
	RootFolderPath   string         `json:"rootFolderPath"`
	Monitored        bool           `json:"monitored"`
	AddOptions       addMovieOption `json:"addOptions"`
}

type addMovieOption struct {
	SearchForMovie bool `json:"searchForMovie"`
}

// AddMovie looks the movie up by TMDB id and adds it to the library.
func (r *Radarr) AddMovie(ctx context.Context, opts AddMovieOptions) (*Movie, error) {
	if opts.TmdbID <= 0 {
		return nil, fmt.Errorf("a TMDB id is required")
	}
	found, err := r.LookupMovieByTmdbID(ctx, opts.TmdbID)
	if err != nil {
		return nil, err
	}

	profileID, rootFolder, err := r.resolveAddDefaults(ctx, opts.QualityProfileID, opts.RootFolderPath)
	if err != nil {
		return nil, err
	}

	var added Movie
	err = r.post(ctx, "movie", addMoviePayload{
		TmdbID:           found.TmdbID,
		Title:            found.Title,
		TitleSlug:        found.TitleSlug,
		Year:             found.Year,
		QualityProfileID: profileID,
		RootFolderPath:   rootFolder,
		Monitored:        opts.Monitored,
		AddOptions:       addMovieOption{SearchForMovie: opts.SearchForMovie},
	}, &added)
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// DeleteMovie removes a movie, optionally deleting files and excluding it
// from future imports.
// Movie returns a single movie by id.
func (r *Radarr) Movie(ctx context.Context, id int) (*Movie, error) {
	var movie Movie
	if err := r.get(ctx, "movie/"+strconv.Itoa(id), nil, &movie); err != nil {
		return nil, err
	}
	return &movie, nil
}

// FixMovie deletes a movie together with its files and re-adds it with a
// fresh search. With addImportExclusion the old release is blocklisted so
// lists cannot bring it straight back.
func (r *Radarr) FixMovie(ctx context.Context, id int, addImportExclusion bool) (*Movie, error) {
	movie, err := r.Movie(ctx, id)
	if err != nil {
		return nil, err
	}
	if movie.TmdbID <= 0 || movie.QualityProfileID <= 0 || movie.RootFolderPath == "" {
		return nil, fmt.Errorf("movie %d is missing the data needed to re-add it", id)
	}

	if err := r.DeleteMovie(ctx, id, true, addImportExclusion); err != nil {
		return nil, fmt.Errorf("failed to delete movie %d: %w", id, err)
	}

	var added Movie
	err = r.post(ctx, "movie", addMoviePayload{
		TmdbID:           movie.TmdbID,
		Title:            movie.Title,
		TitleSlug:        movie.TitleSlug,
		Year:             movie.Year,
		QualityProfileID: movie.QualityProfileID,
		RootFolderPath:   movie.RootFolderPath,
		Monitored:        true,
		AddOptions:       addMovieOption{SearchForMovie: true},
	}, &added)
	if err != nil {
		return nil, fmt.Errorf("failed to re-add movie %q: %w", movie.Title, err)
	}
	return &added, nil
}

func (r *Radarr) DeleteMovie(ctx context.Context, id int, deleteFiles, addImportExclusion bool) error {
	query := url.Values{
		"deleteFiles":        {strconv.FormatBool(deleteFiles)},
		"addImportExclusion": {strconv.FormatBool(addImportExclusion)},
	}
	return r.delete(ctx, "movie/"+strconv.Itoa(id), query)
}

type moviesSearchCommand struct {
	Name     string `json:"name"`
	MovieIDs []int  `json:"movieIds"`
}

// SearchMovie queues a release search for a movie.
func (r *Radarr) SearchMovie(ctx context.Context, movieID int) (*Command, error) {
	var command Command
	if err := r.post(ctx, "command", moviesSearchCommand{Name: "MoviesSearch", MovieIDs: []int{movieID}}, &command); err != nil {
		return nil, err
	}
	return &command, nil
}
