package arr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// Sonarr is a client for a Sonarr instance.
type Sonarr struct {
	*Client
}

// NewSonarr creates a Sonarr client.
func NewSonarr(instance Instance, opts ...Option) *Sonarr {
	instance.Kind = KindSonarr
	return &Sonarr{Client: NewClient(instance, opts...)}
}

// Series returns every series in the library.
func (s *Sonarr) Series(ctx context.Context) ([]Series, error) {
	var series []Series
	if err := s.get(ctx, "series", nil, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// SeriesByID returns one series.
func (s *Sonarr) SeriesByID(ctx context.Context, id int) (*Series, error) {
	var series Series
	if err := s.get(ctx, "series/"+strconv.Itoa(id), nil, &series); err != nil {
		return nil, err
	}
	return &series, nil
}

// SearchLibrary returns library series whose title contains term, with
// quality profile names and, optionally, tag names filled in.
func (s *Sonarr) SearchLibrary(ctx context.Context, term string, includeTags bool) ([]Series, error) {
	all, err := s.Series(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.qualityProfileNames(ctx)
	if err != nil {
		return nil, err
	}
	var tags map[int]string
	if includeTags {
		if tags, err = s.tagNames(ctx); err != nil {
			return nil, err
		}
	}

	matches := lo.Filter(all, func(series Series, _ int) bool {
		return containsFold(series.Title, term)
	})
	for i := range matches {
		matches[i].QualityProfileName = lo.ValueOr(profiles, matches[i].QualityProfileID, "Unknown")
		if includeTags {
			matches[i].TagNames = labelTags(matches[i].Tags, tags)
		}
	}
	return matches, nil
}

// FindByTags returns series carrying any of the named tags.
func (s *Sonarr) FindByTags(ctx context.Context, labels []string) ([]Series, error) {
	tags, err := s.tagNames(ctx)
	if err != nil {
		return nil, err
	}
	wanted := lo.Keys(lo.PickBy(tags, func(_ int, label string) bool {
		return lo.ContainsBy(labels, func(l string) bool { return strings.EqualFold(l, label) })
	}))
	if len(wanted) == 0 {
		return []Series{}, nil
	}

	all, err := s.Series(ctx)
	if err != nil {
		return nil, err
	}
	matches := lo.Filter(all, func(series Series, _ int) bool {
		return len(lo.Intersect(series.Tags, wanted)) > 0
	})
	for i := range matches {
		matches[i].TagNames = labelTags(matches[i].Tags, tags)
	}
	return matches, nil
}

// LookupSeries searches the metadata provider for series to add. A term
// of the form "tvdb:<id>" looks up a single TVDB id.
func (s *Sonarr) LookupSeries(ctx context.Context, term string) ([]Series, error) {
	var results []Series
	if err := s.get(ctx, "series/lookup", url.Values{"term": {term}}, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Episodes returns every episode of a series.
func (s *Sonarr) Episodes(ctx context.Context, seriesID int) ([]Episode, error) {
	var episodes []Episode
	query := url.Values{"seriesId": {strconv.Itoa(seriesID)}}
	if err := s.get(ctx, "episode", query, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// AddSeriesOptions describes a series to add.
type AddSeriesOptions struct {
	TvdbID           int
	QualityProfileID int
	RootFolderPath   string
	Monitored        bool
	SearchForMissing bool
}

type addSeriesPayload struct {
	TvdbID           int             `json:"tvdbId"`
	Title            string          `json:"title"`
	TitleSlug        string          `json:"titleSlug,omitempty"`
	QualityProfileID int             `json:"qualityProfileId"`
	RootFolderPath   string          `json:"rootFolderPath"`
	Monitored        bool            `json:"monitored"`
	SeasonFolder     bool            `json:"seasonFolder"`
	Seasons          []Season        `json:"seasons"`
	AddOptions       addSeriesOption `json:"addOptions"`
}

type addSeriesOption struct {
	SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
}

// AddSeries looks the series up by TVDB id and adds it to the library.
func (s *Sonarr) AddSeries(ctx context.Context, opts AddSeriesOptions) (*Series, error) {
	if opts.TvdbID <= 0 {
		return nil, fmt.Errorf("a TVDB id is required")
	}
	results, err := s.LookupSeries(ctx, "tvdb:"+strconv.Itoa(opts.TvdbID))
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("series with TVDB id %d not found", opts.TvdbID)
	}
	found := results[0]

	profileID, rootFolder, err := s.resolveAddDefaults(ctx, opts.QualityProfileID, opts.RootFolderPath)
	if err != nil {
		return nil, err
	}

	seasons := lo.Map(found.Seasons, func(season Season, _ int) Season {
		return Season{SeasonNumber: season.SeasonNumber, Monitored: opts.Monitored && season.SeasonNumber > 0}
	})

	var added Series
	err = s.post(ctx, "series", addSeriesPayload{
		TvdbID:           found.TvdbID,
		Title:            found.Title,
		TitleSlug:        found.TitleSlug,
		QualityProfileID: profileID,
		RootFolderPath:   rootFolder,
		Monitored:        opts.Monitored,
		SeasonFolder:     true,
		Seasons:          seasons,
		AddOptions:       addSeriesOption{SearchForMissingEpisodes: opts.SearchForMissing},
	}, &added)
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// SetMonitored updates monitoring for a whole series, or for one season
// when season is not nil. The full series resource is read and written
// back so fields this client does not model are preserved.
func (s *Sonarr) SetMonitored(ctx context.Context, seriesID int, monitored bool, season *int) (*Series, error) {
	endpoint := "series/" + strconv.Itoa(seriesID)

	var raw map[string]interface{}
	if err := s.get(ctx, endpoint, nil, &raw); err != nil {
		return nil, err
	}

	seasons, _ := raw["seasons"].([]interface{})
	if season == nil {
		raw["monitored"] = monitored
	}
	found := false
	for _, entry := range seasons {
		record, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}
		number, _ := record["seasonNumber"].(float64)
		if season == nil || int(number) == *season {
			record["monitored"] = monitored
			found = true
		}
	}
	if season != nil && !found {
		return nil, fmt.Errorf("season %d not found in series %d", *season, seriesID)
	}

	var updated Series
	if err := s.put(ctx, endpoint, raw, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSeries removes a series, optionally deleting files and excluding
// it from future imports.
func (s *Sonarr) DeleteSeries(ctx context.Context, id int, deleteFiles, addImportExclusion bool) error {
	query := url.Values{
		"deleteFiles":        {strconv.FormatBool(deleteFiles)},
		"addImportExclusion": {strconv.FormatBool(addImportExclusion)},
	}
	return s.delete(ctx, "series/"+strconv.Itoa(id), query)
}

type seriesSearchCommand struct {
	Name     string `json:"name"`
	SeriesID int    `json:"seriesId"`
}

// SearchSeries queues a search for all missing episodes of a series.
func (s *Sonarr) SearchSeries(ctx context.Context, seriesID int) (*Command, error) {
	var command Command
	if err := s.post(ctx, "command", seriesSearchCommand{Name: "SeriesSearch", SeriesID: seriesID}, &command); err != nil {
		return nil, err
	}
	return &command, nil
}
