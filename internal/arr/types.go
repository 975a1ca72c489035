package arr

import "time"

// QualityProfile is a named quality profile.
type QualityProfile struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RootFolder is a library root.
type RootFolder struct {
	ID         int    `json:"id"`
	Path       string `json:"path"`
	Accessible bool   `json:"accessible"`
	FreeSpace  int64  `json:"freeSpace"`
}

// Tag is a label that can be attached to series and movies.
type Tag struct {
	ID    int    `json:"id"`
	Label string `json:"label"`
}

// QueueRecord is an item in the download queue.
type QueueRecord struct {
	ID                    int     `json:"id"`
	Title                 string  `json:"title"`
	Status                string  `json:"status"`
	TrackedDownloadStatus string  `json:"trackedDownloadStatus,omitempty"`
	TrackedDownloadState  string  `json:"trackedDownloadState,omitempty"`
	Protocol              string  `json:"protocol,omitempty"`
	DownloadClient        string  `json:"downloadClient,omitempty"`
	Size                  float64 `json:"size"`
	SizeLeft              float64 `json:"sizeleft"`
	TimeLeft              string  `json:"timeleft,omitempty"`
	SeriesID              int     `json:"seriesId,omitempty"`
	EpisodeID             int     `json:"episodeId,omitempty"`
	MovieID               int     `json:"movieId,omitempty"`
}

// HistoryRecord is a grab, import or failure event.
type HistoryRecord struct {
	ID          int       `json:"id"`
	SourceTitle string    `json:"sourceTitle"`
	EventType   string    `json:"eventType"`
	Date        time.Time `json:"date"`
	SeriesID    int       `json:"seriesId,omitempty"`
	EpisodeID   int       `json:"episodeId,omitempty"`
	MovieID     int       `json:"movieId,omitempty"`
}

type page[T any] struct {
	Page         int `json:"page"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
	Records      []T `json:"records"`
}

// Statistics summarizes files on disk.
type Statistics struct {
	EpisodeFileCount  int     `json:"episodeFileCount,omitempty"`
	EpisodeCount      int     `json:"episodeCount,omitempty"`
	TotalEpisodeCount int     `json:"totalEpisodeCount,omitempty"`
	SizeOnDisk        int64   `json:"sizeOnDisk,omitempty"`
	PercentOfEpisodes float64 `json:"percentOfEpisodes,omitempty"`
}

// Season is a season of a series.
type Season struct {
	SeasonNumber int         `json:"seasonNumber"`
	Monitored    bool        `json:"monitored"`
	Statistics   *Statistics `json:"statistics,omitempty"`
}

// Series is a Sonarr series.
type Series struct {
	ID                 int         `json:"id,omitempty"`
	Title              string      `json:"title"`
	TitleSlug          string      `json:"titleSlug,omitempty"`
	Year               int         `json:"year,omitempty"`
	TvdbID             int         `json:"tvdbId"`
	Status             string      `json:"status,omitempty"`
	Overview           string      `json:"overview,omitempty"`
	Path               string      `json:"path,omitempty"`
	RootFolderPath     string      `json:"rootFolderPath,omitempty"`
	QualityProfileID   int         `json:"qualityProfileId,omitempty"`
	QualityProfileName string      `json:"qualityProfileName,omitempty"`
	SeriesType         string      `json:"seriesType,omitempty"`
	Monitored          bool        `json:"monitored"`
	Tags               []int       `json:"tags,omitempty"`
	TagNames           []string    `json:"tagNames,omitempty"`
	Seasons            []Season    `json:"seasons,omitempty"`
	Statistics         *Statistics `json:"statistics,omitempty"`
}

// Episode is a Sonarr episode.
type Episode struct {
	ID            int    `json:"id"`
	SeriesID      int    `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	AirDateUTC    string `json:"airDateUtc,omitempty"`
	HasFile       bool   `json:"hasFile"`
	Monitored     bool   `json:"monitored"`
}

// Movie is a Radarr movie.
type Movie struct {
	ID                 int      `json:"id,omitempty"`
	Title              string   `json:"title"`
	TitleSlug          string   `json:"titleSlug,omitempty"`
	Year               int      `json:"year,omitempty"`
	TmdbID             int      `json:"tmdbId"`
	Status             string   `json:"status,omitempty"`
	Overview           string   `json:"overview,omitempty"`
	Path               string   `json:"path,omitempty"`
	RootFolderPath     string   `json:"rootFolderPath,omitempty"`
	QualityProfileID   int      `json:"qualityProfileId,omitempty"`
	QualityProfileName string   `json:"qualityProfileName,omitempty"`
	Monitored          bool     `json:"monitored"`
	HasFile            bool     `json:"hasFile"`
	Tags               []int    `json:"tags,omitempty"`
	TagNames           []string `json:"tagNames,omitempty"`
}

// Command is a queued background command.
type Command struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}
