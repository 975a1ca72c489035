// Package arr is a small client for the Sonarr and Radarr v3 REST APIs.
//
// Client carries the shared endpoints (queue, history, quality profiles,
// root folders, tags). Sonarr and Radarr embed it and add the series and
// movie operations. Instances resolves tool-supplied instance names, with
// the empty name meaning "default".
package arr
