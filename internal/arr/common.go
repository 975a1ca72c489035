package arr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/samber/lo"
)

// DefaultPageSize is the page size for queue and history requests.
const DefaultPageSize = 50

// preferredQualityProfile is picked when an add request names no profile.
const preferredQualityProfile = "HD-1080p"

// Queue returns the download queue.
func (c *Client) Queue(ctx context.Context, pageSize int) ([]QueueRecord, error) {
	var result page[QueueRecord]
	if err := c.get(ctx, "queue", pageQuery(pageSize), &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// History returns the most recent download history, newest first.
func (c *Client) History(ctx context.Context, pageSize int) ([]HistoryRecord, error) {
	query := pageQuery(pageSize)
	query.Set("sortKey", "date")
	query.Set("sortDirection", "descending")

	var result page[HistoryRecord]
	if err := c.get(ctx, "history", query, &result); err != nil {
		return nil, err
	}
	return result.Records, nil
}

// DeleteQueueItem removes an item from the queue, optionally from the
// download client and the blocklist.
func (c *Client) DeleteQueueItem(ctx context.Context, id int, removeFromClient, blocklist bool) error {
	query := url.Values{
		"removeFromClient": {strconv.FormatBool(removeFromClient)},
		"blocklist":        {strconv.FormatBool(blocklist)},
	}
	return c.delete(ctx, "queue/"+strconv.Itoa(id), query)
}

// QualityProfiles returns all quality profiles.
func (c *Client) QualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	var profiles []QualityProfile
	if err := c.get(ctx, "qualityprofile", nil, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// RootFolders returns all root folders.
func (c *Client) RootFolders(ctx context.Context) ([]RootFolder, error) {
	var folders []RootFolder
	if err := c.get(ctx, "rootfolder", nil, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// Tags returns all tags.
func (c *Client) Tags(ctx context.Context) ([]Tag, error) {
	var tags []Tag
	if err := c.get(ctx, "tag", nil, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// CreateTag creates a tag with the given label.
func (c *Client) CreateTag(ctx context.Context, label string) (*Tag, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("tag label is required")
	}
	var tag Tag
	if err := c.post(ctx, "tag", Tag{Label: label}, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

// tagNames maps tag ids to labels.
func (c *Client) tagNames(ctx context.Context) (map[int]string, error) {
	tags, err := c.Tags(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Associate(tags, func(t Tag) (int, string) {
		return t.ID, t.Label
	}), nil
}

// qualityProfileNames maps profile ids to names.
func (c *Client) qualityProfileNames(ctx context.Context) (map[int]string, error) {
	profiles, err := c.QualityProfiles(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Associate(profiles, func(p QualityProfile) (int, string) {
		return p.ID, p.Name
	}), nil
}

// resolveAddDefaults fills in the quality profile and root folder of an
// add request: the named profile, else HD-1080p, else the first profile;
// the given root folder, else the first one.
func (c *Client) resolveAddDefaults(ctx context.Context, profileID int, rootFolder string) (int, string, error) {
	if profileID == 0 {
		profiles, err := c.QualityProfiles(ctx)
		if err != nil {
			return 0, "", err
		}
		if len(profiles) == 0 {
			return 0, "", fmt.Errorf("%s instance %s has no quality profiles", c.instance.Kind.DisplayName(), c.instance.Name)
		}
		preferred, found := lo.Find(profiles, func(p QualityProfile) bool {
			return p.Name == preferredQualityProfile
		})
		if !found {
			preferred = profiles[0]
		}
		profileID = preferred.ID
	}

	if rootFolder == "" {
		folders, err := c.RootFolders(ctx)
		if err != nil {
			return 0, "", err
		}
		if len(folders) == 0 {
			return 0, "", fmt.Errorf("%s instance %s has no root folders", c.instance.Kind.DisplayName(), c.instance.Name)
		}
		rootFolder = folders[0].Path
	}
	return profileID, rootFolder, nil
}

func labelTags(ids []int, names map[int]string) []string {
	return lo.Map(ids, func(id int, _ int) string {
		if name, ok := names[id]; ok {
			return name
		}
		return fmt.Sprintf("Unknown tag %d", id)
	})
}

func pageQuery(pageSize int) url.Values {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return url.Values{
		"page":     {"1"},
		"pageSize": {strconv.Itoa(pageSize)},
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
