// Package discovery resolves channels and lists their videos through the
// YouTube Data API v3. The client is a thin paginated REST consumer: it
// resolves a channel reference (id, URL, or @handle) to the channel's
// uploads playlist, pages through it, and hydrates video metadata in
// batches.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// pageSize is the API maximum for playlistItems and videos requests.
const pageSize = 50

// Channel identifies a resolved channel and its uploads playlist.
type Channel struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	UploadsPlaylist string `json:"uploads_playlist"`
	VideoCount      int64  `json:"video_count"`
}

// VideoMetadata is the per-video record consumed by the rest of the
// pipeline.
type VideoMetadata struct {
	VideoID         string   `json:"video_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description,omitempty"`
	DurationSeconds int      `json:"duration_seconds"`
	UploadDate      string   `json:"upload_date,omitempty"`
	ViewCount       int64    `json:"view_count"`
	LikeCount       int64    `json:"like_count"`
	ChannelID       string   `json:"channel_id,omitempty"`
	ChannelTitle    string   `json:"channel_title,omitempty"`
	Tags            []string `json:"tags,omitempty"`
}

// Client calls the YouTube Data API v3.
type Client struct {
	APIKey  string
	BaseURL string

	HTTPClient *http.Client
	// Limiter throttles API calls when set; the free quota is easy to burn
	// through while paging a large channel.
	Limiter *rate.Limiter
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	return defaultBaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	if c.APIKey == "" {
		return fmt.Errorf("discovery: API key required")
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	params.Set("key", c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL()+"/"+resource+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// The body is decoded into a RawMessage first so it can be checked for
	// the API error envelope before unmarshaling into the caller's shape.
	var payload struct {
		Error *apiError `json:"error"`
	}
	var buf json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
		return fmt.Errorf("discovery: decode %s response: %w", resource, err)
	}
	if err := json.Unmarshal(buf, &payload); err == nil && payload.Error != nil {
		return fmt.Errorf("discovery: %s: api error %d: %s", resource, payload.Error.Code, payload.Error.Message)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("discovery: %s: http %d", resource, resp.StatusCode)
	}
	return json.Unmarshal(buf, out)
}

// ParseChannelRef extracts a lookup from a channel reference: a raw channel
// id ("UC..."), a channel URL (youtube.com/channel/UC...), a handle URL
// (youtube.com/@name), a legacy user URL (youtube.com/user/name), or a bare
// "@handle". Returns the query parameter name and value for the channels
// endpoint.
func ParseChannelRef(ref string) (param, value string, err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", fmt.Errorf("discovery: %w: empty channel reference", internalerr.ErrInvalidInput)
	}
	if strings.HasPrefix(ref, "UC") && !strings.Contains(ref, "/") {
		return "id", ref, nil
	}
	if strings.HasPrefix(ref, "@") {
		return "forHandle", ref, nil
	}
	u, uerr := url.Parse(ref)
	if uerr != nil || u.Path == "" {
		return "", "", fmt.Errorf("discovery: %w: unrecognized channel reference %q", internalerr.ErrInvalidInput, ref)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case len(parts) >= 2 && parts[0] == "channel":
		return "id", parts[1], nil
	case len(parts) >= 2 && parts[0] == "user":
		return "forUsername", parts[1], nil
	case len(parts) >= 1 && strings.HasPrefix(parts[0], "@"):
		return "forHandle", parts[0], nil
	}
	return "", "", fmt.Errorf("discovery: %w: unrecognized channel reference %q", internalerr.ErrInvalidInput, ref)
}

// ResolveChannel resolves a channel reference to a Channel, including its
// uploads playlist id. Returns ErrNotFound when the API knows no such
// channel.
func (c *Client) ResolveChannel(ctx context.Context, ref string) (Channel, error) {
	param, value, err := ParseChannelRef(ref)
	if err != nil {
		return Channel{}, err
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set(param, value)

	var payload struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title string `json:"title"`
			} `json:"snippet"`
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
			Statistics struct {
				VideoCount string `json:"videoCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := c.get(ctx, "channels", params, &payload); err != nil {
		return Channel{}, err
	}
	if len(payload.Items) == 0 {
		return Channel{}, fmt.Errorf("discovery: %w: channel %q", internalerr.ErrNotFound, ref)
	}

	item := payload.Items[0]
	count, _ := strconv.ParseInt(item.Statistics.VideoCount, 10, 64)
	return Channel{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		UploadsPlaylist: item.ContentDetails.RelatedPlaylists.Uploads,
		VideoCount:      count,
	}, nil
}

// ListVideos pages through a channel's uploads playlist and hydrates video
// metadata. maxVideos <= 0 lists everything.
func (c *Client) ListVideos(ctx context.Context, ch Channel, maxVideos int) ([]VideoMetadata, error) {
	var ids []string
	pageToken := ""
	for {
		params := url.Values{}
		params.Set("part", "contentDetails")
		params.Set("playlistId", ch.UploadsPlaylist)
		params.Set("maxResults", strconv.Itoa(pageSize))
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var payload struct {
			Items []struct {
				ContentDetails struct {
					VideoID string `json:"videoId"`
				} `json:"contentDetails"`
			} `json:"items"`
			NextPageToken string `json:"nextPageToken"`
		}
		if err := c.get(ctx, "playlistItems", params, &payload); err != nil {
			return nil, err
		}
		for _, item := range payload.Items {
			ids = append(ids, item.ContentDetails.VideoID)
			if maxVideos > 0 && len(ids) >= maxVideos {
				break
			}
		}
		if payload.NextPageToken == "" || (maxVideos > 0 && len(ids) >= maxVideos) {
			break
		}
		pageToken = payload.NextPageToken
	}

	var out []VideoMetadata
	for start := 0; start < len(ids); start += pageSize {
		end := min(start+pageSize, len(ids))
		batch, err := c.videoDetails(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *Client) videoDetails(ctx context.Context, ids []string) ([]VideoMetadata, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))

	var payload struct {
		Items []struct {
			ID      string `json:"id"`
			Snippet struct {
				Title        string   `json:"title"`
				Description  string   `json:"description"`
				PublishedAt  string   `json:"publishedAt"`
				ChannelID    string   `json:"channelId"`
				ChannelTitle string   `json:"channelTitle"`
				Tags         []string `json:"tags"`
			} `json:"snippet"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount string `json:"viewCount"`
				LikeCount string `json:"likeCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	if err := c.get(ctx, "videos", params, &payload); err != nil {
		return nil, err
	}

	out := make([]VideoMetadata, 0, len(payload.Items))
	for _, item := range payload.Items {
		views, _ := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
		likes, _ := strconv.ParseInt(item.Statistics.LikeCount, 10, 64)
		out = append(out, VideoMetadata{
			VideoID:         item.ID,
			Title:           item.Snippet.Title,
			Description:     item.Snippet.Description,
			DurationSeconds: ParseISODuration(item.ContentDetails.Duration),
			UploadDate:      item.Snippet.PublishedAt,
			ViewCount:       views,
			LikeCount:       likes,
			ChannelID:       item.Snippet.ChannelID,
			ChannelTitle:    item.Snippet.ChannelTitle,
			Tags:            item.Snippet.Tags,
		})
	}
	return out, nil
}

// ParseISODuration converts an ISO-8601 duration like "PT1H2M3S" to whole
// seconds. Unrecognized input parses to 0.
func ParseISODuration(s string) int {
	s = strings.TrimPrefix(s, "P")
	total := 0
	num := 0
	inTime := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num = num*10 + int(r-'0')
		case r == 'T':
			inTime = true
			num = 0
		case r == 'D':
			total += num * 86400
			num = 0
		case r == 'H' && inTime:
			total += num * 3600
			num = 0
		case r == 'M' && inTime:
			total += num * 60
			num = 0
		case r == 'S' && inTime:
			total += num
			num = 0
		default:
			return 0
		}
	}
	return total
}
