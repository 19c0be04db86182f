// Package fetch downloads video transcripts from the timedtext captions
// endpoint. Caption segments arrive as XML with HTML-escaped, sometimes
// marked-up text; the client strips markup and joins segments into a plain
// transcript string.
package fetch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/knowtube/knowtube/pkg/knowtube/internalerr"
)

const defaultBaseURL = "https://www.youtube.com/api/timedtext"

// defaultLanguages is the caption language preference order.
var defaultLanguages = []string{"en", "en-US", "en-GB"}

// Client fetches transcripts for videos.
type Client struct {
	BaseURL string
	// Languages is tried in order; the first track with captions wins.
	Languages []string

	HTTPClient *http.Client
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) languages() []string {
	if len(c.Languages) > 0 {
		return c.Languages
	}
	return defaultLanguages
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}

type captionTrack struct {
	XMLName xml.Name  `xml:"transcript"`
	Texts   []caption `xml:"text"`
}

type caption struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Body  string  `xml:",chardata"`
}

// Transcript fetches the caption track for a video, trying each configured
// language in order. Returns ErrNotFound when no language has captions.
func (c *Client) Transcript(ctx context.Context, videoID string) (string, error) {
	if videoID == "" {
		return "", fmt.Errorf("fetch: %w: video id required", internalerr.ErrInvalidInput)
	}
	for _, lang := range c.languages() {
		text, err := c.fetchTrack(ctx, videoID, lang)
		if err != nil {
			return "", err
		}
		if text != "" {
			return text, nil
		}
	}
	return "", fmt.Errorf("fetch: %w: no captions for video %s", internalerr.ErrNotFound, videoID)
}

func (c *Client) fetchTrack(ctx context.Context, videoID, lang string) (string, error) {
	params := url.Values{}
	params.Set("v", videoID)
	params.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// Missing tracks come back as 404 or as an empty 200 body.
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: transcript %s lang %s: http %d", videoID, lang, resp.StatusCode)
	}

	var track captionTrack
	if err := xml.NewDecoder(resp.Body).Decode(&track); err != nil {
		return "", nil
	}

	var parts []string
	for _, seg := range track.Texts {
		text := strings.TrimSpace(StripMarkup(seg.Body))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// StripMarkup removes HTML tags and entities from caption text, returning
// the plain text content. Unparsable input is returned as-is.
func StripMarkup(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var extractText func(*html.Node)
	extractText = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extractText(c)
		}
	}
	extractText(doc)

	return strings.TrimSpace(buf.String())
}
