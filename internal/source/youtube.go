package source

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/cloo-solutions/videochat/internal/domain"
)

const (
	DefaultOEmbedURL    = "https://www.youtube.com/oembed"
	DefaultTimedTextURL = "https://www.youtube.com/api/timedtext"

	thumbnailURLFormat = "https://i.ytimg.com/vi/%s/hqdefault.jpg"
	maxCaptionBytes    = 8 << 20
)

// DefaultLanguages are the caption languages tried, in order.
var DefaultLanguages = []string{"en", "ar"}

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// YouTubeConfig configures YouTubeAcquirer.
type YouTubeConfig struct {
	OEmbedURL    string
	TimedTextURL string
	Languages    []string
	HTTPClient   *http.Client
}

// YouTubeAcquirer fetches captions and metadata of public YouTube videos.
type YouTubeAcquirer struct {
	oembedURL    string
	timedTextURL string
	languages    []string
	httpClient   *http.Client
}

// NewYouTubeAcquirer creates a YouTubeAcquirer, filling unset fields with defaults.
func NewYouTubeAcquirer(cfg YouTubeConfig) *YouTubeAcquirer {
	if cfg.OEmbedURL == "" {
		cfg.OEmbedURL = DefaultOEmbedURL
	}
	if cfg.TimedTextURL == "" {
		cfg.TimedTextURL = DefaultTimedTextURL
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = DefaultLanguages
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &YouTubeAcquirer{
		oembedURL:    cfg.OEmbedURL,
		timedTextURL: cfg.TimedTextURL,
		languages:    cfg.Languages,
		httpClient:   cfg.HTTPClient,
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

type timedText struct {
	XMLName  xml.Name  `xml:"transcript"`
	Captions []caption `xml:"text"`
}

type caption struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Text  string  `xml:",chardata"`
}

// Acquire implements Acquirer.
func (a *YouTubeAcquirer) Acquire(ctx context.Context, locator string) (*domain.Transcript, error) {
	id, err := ExtractVideoID(locator)
	if err != nil {
		return nil, err
	}

	meta, err := a.fetchMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, lang := range a.languages {
		captions, err := a.fetchCaptions(ctx, id, lang)
		if err != nil {
			return nil, err
		}
		if len(captions) == 0 {
			continue
		}

		text, duration := joinCaptions(captions)
		if text == "" {
			continue
		}

		log.Printf("youtube: fetched %d captions for %s (%s)", len(captions), id, lang)
		return domain.NewTranscript(text, domain.Metadata{
			Locator:   locator,
			VideoID:   id,
			Title:     meta.Title,
			Thumbnail: meta.ThumbnailURL,
			Language:  lang,
			Duration:  duration,
			Extra:     map[string]string{"author": meta.AuthorName},
		}), nil
	}

	return nil, domain.NewDomainError(domain.ErrCodeAcquisition,
		fmt.Sprintf("video %s has no captions in %s", id, strings.Join(a.languages, ", ")))
}

func (a *YouTubeAcquirer) fetchMetadata(ctx context.Context, id string) (*oembedResponse, error) {
	q := url.Values{}
	q.Set("url", "https://www.youtube.com/watch?v="+id)
	q.Set("format", "json")

	body, status, err := a.get(ctx, a.oembedURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusNotFound:
		return nil, domain.NewDomainError(domain.ErrCodeAcquisition, fmt.Sprintf("video %s is unavailable or private", id))
	case status != http.StatusOK:
		return nil, domain.NewDomainError(domain.ErrCodeAcquisition, fmt.Sprintf("video metadata request failed with status %d", status))
	}

	var meta oembedResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "invalid video metadata", err)
	}
	if meta.ThumbnailURL == "" {
		meta.ThumbnailURL = fmt.Sprintf(thumbnailURLFormat, id)
	}
	return &meta, nil
}

func (a *YouTubeAcquirer) fetchCaptions(ctx context.Context, id, lang string) ([]caption, error) {
	q := url.Values{}
	q.Set("v", id)
	q.Set("lang", lang)

	body, status, err := a.get(ctx, a.timedTextURL+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, domain.NewDomainError(domain.ErrCodeAcquisition, fmt.Sprintf("caption request failed with status %d", status))
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}

	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "invalid caption track", err)
	}
	return tt.Captions, nil
}

func (a *YouTubeAcquirer) get(ctx context.Context, rawURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create request", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, ctx.Err()
		}
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "request to YouTube failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCaptionBytes))
	if err != nil {
		return nil, 0, domain.NewDomainErrorWithCause(domain.ErrCodeAcquisition, "failed to read response", err)
	}
	return body, resp.StatusCode, nil
}

// joinCaptions unescapes caption texts and joins them with single spaces.
// The duration is the end of the last caption.
func joinCaptions(captions []caption) (string, time.Duration) {
	parts := make([]string, 0, len(captions))
	var end float64
	for _, c := range captions {
		text := strings.Join(strings.Fields(html.UnescapeString(c.Text)), " ")
		if text != "" {
			parts = append(parts, text)
		}
		if e := c.Start + c.Dur; e > end {
			end = e
		}
	}
	return strings.Join(parts, " "), time.Duration(end * float64(time.Second))
}

// ExtractVideoID returns the video id of a watch, youtu.be, shorts, live or
// embed URL.
func ExtractVideoID(locator string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(locator))
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInvalidInput, "malformed video URL", err)
	}

	host := strings.ToLower(u.Hostname())
	var id string
	switch {
	case host == "youtu.be":
		id = firstSegment(u.Path)
	case isYouTubeHost(host):
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch segments[0] {
		case "watch":
			id = u.Query().Get("v")
		case "shorts", "embed", "live", "v":
			if len(segments) > 1 {
				id = segments[1]
			}
		}
	default:
		return "", domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("%q is not a YouTube URL", locator))
	}

	if !videoIDPattern.MatchString(id) {
		return "", domain.NewDomainError(domain.ErrCodeInvalidInput, fmt.Sprintf("no video id in %q", locator))
	}
	return id, nil
}

func isYouTubeHost(host string) bool {
	switch strings.ToLower(host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "www.youtube-nocookie.com":
		return true
	}
	return false
}

func firstSegment(path string) string {
	path = strings.Trim(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
