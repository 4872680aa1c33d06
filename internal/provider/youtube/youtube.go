// Package youtube resolves tracks against the YouTube Data API v3. YouTube
// indexes videos, not recordings, so lookups go by "<title> <artist>" search
// rather than ISRC, and an optional similarity check guards against the
// search returning an unrelated video.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

type Adapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	// matchThreshold below which a search hit is treated as NotFound.
	// Zero means the first hit always wins.
	matchThreshold float64
}

func New(cfg config.YouTubeConfig) *Adapter {
	return &Adapter{
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		baseURL:        defaultBaseURL,
		apiKey:         cfg.APIKey,
		matchThreshold: cfg.MatchThreshold,
	}
}

// NewWithBaseURL points the adapter at a fake upstream. Test hook.
func NewWithBaseURL(apiKey, baseURL string, threshold float64) *Adapter {
	a := New(config.YouTubeConfig{APIKey: apiKey, MatchThreshold: threshold})
	a.baseURL = baseURL
	return a
}

func (a *Adapter) Name() models.Provider { return models.ProviderYouTube }

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
		} `json:"snippet"`
		// Counter values arrive as decimal strings.
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			LikeCount    string `json:"likeCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

func (a *Adapter) Lookup(ctx context.Context, track models.Track) (*provider.Result, error) {
	if a.apiKey == "" {
		return nil, provider.ErrDisabled
	}
	query := SearchQuery(track.Title, track.Artist)
	if query == "" {
		// ISRC alone cannot locate a video; treat as unconfigured for this
		// track rather than a failure.
		return nil, provider.ErrDisabled
	}

	endpoint := fmt.Sprintf("%s/search?part=snippet&q=%s&type=video&maxResults=1&key=%s",
		a.baseURL, url.QueryEscape(query), url.QueryEscape(a.apiKey))

	var sr searchResponse
	if err := a.getJSON(ctx, endpoint, &sr); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}
	if len(sr.Items) == 0 || sr.Items[0].ID.VideoID == "" {
		return nil, provider.ErrNotFound
	}

	hit := sr.Items[0]
	if a.matchThreshold > 0 {
		got := strings.ToLower(html.UnescapeString(hit.Snippet.Title))
		score := strutil.Similarity(strings.ToLower(query), got, metrics.NewJaroWinkler())
		if score < a.matchThreshold {
			return nil, provider.ErrNotFound
		}
	}

	return a.LookupByID(ctx, hit.ID.VideoID)
}

func (a *Adapter) LookupByID(ctx context.Context, id string) (*provider.Result, error) {
	if a.apiKey == "" {
		return nil, provider.ErrDisabled
	}
	if !validVideoID(id) {
		return nil, fmt.Errorf("youtube: invalid video id %q", id)
	}

	endpoint := fmt.Sprintf("%s/videos?part=statistics,snippet&id=%s&key=%s",
		a.baseURL, url.QueryEscape(id), url.QueryEscape(a.apiKey))

	var vr videosResponse
	if err := a.getJSON(ctx, endpoint, &vr); err != nil {
		return nil, fmt.Errorf("youtube videos: %w", err)
	}
	if len(vr.Items) == 0 {
		return nil, provider.ErrNotFound
	}

	item := vr.Items[0]
	return &provider.Result{
		Provider:    models.ProviderYouTube,
		ID:          item.ID,
		Name:        html.UnescapeString(item.Snippet.Title),
		Secondary:   item.Snippet.ChannelTitle,
		ExternalURL: "https://www.youtube.com/watch?v=" + item.ID,
		Views:       parseCount(item.Statistics.ViewCount),
		Likes:       parseCount(item.Statistics.LikeCount),
		Comments:    parseCount(item.Statistics.CommentCount),
	}, nil
}

func (a *Adapter) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return provider.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}

// parseCount reads an unsigned decimal counter, treating missing or garbage
// fields as 0 per the daily-stats defaults.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
