// Package apple resolves tracks against the Apple Music catalog API with a
// developer-token bearer.
package apple

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
)

const defaultBaseURL = "https://api.music.apple.com/v1"

type Adapter struct {
	httpClient *http.Client
	baseURL    string
	token      string
	storefront string
}

func New(cfg config.AppleConfig) *Adapter {
	sf := cfg.Storefront
	if sf == "" {
		sf = "us"
	}
	return &Adapter{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      cfg.DeveloperToken,
		storefront: sf,
	}
}

// NewWithBaseURL points the adapter at a fake upstream. Test hook.
func NewWithBaseURL(token, baseURL string) *Adapter {
	a := New(config.AppleConfig{DeveloperToken: token})
	a.baseURL = baseURL
	return a
}

func (a *Adapter) Name() models.Provider { return models.ProviderApple }

// songsResponse is the slice of the catalog payload this adapter cares
// about. Apple wraps everything in data/attributes/relationships envelopes.
type songsResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name       string `json:"name"`
			AlbumName  string `json:"albumName"`
			ArtistName string `json:"artistName"`
			URL        string `json:"url"`
			ISRC       string `json:"isrc"`
		} `json:"attributes"`
		Relationships struct {
			Albums struct {
				Data []struct {
					ID string `json:"id"`
				} `json:"data"`
			} `json:"albums"`
		} `json:"relationships"`
	} `json:"data"`
}

func (a *Adapter) Lookup(ctx context.Context, track models.Track) (*provider.Result, error) {
	if a.token == "" {
		return nil, provider.ErrDisabled
	}
	isrc := models.CanonicalISRC(track.ISRC)
	if isrc == "" {
		return nil, provider.ErrNotFound
	}
	endpoint := fmt.Sprintf("%s/catalog/%s/songs?filter[isrc]=%s",
		a.baseURL, a.storefront, url.QueryEscape(isrc))
	return a.fetch(ctx, endpoint)
}

func (a *Adapter) LookupByID(ctx context.Context, id string) (*provider.Result, error) {
	if a.token == "" {
		return nil, provider.ErrDisabled
	}
	endpoint := fmt.Sprintf("%s/catalog/%s/songs/%s",
		a.baseURL, a.storefront, url.PathEscape(id))
	return a.fetch(ctx, endpoint)
}

func (a *Adapter) fetch(ctx context.Context, endpoint string) (*provider.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("apple catalog request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, provider.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("apple catalog: status %d", resp.StatusCode)
	}

	var payload songsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("apple catalog: malformed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, provider.ErrNotFound
	}

	// First item wins.
	song := payload.Data[0]
	res := &provider.Result{
		Provider:    models.ProviderApple,
		ID:          song.ID,
		Name:        song.Attributes.Name,
		Secondary:   song.Attributes.AlbumName,
		ExternalURL: song.Attributes.URL,
		// Rank stays nil and Plays 0: the catalog endpoint exposes neither.
	}
	if len(song.Relationships.Albums.Data) > 0 {
		res.SecondaryID = song.Relationships.Albums.Data[0].ID
	}
	return res, nil
}
