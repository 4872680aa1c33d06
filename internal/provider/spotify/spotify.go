// Package spotify resolves tracks against the Spotify Web API using the
// client-credentials flow. Token caching and refresh live inside the oauth2
// transport, so a single long-lived client is shared by all workers.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
)

type Adapter struct {
	client *spotifyapi.Client
}

// New builds the adapter from the configured credentials. Absent credentials
// yield a disabled adapter, not an error.
func New(ctx context.Context, cfg config.SpotifyConfig) *Adapter {
	if !cfg.Enabled() {
		return &Adapter{}
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	return &Adapter{client: spotifyapi.New(creds.Client(ctx))}
}

// NewWithHTTPClient builds the adapter around a caller-supplied HTTP client.
// Used by tests to point the API at a fake upstream.
func NewWithHTTPClient(httpClient *http.Client) *Adapter {
	return &Adapter{client: spotifyapi.New(httpClient)}
}

func (a *Adapter) Name() models.Provider { return models.ProviderSpotify }

func (a *Adapter) Lookup(ctx context.Context, track models.Track) (*provider.Result, error) {
	if a.client == nil {
		return nil, provider.ErrDisabled
	}
	isrc := models.CanonicalISRC(track.ISRC)
	if isrc == "" {
		return nil, provider.ErrNotFound
	}

	res, err := a.client.Search(ctx, "isrc:"+isrc, spotifyapi.SearchTypeTrack, spotifyapi.Limit(1))
	if err != nil {
		return nil, fmt.Errorf("spotify isrc search: %w", classify(err))
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, provider.ErrNotFound
	}
	out := a.transform(res.Tracks.Tracks[0])
	a.addFollowers(ctx, res.Tracks.Tracks[0], out)
	return out, nil
}

func (a *Adapter) LookupByID(ctx context.Context, id string) (*provider.Result, error) {
	if a.client == nil {
		return nil, provider.ErrDisabled
	}
	ft, err := a.client.GetTrack(ctx, spotifyapi.ID(id))
	if err != nil {
		return nil, fmt.Errorf("spotify get track %s: %w", id, classify(err))
	}
	out := a.transform(*ft)
	a.addFollowers(ctx, *ft, out)
	return out, nil
}

// addFollowers fills in the lead artist's follower count. Best effort: a
// failed artist fetch leaves the default 0 rather than failing the lookup.
func (a *Adapter) addFollowers(ctx context.Context, ft spotifyapi.FullTrack, res *provider.Result) {
	if len(ft.Artists) == 0 {
		return
	}
	artist, err := a.client.GetArtist(ctx, ft.Artists[0].ID)
	if err != nil {
		return
	}
	res.Followers = int64(artist.Followers.Count)
}

func (a *Adapter) transform(ft spotifyapi.FullTrack) *provider.Result {
	pop := int(ft.Popularity)
	if pop < 0 {
		pop = 0
	}
	if pop > 100 {
		pop = 100
	}
	return &provider.Result{
		Provider:    models.ProviderSpotify,
		ID:          string(ft.ID),
		Name:        ft.Name,
		Secondary:   ft.Album.Name,
		ExternalURL: ft.ExternalURLs["spotify"],
		Popularity:  pop,
		// Streams stays 0: not exposed by the public API.
	}
}

// classify folds the Spotify API's own error type into the adapter contract:
// a 404 is NotFound, everything else is a real error.
func classify(err error) error {
	var apiErr spotifyapi.Error
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return provider.ErrNotFound
	}
	return err
}
