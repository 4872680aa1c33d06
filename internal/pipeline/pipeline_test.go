package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/governor"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
)

// fakeAdapter returns a canned result or error for every call.
type fakeAdapter struct {
	name models.Provider
	res  *provider.Result
	err  error
}

func (f *fakeAdapter) Name() models.Provider { return f.name }

func (f *fakeAdapter) Lookup(ctx context.Context, track models.Track) (*provider.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func (f *fakeAdapter) LookupByID(ctx context.Context, id string) (*provider.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testGovernor() *governor.Governor {
	return governor.New(config.RateConfig{SpotifyQPS: 1000, AppleQPS: 1000, YouTubeQPS: 1000}, 3)
}

func spotifyHit() *fakeAdapter {
	return &fakeAdapter{name: models.ProviderSpotify, res: &provider.Result{
		Provider: models.ProviderSpotify, ID: "sp1", Name: "Song", Secondary: "Album",
		ExternalURL: "https://open.spotify.com/track/sp1", Popularity: 64,
	}}
}

func appleHit() *fakeAdapter {
	return &fakeAdapter{name: models.ProviderApple, res: &provider.Result{
		Provider: models.ProviderApple, ID: "ap1", Name: "Song", Secondary: "Album",
		SecondaryID: "alb1", ExternalURL: "https://music.apple.com/us/song/ap1",
	}}
}

func youtubeHit(views int64) *fakeAdapter {
	return &fakeAdapter{name: models.ProviderYouTube, res: &provider.Result{
		Provider: models.ProviderYouTube, ID: "dQw4w9WgXcQ", Name: "Song (Official Video)",
		Secondary: "Channel", Views: views, Likes: 10, Comments: 2,
	}}
}

func setupPipeline(t *testing.T, adapters ...provider.Adapter) (*Pipeline, *database.Store) {
	t.Helper()
	store, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, testGovernor(), adapters, quietLogger()), store
}

func mustInsertTrack(t *testing.T, store *database.Store, track models.Track) {
	t.Helper()
	if err := store.InsertTrack(context.Background(), track); err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}
}

func TestReconcileTrackFullHit(t *testing.T) {
	p, store := setupPipeline(t, spotifyHit(), appleHit(), youtubeHit(500))
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist", ISRC: "USUM71703861"})

	track, _ := store.GetTrack(ctx, "t1")
	out := p.ReconcileTrack(ctx, *track)

	if out.Skipped || out.Errors != 0 {
		t.Fatalf("outcome = %+v, want clean pass", out)
	}
	for _, prov := range models.Providers {
		po := out.Providers[prov]
		if po == nil || po.Outcome != OutcomeSuccess || !po.Persisted {
			t.Errorf("%s outcome = %+v, want persisted success", prov, po)
		}
	}

	got, _ := store.GetTrack(ctx, "t1")
	if got.PlatformIDs.SpotifyID != "sp1" || got.PlatformIDs.AppleID != "ap1" ||
		got.PlatformIDs.YouTubeID != "dQw4w9WgXcQ" {
		t.Errorf("platform ids = %+v", got.PlatformIDs)
	}

	reg, err := store.GetRegistry(ctx, "t1")
	if err != nil {
		t.Fatalf("GetRegistry failed: %v", err)
	}
	if reg.Spotify.Popularity != 64 || reg.Apple.SecondaryID != "alb1" || reg.YouTube.Views != 500 {
		t.Errorf("registry = %+v", reg)
	}

	daily, err := store.GetDaily(ctx, "t1", models.StatDate(time.Now()))
	if err != nil {
		t.Fatalf("GetDaily failed: %v", err)
	}
	if daily.SpotifyPopularity != 64 || daily.YouTubeViews != 500 || daily.YouTubeLikes != 10 {
		t.Errorf("daily = %+v", daily)
	}
	if daily.SpotifyStreams != 0 {
		t.Errorf("spotify streams = %d, want sentinel 0", daily.SpotifyStreams)
	}
	if daily.AppleRank != nil {
		t.Errorf("apple rank = %v, want nil", *daily.AppleRank)
	}
}

func TestReconcileTrackDisabledProviderIsNotAnError(t *testing.T) {
	disabled := &fakeAdapter{name: models.ProviderSpotify, err: provider.ErrDisabled}
	p, store := setupPipeline(t, disabled, appleHit(), youtubeHit(100))
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist", ISRC: "USUM71703861"})

	track, _ := store.GetTrack(ctx, "t1")
	out := p.ReconcileTrack(ctx, *track)

	if out.Errors != 0 {
		t.Fatalf("errors = %d, want 0 for a disabled provider", out.Errors)
	}
	if out.Providers[models.ProviderSpotify].Outcome != OutcomeDisabled {
		t.Errorf("spotify outcome = %v", out.Providers[models.ProviderSpotify].Outcome)
	}

	got, _ := store.GetTrack(ctx, "t1")
	if got.PlatformIDs.SpotifyID != "" {
		t.Errorf("spotify id = %q, want empty", got.PlatformIDs.SpotifyID)
	}
	if got.PlatformIDs.AppleID != "ap1" {
		t.Errorf("apple id = %q, want ap1", got.PlatformIDs.AppleID)
	}

	daily, _ := store.GetDaily(ctx, "t1", models.StatDate(time.Now()))
	if daily.SpotifyPopularity != 0 || daily.YouTubeViews != 100 {
		t.Errorf("daily = %+v", daily)
	}
}

func TestReconcileTrackProviderErrorStillPersistsOthers(t *testing.T) {
	broken := &fakeAdapter{name: models.ProviderYouTube, err: errors.New("upstream 500")}
	p, store := setupPipeline(t, spotifyHit(), appleHit(), broken)
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist", ISRC: "USUM71703861"})

	track, _ := store.GetTrack(ctx, "t1")
	out := p.ReconcileTrack(ctx, *track)

	if out.Errors != 1 {
		t.Fatalf("errors = %d, want 1", out.Errors)
	}
	if out.Providers[models.ProviderYouTube].Outcome != OutcomeError {
		t.Errorf("youtube outcome = %v", out.Providers[models.ProviderYouTube].Outcome)
	}

	got, _ := store.GetTrack(ctx, "t1")
	if got.PlatformIDs.SpotifyID != "sp1" || got.PlatformIDs.YouTubeID != "" {
		t.Errorf("platform ids = %+v", got.PlatformIDs)
	}

	// The day's bucket is still written, youtube at defaults.
	daily, err := store.GetDaily(ctx, "t1", models.StatDate(time.Now()))
	if err != nil {
		t.Fatalf("GetDaily failed: %v", err)
	}
	if daily.YouTubeViews != 0 || daily.SpotifyPopularity != 64 {
		t.Errorf("daily = %+v", daily)
	}
}

func TestReconcileSecondPassSameDayOverwrites(t *testing.T) {
	yt := youtubeHit(100)
	p, store := setupPipeline(t, spotifyHit(), appleHit(), yt)
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist", ISRC: "USUM71703861"})

	track, _ := store.GetTrack(ctx, "t1")
	p.ReconcileTrack(ctx, *track)

	yt.res.Views = 250
	track, _ = store.GetTrack(ctx, "t1")
	p.ReconcileTrack(ctx, *track)

	daily, _ := store.GetDaily(ctx, "t1", models.StatDate(time.Now()))
	if daily.YouTubeViews != 250 {
		t.Errorf("views = %d, want latest snapshot 250", daily.YouTubeViews)
	}
	all, _ := store.DailyRange(ctx, "t1", 7)
	if len(all) != 1 {
		t.Errorf("rows for the day = %d, want 1", len(all))
	}
}

func TestReconcileSkipsTrackWithoutISRC(t *testing.T) {
	p, store := setupPipeline(t, spotifyHit(), appleHit(), youtubeHit(1))
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist"})

	track, _ := store.GetTrack(ctx, "t1")
	out := p.ReconcileTrack(ctx, *track)
	if !out.Skipped {
		t.Fatal("expected skip for empty isrc")
	}
	if _, err := store.GetDaily(ctx, "t1", models.StatDate(time.Now())); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("daily row written for skipped track: %v", err)
	}
}

func TestReconcileKeepsManuallyPinnedID(t *testing.T) {
	p, store := setupPipeline(t, spotifyHit(), appleHit(), youtubeHit(300))
	ctx := context.Background()
	mustInsertTrack(t, store, models.Track{ID: "t1", Title: "Song", Artist: "Artist", ISRC: "USUM71703861"})

	// Operator pinned a different video beforehand.
	if err := store.SetPlatformID(ctx, "t1", models.ProviderYouTube, "AAAAAAAAAAA", ""); err != nil {
		t.Fatalf("SetPlatformID failed: %v", err)
	}

	track, _ := store.GetTrack(ctx, "t1")
	out := p.ReconcileTrack(ctx, *track)

	if out.Errors != 0 {
		t.Fatalf("errors = %d, want 0", out.Errors)
	}
	if out.Providers[models.ProviderYouTube].Persisted {
		t.Error("youtube result should not have been persisted over the pin")
	}

	got, _ := store.GetTrack(ctx, "t1")
	if got.PlatformIDs.YouTubeID != "AAAAAAAAAAA" {
		t.Errorf("youtube id = %q, want pinned AAAAAAAAAAA", got.PlatformIDs.YouTubeID)
	}

	// Counters still land in the day's bucket.
	daily, _ := store.GetDaily(ctx, "t1", models.StatDate(time.Now()))
	if daily.YouTubeViews != 300 {
		t.Errorf("views = %d, want 300", daily.YouTubeViews)
	}
}
