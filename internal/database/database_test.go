package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"tracklink-go-srv/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestTrack(t *testing.T, s *Store, id, isrc string) models.Track {
	t.Helper()
	track := models.Track{
		ID:     id,
		Title:  "Test Song",
		Artist: "Test Artist",
		ISRC:   isrc,
	}
	if err := s.InsertTrack(context.Background(), track); err != nil {
		t.Fatalf("InsertTrack failed: %v", err)
	}
	return track
}

func TestSetPlatformID(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	insertTestTrack(t, s, "t1", "usum71703861")

	if err := s.SetPlatformID(ctx, "t1", models.ProviderSpotify, "sp123", "usum71703861"); err != nil {
		t.Fatalf("SetPlatformID failed: %v", err)
	}

	got, err := s.GetTrack(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTrack failed: %v", err)
	}
	if got.PlatformIDs.SpotifyID != "sp123" {
		t.Errorf("spotify id = %q, want sp123", got.PlatformIDs.SpotifyID)
	}
	if got.PlatformIDs.ISRC != "USUM71703861" {
		t.Errorf("platform isrc = %q, want canonical USUM71703861", got.PlatformIDs.ISRC)
	}

	// Empty isrc must not clear the echoed value.
	if err := s.SetPlatformID(ctx, "t1", models.ProviderApple, "ap456", ""); err != nil {
		t.Fatalf("SetPlatformID failed: %v", err)
	}
	got, _ = s.GetTrack(ctx, "t1")
	if got.PlatformIDs.AppleID != "ap456" {
		t.Errorf("apple id = %q, want ap456", got.PlatformIDs.AppleID)
	}
	if got.PlatformIDs.ISRC != "USUM71703861" {
		t.Errorf("platform isrc regressed to %q", got.PlatformIDs.ISRC)
	}
}

func TestSetPlatformIDUnknownTrack(t *testing.T) {
	s := setupTestStore(t)
	err := s.SetPlatformID(context.Background(), "missing", models.ProviderSpotify, "sp1", "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestFindTrackByISRCCanonicalizes(t *testing.T) {
	s := setupTestStore(t)
	insertTestTrack(t, s, "t1", "  usum71703861 ")

	got, err := s.FindTrackByISRC(context.Background(), "USUM71703861")
	if err != nil {
		t.Fatalf("FindTrackByISRC failed: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("track id = %q, want t1", got.ID)
	}
	if got.ISRC != "USUM71703861" {
		t.Errorf("stored isrc = %q, want canonical form", got.ISRC)
	}
}

func TestEligibleTracksSkipsEmptyISRC(t *testing.T) {
	s := setupTestStore(t)
	insertTestTrack(t, s, "a", "USUM71703861")
	insertTestTrack(t, s, "b", "")
	insertTestTrack(t, s, "c", "GBUM72000001")

	tracks, err := s.EligibleTracks(context.Background())
	if err != nil {
		t.Fatalf("EligibleTracks failed: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("got %d eligible tracks, want 2", len(tracks))
	}
	if tracks[0].ID != "a" || tracks[1].ID != "c" {
		t.Errorf("unexpected order: %s, %s", tracks[0].ID, tracks[1].ID)
	}
}

func TestUpsertRegistryMergesAcrossProviders(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	insertTestTrack(t, s, "t1", "USUM71703861")

	now := time.Now()
	err := s.UpsertRegistry(ctx, "t1", RegistryUpdate{
		Title: "Test Song", Artist: "Test Artist", ISRC: "USUM71703861",
		Spotify: &models.RegistryProvider{
			ID: "sp1", Name: "Test Song", Secondary: "Test Album",
			ExternalURL: "https://open.spotify.com/track/sp1", Popularity: 70,
		},
	}, now)
	if err != nil {
		t.Fatalf("UpsertRegistry (spotify) failed: %v", err)
	}

	// A later pass that only resolved youtube must not disturb spotify.
	later := now.Add(time.Hour)
	err = s.UpsertRegistry(ctx, "t1", RegistryUpdate{
		Title: "Test Song", Artist: "Test Artist", ISRC: "USUM71703861",
		YouTube: &models.RegistryProvider{
			ID: "dQw4w9WgXcQ", Name: "Test Song (Official Video)",
			Secondary: "TestChannel", Views: 12345,
		},
	}, later)
	if err != nil {
		t.Fatalf("UpsertRegistry (youtube) failed: %v", err)
	}

	reg, err := s.GetRegistry(ctx, "t1")
	if err != nil {
		t.Fatalf("GetRegistry failed: %v", err)
	}
	if reg.Spotify.ID != "sp1" || reg.Spotify.Popularity != 70 {
		t.Errorf("spotify sub-record regressed: %+v", reg.Spotify)
	}
	if reg.YouTube.ID != "dQw4w9WgXcQ" || reg.YouTube.Views != 12345 {
		t.Errorf("youtube sub-record wrong: %+v", reg.YouTube)
	}
	if reg.Spotify.LastUpdated == nil || reg.YouTube.LastUpdated == nil {
		t.Fatal("expected last_updated on both written sub-records")
	}
	if !reg.YouTube.LastUpdated.After(*reg.Spotify.LastUpdated) {
		t.Error("youtube last_updated should postdate spotify's")
	}
	if reg.Apple.ID != "" || reg.Apple.LastUpdated != nil {
		t.Errorf("apple sub-record should be empty: %+v", reg.Apple)
	}
}

func TestUpsertRegistryRefreshesValues(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	insertTestTrack(t, s, "t1", "USUM71703861")

	first := time.Now()
	if err := s.UpsertRegistry(ctx, "t1", RegistryUpdate{
		Title: "Test Song", Artist: "Test Artist",
		Spotify: &models.RegistryProvider{ID: "sp1", Popularity: 10},
	}, first); err != nil {
		t.Fatalf("UpsertRegistry failed: %v", err)
	}
	if err := s.UpsertRegistry(ctx, "t1", RegistryUpdate{
		Title: "Test Song", Artist: "Test Artist",
		Spotify: &models.RegistryProvider{ID: "sp1", Popularity: 42},
	}, first.Add(time.Minute)); err != nil {
		t.Fatalf("UpsertRegistry failed: %v", err)
	}

	reg, err := s.GetRegistry(ctx, "t1")
	if err != nil {
		t.Fatalf("GetRegistry failed: %v", err)
	}
	if reg.Spotify.Popularity != 42 {
		t.Errorf("popularity = %d, want refreshed 42", reg.Spotify.Popularity)
	}
}

func TestUpsertDailyOverwritesSameDay(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	insertTestTrack(t, s, "t1", "USUM71703861")

	date := models.StatDate(time.Now())
	rank := 7
	if err := s.UpsertDaily(ctx, models.DailyStats{
		TrackID: "t1", Date: date,
		SpotifyStreams: 100, SpotifyPopularity: 50,
		AppleRank: &rank, YouTubeViews: 900,
	}); err != nil {
		t.Fatalf("UpsertDaily failed: %v", err)
	}

	// Second pass the same day replaces the whole bucket, including fields
	// that went back to their defaults.
	if err := s.UpsertDaily(ctx, models.DailyStats{
		TrackID: "t1", Date: date,
		SpotifyStreams: 150, SpotifyPopularity: 51,
		YouTubeViews: 1000,
	}); err != nil {
		t.Fatalf("UpsertDaily (second) failed: %v", err)
	}

	got, err := s.GetDaily(ctx, "t1", date)
	if err != nil {
		t.Fatalf("GetDaily failed: %v", err)
	}
	if got.SpotifyStreams != 150 || got.SpotifyPopularity != 51 || got.YouTubeViews != 1000 {
		t.Errorf("bucket not overwritten: %+v", got)
	}
	if got.AppleRank != nil {
		t.Errorf("apple rank = %d, want nil after overwrite", *got.AppleRank)
	}

	all, err := s.DailyRange(ctx, "t1", 7)
	if err != nil {
		t.Fatalf("DailyRange failed: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("got %d rows for the day, want exactly 1", len(all))
	}
}

func TestGetDailyNotFound(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.GetDaily(context.Background(), "t1", "2026-01-01")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecentRunsOrder(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"r1", "r2", "r3"} {
		run := models.RunSummary{
			RunID:      id,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + 30*time.Second),
			Processed:  i + 1,
		}
		if err := s.InsertRun(ctx, run); err != nil {
			t.Fatalf("InsertRun failed: %v", err)
		}
	}

	runs, err := s.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "r3" || runs[1].RunID != "r2" {
		t.Errorf("unexpected order: %s, %s", runs[0].RunID, runs[1].RunID)
	}
}
