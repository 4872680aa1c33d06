package models

import (
	"strings"
	"time"
)

// Provider identifies one of the external catalogs the engine reconciles
// against.
type Provider string

const (
	ProviderSpotify Provider = "spotify"
	ProviderApple   Provider = "apple"
	ProviderYouTube Provider = "youtube"
)

// Providers lists every supported provider in fan-out order.
var Providers = []Provider{ProviderSpotify, ProviderApple, ProviderYouTube}

// ParseProvider maps a user-supplied provider name to its canonical form.
func ParseProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify":
		return ProviderSpotify, true
	case "apple", "applemusic", "apple_music":
		return ProviderApple, true
	case "youtube", "yt":
		return ProviderYouTube, true
	}
	return "", false
}

// CanonicalISRC returns the uppercase, trimmed form of an ISRC. Empty input
// stays empty.
func CanonicalISRC(isrc string) string {
	return strings.ToUpper(strings.TrimSpace(isrc))
}

// PlatformIDs is the flat per-track record of discovered platform
// identifiers. The engine mutates it only through SetPlatformID.
type PlatformIDs struct {
	SpotifyID string `json:"spotify_id,omitempty"`
	AppleID   string `json:"apple_id,omitempty"`
	YouTubeID string `json:"youtube_id,omitempty"`
	ISRC      string `json:"isrc,omitempty"`
}

// ID returns the stored identifier for one provider.
func (p PlatformIDs) ID(provider Provider) string {
	switch provider {
	case ProviderSpotify:
		return p.SpotifyID
	case ProviderApple:
		return p.AppleID
	case ProviderYouTube:
		return p.YouTubeID
	}
	return ""
}

// Track is the local recording the engine reconciles. It is created by the
// upload subsystem; the engine only reads it and writes PlatformIDs.
type Track struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	ISRC        string      `json:"isrc,omitempty"`
	Creator     string      `json:"creator,omitempty"`
	PlatformIDs PlatformIDs `json:"platform_ids"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Eligible reports whether the track participates in scheduled
// reconciliation.
func (t Track) Eligible() bool {
	return CanonicalISRC(t.ISRC) != ""
}

// RegistryProvider is one provider sub-record of the denormalized registry
// row. Secondary carries the album name for Spotify/Apple and the channel
// name for YouTube.
type RegistryProvider struct {
	ID          string     `json:"id,omitempty"`
	Name        string     `json:"name,omitempty"`
	Secondary   string     `json:"secondary,omitempty"`
	SecondaryID string     `json:"secondary_id,omitempty"`
	ExternalURL string     `json:"external_url,omitempty"`
	Popularity  int        `json:"popularity,omitempty"`
	Views       int64      `json:"views,omitempty"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// TrackRegistry is the denormalized per-track snapshot, one row per track.
type TrackRegistry struct {
	TrackID string           `json:"track_id"`
	Title   string           `json:"title"`
	Artist  string           `json:"artist"`
	ISRC    string           `json:"isrc,omitempty"`
	Creator string           `json:"creator,omitempty"`
	Spotify RegistryProvider `json:"spotify"`
	Apple   RegistryProvider `json:"apple"`
	YouTube RegistryProvider `json:"youtube"`
}

// DailyStats is the per-track-per-day counter bucket. Date is a UTC calendar
// day in YYYY-MM-DD form; the most recent reconciliation within a day owns
// the row.
type DailyStats struct {
	TrackID string `json:"track_id"`
	Date    string `json:"date"`

	SpotifyStreams    int64 `json:"spotify_streams"`
	SpotifyPopularity int   `json:"spotify_popularity"`
	SpotifyFollowers  int64 `json:"spotify_followers"`

	AppleRank  *int  `json:"apple_rank"`
	ApplePlays int64 `json:"apple_plays"`

	YouTubeViews    int64 `json:"youtube_views"`
	YouTubeLikes    int64 `json:"youtube_likes"`
	YouTubeComments int64 `json:"youtube_comments"`
}

// StatDateLayout is the storage layout of DailyStats.Date.
const StatDateLayout = "2006-01-02"

// StatDate truncates t to its UTC calendar day.
func StatDate(t time.Time) string {
	return t.UTC().Format(StatDateLayout)
}

// RunSummary records one full-set reconciliation run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
}

// Elapsed returns the run duration in seconds.
func (r RunSummary) Elapsed() float64 {
	return r.FinishedAt.Sub(r.StartedAt).Seconds()
}
