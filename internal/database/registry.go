package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tracklink-go-srv/internal/models"
)

// RegistryUpdate carries the fields one reconciliation wants to fold into a
// registry row. Nil provider sub-records are left untouched.
type RegistryUpdate struct {
	Title   string
	Artist  string
	ISRC    string
	Creator string

	Spotify *models.RegistryProvider
	Apple   *models.RegistryProvider
	YouTube *models.RegistryProvider
}

// UpsertRegistry merges the update into the one registry row for trackID.
// Merge rules: the header (title/artist/creator) is written on first insert
// only, isrc refreshes when newly discovered, provider fields never regress
// to empty, and each provider's last_updated moves only when that provider's
// sub-record is written.
func (s *Store) UpsertRegistry(ctx context.Context, trackID string, u RegistryUpdate, now time.Time) error {
	var (
		spPop, ytViews            any
		spAt, apAt, ytAt          any
		spID, spName, spAlbum     string
		spURL                     string
		apID, apName, apAlbum     string
		apAlbumID, apURL          string
		ytID, ytTitle, ytChannel  string
		ytURL                     string
	)

	if p := u.Spotify; p != nil {
		spID, spName, spAlbum, spURL = p.ID, p.Name, p.Secondary, p.ExternalURL
		spPop = p.Popularity
		spAt = now.UTC()
	}
	if p := u.Apple; p != nil {
		apID, apName, apAlbum, apURL = p.ID, p.Name, p.Secondary, p.ExternalURL
		apAlbumID = p.SecondaryID
		apAt = now.UTC()
	}
	if p := u.YouTube; p != nil {
		ytID, ytTitle, ytChannel, ytURL = p.ID, p.Name, p.Secondary, p.ExternalURL
		ytViews = p.Views
		ytAt = now.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO track_registry (
		track_id, title, artist, isrc, creator,
		spotify_id, spotify_name, spotify_album, spotify_url,
		spotify_popularity, spotify_updated_at,
		apple_id, apple_name, apple_album, apple_album_id, apple_url,
		apple_updated_at,
		youtube_id, youtube_title, youtube_channel, youtube_url,
		youtube_views, youtube_updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(track_id) DO UPDATE SET
		isrc               = COALESCE(NULLIF(excluded.isrc, ''), isrc),
		spotify_id         = COALESCE(NULLIF(excluded.spotify_id, ''), spotify_id),
		spotify_name       = COALESCE(NULLIF(excluded.spotify_name, ''), spotify_name),
		spotify_album      = COALESCE(NULLIF(excluded.spotify_album, ''), spotify_album),
		spotify_url        = COALESCE(NULLIF(excluded.spotify_url, ''), spotify_url),
		spotify_popularity = COALESCE(excluded.spotify_popularity, spotify_popularity),
		spotify_updated_at = COALESCE(excluded.spotify_updated_at, spotify_updated_at),
		apple_id           = COALESCE(NULLIF(excluded.apple_id, ''), apple_id),
		apple_name         = COALESCE(NULLIF(excluded.apple_name, ''), apple_name),
		apple_album        = COALESCE(NULLIF(excluded.apple_album, ''), apple_album),
		apple_album_id     = COALESCE(NULLIF(excluded.apple_album_id, ''), apple_album_id),
		apple_url          = COALESCE(NULLIF(excluded.apple_url, ''), apple_url),
		apple_updated_at   = COALESCE(excluded.apple_updated_at, apple_updated_at),
		youtube_id         = COALESCE(NULLIF(excluded.youtube_id, ''), youtube_id),
		youtube_title      = COALESCE(NULLIF(excluded.youtube_title, ''), youtube_title),
		youtube_channel    = COALESCE(NULLIF(excluded.youtube_channel, ''), youtube_channel),
		youtube_url        = COALESCE(NULLIF(excluded.youtube_url, ''), youtube_url),
		youtube_views      = COALESCE(excluded.youtube_views, youtube_views),
		youtube_updated_at = COALESCE(excluded.youtube_updated_at, youtube_updated_at)`,
		trackID, u.Title, u.Artist, models.CanonicalISRC(u.ISRC), u.Creator,
		spID, spName, spAlbum, spURL, spPop, spAt,
		apID, apName, apAlbum, apAlbumID, apURL, apAt,
		ytID, ytTitle, ytChannel, ytURL, ytViews, ytAt)
	if err != nil {
		return fmt.Errorf("upsert registry %s: %w", trackID, err)
	}
	return nil
}

// GetRegistry fetches the denormalized row for one track.
func (s *Store) GetRegistry(ctx context.Context, trackID string) (*models.TrackRegistry, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT track_id, title, artist, isrc, creator,
		spotify_id, spotify_name, spotify_album, spotify_url,
		spotify_popularity, spotify_updated_at,
		apple_id, apple_name, apple_album, apple_album_id, apple_url,
		apple_updated_at,
		youtube_id, youtube_title, youtube_channel, youtube_url,
		youtube_views, youtube_updated_at
	FROM track_registry WHERE track_id = ?`, trackID)

	var reg models.TrackRegistry
	var spPop, ytViews sql.NullInt64
	var spAt, apAt, ytAt sql.NullTime
	err := row.Scan(
		&reg.TrackID, &reg.Title, &reg.Artist, &reg.ISRC, &reg.Creator,
		&reg.Spotify.ID, &reg.Spotify.Name, &reg.Spotify.Secondary,
		&reg.Spotify.ExternalURL, &spPop, &spAt,
		&reg.Apple.ID, &reg.Apple.Name, &reg.Apple.Secondary,
		&reg.Apple.SecondaryID, &reg.Apple.ExternalURL, &apAt,
		&reg.YouTube.ID, &reg.YouTube.Name, &reg.YouTube.Secondary,
		&reg.YouTube.ExternalURL, &ytViews, &ytAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registry %s: %w", trackID, err)
	}

	reg.Spotify.Popularity = int(spPop.Int64)
	reg.YouTube.Views = ytViews.Int64
	if spAt.Valid {
		t := spAt.Time
		reg.Spotify.LastUpdated = &t
	}
	if apAt.Valid {
		t := apAt.Time
		reg.Apple.LastUpdated = &t
	}
	if ytAt.Valid {
		t := ytAt.Time
		reg.YouTube.LastUpdated = &t
	}
	return &reg, nil
}
