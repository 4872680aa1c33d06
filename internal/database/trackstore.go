package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracklink-go-srv/internal/models"
)

const trackColumns = `id, title, artist, isrc, creator,
	spotify_id, apple_id, youtube_id, platform_isrc, created_at, updated_at`

// InsertTrack registers a track. The upload subsystem is the real owner of
// this table; the engine needs the operation for its registration endpoint
// and for tests.
func (s *Store) InsertTrack(ctx context.Context, t models.Track) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO tracks (id, title, artist, isrc, creator, platform_isrc)
	VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Artist, models.CanonicalISRC(t.ISRC), t.Creator,
		models.CanonicalISRC(t.ISRC))
	if err != nil {
		return fmt.Errorf("insert track %s: %w", t.ID, err)
	}
	return nil
}

// GetTrack fetches one track by local id.
func (s *Store) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get track %s: %w", id, err)
	}
	return t, nil
}

// EligibleTracks returns every track carrying a non-empty ISRC, in stable id
// order.
func (s *Store) EligibleTracks(ctx context.Context) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE TRIM(isrc) <> '' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("eligible tracks: %w", err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("eligible tracks scan: %w", err)
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// FindTrackByISRC returns the first track carrying the canonical form of
// isrc, or ErrNotFound.
func (s *Store) FindTrackByISRC(ctx context.Context, isrc string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE isrc = ? ORDER BY id LIMIT 1`,
		models.CanonicalISRC(isrc))
	t, err := scanTrack(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find track by isrc: %w", err)
	}
	return t, nil
}

// SetPlatformID writes one discovered platform identifier and, when
// provided, echoes the canonical ISRC into the platform record. Re-applying
// the same value is a no-op.
func (s *Store) SetPlatformID(ctx context.Context, trackID string, p models.Provider, platformID, isrc string) error {
	var column string
	switch p {
	case models.ProviderSpotify:
		column = "spotify_id"
	case models.ProviderApple:
		column = "apple_id"
	case models.ProviderYouTube:
		column = "youtube_id"
	default:
		return fmt.Errorf("set platform id: unknown provider %q", p)
	}

	res, err := s.db.ExecContext(ctx, `
	UPDATE tracks SET
		`+column+` = ?,
		platform_isrc = CASE WHEN ? <> '' THEN ? ELSE platform_isrc END,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`,
		platformID,
		models.CanonicalISRC(isrc), models.CanonicalISRC(isrc),
		trackID)
	if err != nil {
		return fmt.Errorf("set %s for track %s: %w", column, trackID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(row scanner) (*models.Track, error) {
	var t models.Track
	err := row.Scan(
		&t.ID, &t.Title, &t.Artist, &t.ISRC, &t.Creator,
		&t.PlatformIDs.SpotifyID, &t.PlatformIDs.AppleID,
		&t.PlatformIDs.YouTubeID, &t.PlatformIDs.ISRC,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
