package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracklink-go-srv/internal/models"
)

// UpsertDaily writes the counter bucket for (trackID, stats.Date). A second
// write within the same UTC day replaces the whole bucket: latest-snapshot
// semantics, not accumulation.
func (s *Store) UpsertDaily(ctx context.Context, stats models.DailyStats) error {
	var rank any
	if stats.AppleRank != nil {
		rank = *stats.AppleRank
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO daily_tracking_stats (
		track_id, stat_date,
		spotify_streams, spotify_popularity, spotify_followers,
		apple_rank, apple_plays,
		youtube_views, youtube_likes, youtube_comments,
		updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(track_id, stat_date) DO UPDATE SET
		spotify_streams    = excluded.spotify_streams,
		spotify_popularity = excluded.spotify_popularity,
		spotify_followers  = excluded.spotify_followers,
		apple_rank         = excluded.apple_rank,
		apple_plays        = excluded.apple_plays,
		youtube_views      = excluded.youtube_views,
		youtube_likes      = excluded.youtube_likes,
		youtube_comments   = excluded.youtube_comments,
		updated_at         = CURRENT_TIMESTAMP`,
		stats.TrackID, stats.Date,
		stats.SpotifyStreams, stats.SpotifyPopularity, stats.SpotifyFollowers,
		rank, stats.ApplePlays,
		stats.YouTubeViews, stats.YouTubeLikes, stats.YouTubeComments)
	if err != nil {
		return fmt.Errorf("upsert daily stats %s/%s: %w", stats.TrackID, stats.Date, err)
	}
	return nil
}

// GetDaily fetches the bucket for one (track, UTC day), or ErrNotFound.
func (s *Store) GetDaily(ctx context.Context, trackID, date string) (*models.DailyStats, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT track_id, stat_date,
		spotify_streams, spotify_popularity, spotify_followers,
		apple_rank, apple_plays,
		youtube_views, youtube_likes, youtube_comments
	FROM daily_tracking_stats WHERE track_id = ? AND stat_date = ?`,
		trackID, date)

	var d models.DailyStats
	var rank sql.NullInt64
	err := row.Scan(
		&d.TrackID, &d.Date,
		&d.SpotifyStreams, &d.SpotifyPopularity, &d.SpotifyFollowers,
		&rank, &d.ApplePlays,
		&d.YouTubeViews, &d.YouTubeLikes, &d.YouTubeComments)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get daily stats %s/%s: %w", trackID, date, err)
	}
	if rank.Valid {
		v := int(rank.Int64)
		d.AppleRank = &v
	}
	return &d, nil
}

// DailyRange returns up to windowDays of stats for one track, oldest first.
// The window is clamped to 90 days.
func (s *Store) DailyRange(ctx context.Context, trackID string, windowDays int) ([]models.DailyStats, error) {
	if windowDays <= 0 || windowDays > 90 {
		windowDays = 90
	}
	rows, err := s.db.QueryContext(ctx, `
	SELECT track_id, stat_date,
		spotify_streams, spotify_popularity, spotify_followers,
		apple_rank, apple_plays,
		youtube_views, youtube_likes, youtube_comments
	FROM daily_tracking_stats
	WHERE track_id = ? AND stat_date >= date('now', ?)
	ORDER BY stat_date ASC`,
		trackID, fmt.Sprintf("-%d days", windowDays))
	if err != nil {
		return nil, fmt.Errorf("daily range %s: %w", trackID, err)
	}
	defer rows.Close()

	var out []models.DailyStats
	for rows.Next() {
		var d models.DailyStats
		var rank sql.NullInt64
		if err := rows.Scan(
			&d.TrackID, &d.Date,
			&d.SpotifyStreams, &d.SpotifyPopularity, &d.SpotifyFollowers,
			&rank, &d.ApplePlays,
			&d.YouTubeViews, &d.YouTubeLikes, &d.YouTubeComments); err != nil {
			return nil, fmt.Errorf("daily range scan: %w", err)
		}
		if rank.Valid {
			v := int(rank.Int64)
			d.AppleRank = &v
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
