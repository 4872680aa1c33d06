package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/metrics"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
	"tracklink-go-srv/internal/provider/youtube"
)

// ErrUnknownProvider is returned for provider names outside the supported
// set.
var ErrUnknownProvider = errors.New("unknown provider")

// LookupOne runs a single adapter for a single ISRC. When a local track
// carries that ISRC the result is persisted the same way a scheduled pass
// would persist it; otherwise the lookup is purely informational.
func (p *Pipeline) LookupOne(ctx context.Context, prov models.Provider, isrc string) (*provider.Result, error) {
	a, ok := p.adapters[prov]
	if !ok {
		return nil, ErrUnknownProvider
	}

	track, err := p.store.FindTrackByISRC(ctx, isrc)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if track == nil {
		track = &models.Track{ISRC: models.CanonicalISRC(isrc)}
	}

	out := p.lookup(ctx, a, *track)
	if out.Outcome != OutcomeSuccess {
		return nil, out.Err
	}
	if track.ID != "" {
		if err := p.persistOne(ctx, *track, out.Result); err != nil {
			return out.Result, err
		}
	}
	return out.Result, nil
}

// LookupAll runs the scheduled per-track step for one ISRC. Without a local
// track the adapters are still queried but nothing is persisted.
func (p *Pipeline) LookupAll(ctx context.Context, isrc string) (*TrackOutcome, error) {
	track, err := p.store.FindTrackByISRC(ctx, isrc)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if track != nil {
		return p.ReconcileTrack(ctx, *track), nil
	}

	ephemeral := models.Track{ISRC: models.CanonicalISRC(isrc)}
	if ephemeral.ISRC == "" {
		return &TrackOutcome{Skipped: true}, nil
	}
	return &TrackOutcome{
		Providers: p.fanOut(ctx, ephemeral),
	}, nil
}

// SetIDs applies user-supplied platform ids, bypassing the adapters. Manual
// writes always win over previously discovered ids. YouTube accepts either a
// bare video id or a canonical watch/youtu.be URL. The registry is refreshed
// for the overridden providers only.
func (p *Pipeline) SetIDs(ctx context.Context, trackID string, ids models.PlatformIDs) (*models.TrackRegistry, error) {
	track, err := p.store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}

	update := database.RegistryUpdate{
		Title:   track.Title,
		Artist:  track.Artist,
		ISRC:    models.CanonicalISRC(track.ISRC),
		Creator: track.Creator,
	}
	wrote := false

	apply := func(prov models.Provider, id string) error {
		if id == "" {
			return nil
		}
		if prov == models.ProviderYouTube {
			vid, ok := youtube.ExtractVideoID(id)
			if !ok {
				return fmt.Errorf("invalid youtube id or url %q", id)
			}
			id = vid
		}
		if err := p.store.SetPlatformID(ctx, trackID, prov, id, track.ISRC); err != nil {
			return err
		}
		setRegistryProvider(&update, prov, &models.RegistryProvider{ID: id})
		wrote = true
		return nil
	}

	if err := apply(models.ProviderSpotify, ids.SpotifyID); err != nil {
		return nil, err
	}
	if err := apply(models.ProviderApple, ids.AppleID); err != nil {
		return nil, err
	}
	if err := apply(models.ProviderYouTube, ids.YouTubeID); err != nil {
		return nil, err
	}

	if wrote {
		if err := p.store.UpsertRegistry(ctx, trackID, update, time.Now()); err != nil {
			return nil, err
		}
	}
	return p.store.GetRegistry(ctx, trackID)
}

// RefreshByID re-fetches a provider record by the platform id already on the
// track. It is the only path that skips the search step. A NotFound here
// means the pinned id no longer resolves; the id is kept and the caller
// decides what to do.
func (p *Pipeline) RefreshByID(ctx context.Context, trackID string, prov models.Provider) (*provider.Result, error) {
	a, ok := p.adapters[prov]
	if !ok {
		return nil, ErrUnknownProvider
	}
	track, err := p.store.GetTrack(ctx, trackID)
	if err != nil {
		return nil, err
	}
	id := track.PlatformIDs.ID(prov)
	if id == "" {
		return nil, provider.ErrNotFound
	}

	callCtx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
	defer cancel()
	release, err := p.gov.Acquire(callCtx, prov)
	if err != nil {
		return nil, err
	}
	res, err := a.LookupByID(callCtx, id)
	release()

	metrics.LookupOutcomes.WithLabelValues(string(prov), string(classify(err))).Inc()
	if err != nil {
		if errors.Is(err, provider.ErrNotFound) {
			p.logger.WithFields(logrus.Fields{
				"track_id": trackID,
				"provider": prov,
				"id":       id,
			}).Warn("pinned platform id no longer resolves")
		}
		return nil, err
	}

	if err := p.persistOne(ctx, *track, res); err != nil {
		return res, err
	}
	return res, nil
}

// persistOne applies the single-provider write path: id, registry
// sub-record, then a read-merge-write of today's daily bucket so the other
// providers' counters from an earlier pass survive.
func (p *Pipeline) persistOne(ctx context.Context, track models.Track, res *provider.Result) error {
	stored := track.PlatformIDs.ID(res.Provider)
	if stored != "" && stored != res.ID {
		p.logger.WithFields(logrus.Fields{
			"track_id": track.ID,
			"provider": res.Provider,
			"stored":   stored,
			"resolved": res.ID,
		}).Info("keeping pinned platform id")
		return nil
	}

	if err := p.store.SetPlatformID(ctx, track.ID, res.Provider, res.ID, track.ISRC); err != nil {
		metrics.StorageErrors.WithLabelValues("set_platform_id").Inc()
		return err
	}

	update := database.RegistryUpdate{
		Title:   track.Title,
		Artist:  track.Artist,
		ISRC:    models.CanonicalISRC(track.ISRC),
		Creator: track.Creator,
	}
	setRegistryProvider(&update, res.Provider, toRegistryProvider(res))
	if err := p.store.UpsertRegistry(ctx, track.ID, update, time.Now()); err != nil {
		metrics.StorageErrors.WithLabelValues("upsert_registry").Inc()
		return err
	}

	now := time.Now()
	daily, err := p.store.GetDaily(ctx, track.ID, models.StatDate(now))
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		daily = &models.DailyStats{TrackID: track.ID, Date: models.StatDate(now)}
	}
	mergeDaily(daily, res)
	if err := p.store.UpsertDaily(ctx, *daily); err != nil {
		metrics.StorageErrors.WithLabelValues("upsert_daily").Inc()
		return err
	}
	return nil
}

func mergeDaily(d *models.DailyStats, res *provider.Result) {
	switch res.Provider {
	case models.ProviderSpotify:
		d.SpotifyStreams = res.Streams
		d.SpotifyPopularity = res.Popularity
		d.SpotifyFollowers = res.Followers
	case models.ProviderApple:
		d.AppleRank = res.Rank
		d.ApplePlays = res.Plays
	case models.ProviderYouTube:
		d.YouTubeViews = res.Views
		d.YouTubeLikes = res.Likes
		d.YouTubeComments = res.Comments
	}
}
