// Package pipeline runs the per-track reconciliation: fan out to the
// provider adapters under the rate governor, collect every result before
// touching storage, then write in the fixed order platform ids → registry
// snapshot → daily bucket.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/governor"
	"tracklink-go-srv/internal/metrics"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/provider"
)

// DefaultAdapterTimeout bounds each individual provider call.
const DefaultAdapterTimeout = 15 * time.Second

// Outcome classifies one adapter call.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeDisabled Outcome = "disabled"
	OutcomeNotFound Outcome = "not_found"
	OutcomeError    Outcome = "error"
)

// ProviderOutcome is the collected result of one adapter call plus what the
// storage phase did with it.
type ProviderOutcome struct {
	Provider models.Provider  `json:"provider"`
	Outcome  Outcome          `json:"outcome"`
	Result   *provider.Result `json:"result,omitempty"`
	Err      error            `json:"-"`

	// Persisted is false when a manual override or a storage failure kept
	// the resolved id out of the track record.
	Persisted bool `json:"persisted"`
}

// TrackOutcome summarizes one per-track reconciliation.
type TrackOutcome struct {
	TrackID   string                                    `json:"track_id"`
	Skipped   bool                                      `json:"skipped,omitempty"`
	Errors    int                                       `json:"errors"`
	Providers map[models.Provider]*ProviderOutcome      `json:"providers,omitempty"`
}

type Pipeline struct {
	store    *database.Store
	gov      *governor.Governor
	adapters map[models.Provider]provider.Adapter
	logger   *logrus.Logger

	adapterTimeout time.Duration
}

func New(store *database.Store, gov *governor.Governor, adapters []provider.Adapter, logger *logrus.Logger) *Pipeline {
	m := make(map[models.Provider]provider.Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Pipeline{
		store:          store,
		gov:            gov,
		adapters:       m,
		logger:         logger,
		adapterTimeout: DefaultAdapterTimeout,
	}
}

// SetAdapterTimeout overrides the per-call deadline. Test hook.
func (p *Pipeline) SetAdapterTimeout(d time.Duration) { p.adapterTimeout = d }

func classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, provider.ErrDisabled):
		return OutcomeDisabled
	case errors.Is(err, provider.ErrNotFound):
		return OutcomeNotFound
	default:
		return OutcomeError
	}
}

// lookup runs one adapter call under the governor with its own deadline.
func (p *Pipeline) lookup(ctx context.Context, a provider.Adapter, track models.Track) *ProviderOutcome {
	out := &ProviderOutcome{Provider: a.Name()}

	callCtx, cancel := context.WithTimeout(ctx, p.adapterTimeout)
	defer cancel()

	release, err := p.gov.Acquire(callCtx, a.Name())
	if err != nil {
		out.Outcome, out.Err = OutcomeError, err
		metrics.LookupOutcomes.WithLabelValues(string(a.Name()), string(out.Outcome)).Inc()
		return out
	}
	defer release()

	res, err := a.Lookup(callCtx, track)
	out.Outcome = classify(err)
	if out.Outcome == OutcomeSuccess {
		out.Result = res
	} else {
		out.Err = err
	}
	metrics.LookupOutcomes.WithLabelValues(string(a.Name()), string(out.Outcome)).Inc()
	return out
}

// fanOut queries every adapter concurrently and returns only after all three
// answered: storage must see a coherent snapshot, never a partial one.
func (p *Pipeline) fanOut(ctx context.Context, track models.Track) map[models.Provider]*ProviderOutcome {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = make(map[models.Provider]*ProviderOutcome, len(p.adapters))
	)
	for _, a := range p.adapters {
		wg.Add(1)
		go func(a provider.Adapter) {
			defer wg.Done()
			o := p.lookup(ctx, a, track)
			mu.Lock()
			out[a.Name()] = o
			mu.Unlock()
		}(a)
	}
	wg.Wait()
	return out
}

// ReconcileTrack runs the full per-track pass and persists everything it
// resolved. Tracks without an ISRC are skipped, not failed.
func (p *Pipeline) ReconcileTrack(ctx context.Context, track models.Track) *TrackOutcome {
	outcome := &TrackOutcome{TrackID: track.ID}

	isrc := models.CanonicalISRC(track.ISRC)
	if isrc == "" {
		outcome.Skipped = true
		return outcome
	}
	track.ISRC = isrc

	outcome.Providers = p.fanOut(ctx, track)
	p.persist(ctx, track, outcome)

	metrics.TracksProcessed.Inc()
	if outcome.Errors > 0 {
		metrics.TrackErrors.Inc()
	}
	return outcome
}

// persist applies the write ordering: ids first, then the registry
// snapshot, then the daily bucket. A lookup that resolved an id conflicting
// with a manually pinned one is kept out of both the track record and the
// registry; the daily bucket is written regardless.
func (p *Pipeline) persist(ctx context.Context, track models.Track, outcome *TrackOutcome) {
	update := database.RegistryUpdate{
		Title:   track.Title,
		Artist:  track.Artist,
		ISRC:    track.ISRC,
		Creator: track.Creator,
	}
	resolved := false

	for _, prov := range models.Providers {
		po := outcome.Providers[prov]
		if po == nil || po.Outcome != OutcomeSuccess {
			if po != nil && po.Outcome == OutcomeError {
				outcome.Errors++
				p.logger.WithError(po.Err).WithFields(logrus.Fields{
					"track_id": track.ID,
					"provider": prov,
				}).Warn("provider lookup failed")
			}
			continue
		}

		stored := track.PlatformIDs.ID(prov)
		if stored != "" && stored != po.Result.ID {
			// Manual override wins over the ISRC-resolved id.
			p.logger.WithFields(logrus.Fields{
				"track_id": track.ID,
				"provider": prov,
				"stored":   stored,
				"resolved": po.Result.ID,
			}).Info("keeping pinned platform id")
			continue
		}

		if err := p.store.SetPlatformID(ctx, track.ID, prov, po.Result.ID, track.ISRC); err != nil {
			outcome.Errors++
			metrics.StorageErrors.WithLabelValues("set_platform_id").Inc()
			p.logger.WithError(err).WithFields(logrus.Fields{
				"track_id": track.ID,
				"provider": prov,
			}).Error("persisting platform id failed")
			continue
		}
		po.Persisted = true
		resolved = true
		setRegistryProvider(&update, prov, toRegistryProvider(po.Result))
	}

	if resolved {
		if err := p.store.UpsertRegistry(ctx, track.ID, update, time.Now()); err != nil {
			outcome.Errors++
			metrics.StorageErrors.WithLabelValues("upsert_registry").Inc()
			p.logger.WithError(err).WithField("track_id", track.ID).
				Error("registry upsert failed")
		}
	}

	if err := p.store.UpsertDaily(ctx, buildDaily(track.ID, time.Now(), outcome.Providers)); err != nil {
		outcome.Errors++
		metrics.StorageErrors.WithLabelValues("upsert_daily").Inc()
		p.logger.WithError(err).WithField("track_id", track.ID).
			Error("daily stats upsert failed")
	}
}

func toRegistryProvider(res *provider.Result) *models.RegistryProvider {
	return &models.RegistryProvider{
		ID:          res.ID,
		Name:        res.Name,
		Secondary:   res.Secondary,
		SecondaryID: res.SecondaryID,
		ExternalURL: res.ExternalURL,
		Popularity:  res.Popularity,
		Views:       res.Views,
	}
}

func setRegistryProvider(u *database.RegistryUpdate, p models.Provider, rp *models.RegistryProvider) {
	switch p {
	case models.ProviderSpotify:
		u.Spotify = rp
	case models.ProviderApple:
		u.Apple = rp
	case models.ProviderYouTube:
		u.YouTube = rp
	}
}

// buildDaily assembles the day's bucket, substituting the documented
// defaults for providers that did not return success.
func buildDaily(trackID string, now time.Time, outcomes map[models.Provider]*ProviderOutcome) models.DailyStats {
	d := models.DailyStats{
		TrackID: trackID,
		Date:    models.StatDate(now),
	}
	if po := outcomes[models.ProviderSpotify]; po != nil && po.Outcome == OutcomeSuccess {
		d.SpotifyStreams = po.Result.Streams
		d.SpotifyPopularity = po.Result.Popularity
		d.SpotifyFollowers = po.Result.Followers
	}
	if po := outcomes[models.ProviderApple]; po != nil && po.Outcome == OutcomeSuccess {
		d.AppleRank = po.Result.Rank
		d.ApplePlays = po.Result.Plays
	}
	if po := outcomes[models.ProviderYouTube]; po != nil && po.Outcome == OutcomeSuccess {
		d.YouTubeViews = po.Result.Views
		d.YouTubeLikes = po.Result.Likes
		d.YouTubeComments = po.Result.Comments
	}
	return d
}
