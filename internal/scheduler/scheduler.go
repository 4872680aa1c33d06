// Package scheduler drives the recurring tracking passes. One pass walks
// every eligible track through the reconciliation pipeline; passes never
// overlap, a tick that fires mid-pass is dropped.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/database"
	"tracklink-go-srv/internal/metrics"
	"tracklink-go-srv/internal/models"
	"tracklink-go-srv/internal/pipeline"
)

type Scheduler struct {
	pipe   *pipeline.Pipeline
	store  *database.Store
	cfg    config.ScheduleConfig
	logger *logrus.Logger

	runMu  sync.Mutex // held for the duration of a pass
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(pipe *pipeline.Pipeline, store *database.Store, cfg config.ScheduleConfig, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		pipe:   pipe,
		store:  store,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
}

// Start launches the tick loop. Stop must be called exactly once afterwards.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop signals the loop and any in-flight pass, then waits for both to
// drain. A pass stops between tracks, never mid-track.
func (s *Scheduler) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

// TriggerRun starts a pass immediately, outside the tick cadence. Returns
// the run id, or false when a pass is already in flight.
func (s *Scheduler) TriggerRun() (string, bool) {
	if !s.runMu.TryLock() {
		metrics.RunsCoalesced.Inc()
		return "", false
	}
	runID := uuid.NewString()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.runMu.Unlock()
		s.runPass(runID, "manual")
	}()
	return runID, true
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	if s.cfg.RunAtBoot {
		s.tick()
	}
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one pass unless the previous one is still going, in which case
// the firing is dropped rather than queued.
func (s *Scheduler) tick() {
	if !s.runMu.TryLock() {
		metrics.RunsCoalesced.Inc()
		s.logger.Warn("tracking pass still running, skipping tick")
		return
	}
	defer s.runMu.Unlock()
	s.runPass(uuid.NewString(), "scheduled")
}

func (s *Scheduler) runPass(runID, trigger string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stop requests interrupt the pass between tracks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-done:
		}
	}()

	log := s.logger.WithFields(logrus.Fields{"run_id": runID, "trigger": trigger})
	start := time.Now()

	tracks, err := s.store.EligibleTracks(ctx)
	if err != nil {
		log.WithError(err).Error("listing eligible tracks failed, aborting pass")
		return
	}
	log.WithField("tracks", len(tracks)).Info("tracking pass started")

	summary := models.RunSummary{RunID: runID, StartedAt: start}

	workers := s.cfg.MaxConcurrent
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

dispatch:
	for i, track := range tracks {
		select {
		case <-ctx.Done():
			log.WithField("remaining", len(tracks)-i).Info("pass interrupted")
			break dispatch
		default:
		}

		sem <- struct{}{}
		wg.Add(1)
		go func(t models.Track) {
			defer wg.Done()
			defer func() { <-sem }()

			out := s.pipe.ReconcileTrack(ctx, t)
			mu.Lock()
			switch {
			case out.Skipped:
				summary.Skipped++
			default:
				summary.Processed++
				summary.Errors += out.Errors
			}
			mu.Unlock()
		}(track)

		if d := s.cfg.PerTrackDelay(); d > 0 && i < len(tracks)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		}
	}
	wg.Wait()

	summary.FinishedAt = time.Now()
	metrics.RunDuration.Observe(summary.Elapsed())

	if err := s.store.InsertRun(context.Background(), summary); err != nil {
		log.WithError(err).Error("persisting run summary failed")
	}
	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"skipped":   summary.Skipped,
		"errors":    summary.Errors,
		"elapsed_s": summary.Elapsed(),
	}).Info("tracking pass finished")
}
