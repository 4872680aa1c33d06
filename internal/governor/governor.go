// Package governor paces outgoing catalog calls. One token supply per
// provider plus a process-wide concurrency bound; every adapter call must
// pass through here before touching the network. Process-local only, no
// cluster coordination.
package governor

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"tracklink-go-srv/internal/config"
	"tracklink-go-srv/internal/models"
)

type Governor struct {
	limiters map[models.Provider]*rate.Limiter
	sem      chan struct{}
}

// New builds a governor from the configured per-provider QPS ceilings and
// the in-flight request bound.
func New(cfg config.RateConfig, maxInFlight int) *Governor {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Governor{
		limiters: map[models.Provider]*rate.Limiter{
			models.ProviderSpotify: newLimiter(cfg.SpotifyQPS),
			models.ProviderApple:   newLimiter(cfg.AppleQPS),
			models.ProviderYouTube: newLimiter(cfg.YouTubeQPS),
		},
		sem: make(chan struct{}, maxInFlight*len(models.Providers)),
	}
}

func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		qps = 1
	}
	return rate.NewLimiter(rate.Limit(qps), 1)
}

// Acquire blocks until a token for the provider and a concurrency slot are
// both available, or the context deadline expires. The returned release
// function must be called when the outgoing call finishes.
func (g *Governor) Acquire(ctx context.Context, p models.Provider) (func(), error) {
	lim, ok := g.limiters[p]
	if !ok {
		return nil, fmt.Errorf("governor: unknown provider %q", p)
	}

	select {
	case g.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := lim.Wait(ctx); err != nil {
		<-g.sem
		return nil, err
	}
	return func() { <-g.sem }, nil
}
