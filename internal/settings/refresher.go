package settings

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// rateMargin is applied on top of the official EUR/RON rate before storing.
const rateMargin = 1.003

// DefaultStaleness is how old the last successful sync may be before a
// refresh attempt is made.
const DefaultStaleness = 30 * time.Minute

// RateSource fetches the current official EUR to RON exchange rate.
type RateSource interface {
	Fetch(ctx context.Context) (float64, error)
}

// RateRefresher keeps the stored exchange rate fresh. Refreshes are gated by
// a staleness check on the last successful sync rather than a fixed
// schedule, so bursts of calls cost one upstream fetch at most.
type RateRefresher struct {
	store     *Store
	source    RateSource
	staleness time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu       sync.Mutex
	lastSync time.Time
}

// NewRateRefresher wires a refresher over a settings store and a rate source.
func NewRateRefresher(store *Store, source RateSource, log *zap.Logger) *RateRefresher {
	return &RateRefresher{
		store:     store,
		source:    source,
		staleness: DefaultStaleness,
		log:       log,
		now:       time.Now,
	}
}

// SetStaleness overrides the staleness threshold.
func (r *RateRefresher) SetStaleness(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.staleness = d
}

// RefreshIfStale fetches and stores a fresh rate when the last successful
// sync is older than the staleness threshold. Returns whether a sync ran.
func (r *RateRefresher) RefreshIfStale(ctx context.Context) (bool, error) {
	r.mu.Lock()
	if !r.lastSync.IsZero() && r.now().Sub(r.lastSync) <= r.staleness {
		r.mu.Unlock()
		return false, nil
	}
	r.mu.Unlock()

	if err := r.Refresh(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Refresh fetches the official rate, applies the margin and stores the
// result unconditionally of staleness.
func (r *RateRefresher) Refresh(ctx context.Context) error {
	base, err := r.source.Fetch(ctx)
	if err != nil {
		return err
	}
	withMargin := math.Round(base*rateMargin*10000) / 10000

	changed, err := r.store.SetExchangeRate(withMargin)
	if err != nil {
		return err
	}
	if !changed {
		r.log.Debug("exchange_rate_unchanged", zap.Float64("rate", withMargin))
	}

	r.mu.Lock()
	r.lastSync = r.now()
	r.mu.Unlock()
	return nil
}

// Run refreshes on the given interval until the context is cancelled. Errors
// are logged and the loop keeps going; the next tick is the retry.
func (r *RateRefresher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultStaleness
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RefreshIfStale(ctx); err != nil {
				r.log.Warn("exchange_rate_refresh_failed", zap.Error(err))
			}
		}
	}
}
