package collect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Luca-vn/coinhub/internal/series"
	"github.com/Luca-vn/coinhub/logger"
)

// Scheduler owns the collection cadences. Each cadence is one long-lived
// goroutine that sweeps the full tracked-asset sequence, appends each
// present family row immediately, then sleeps a fixed wall-clock interval.
// Sweep duration is not subtracted from the sleep; drift is accepted. The
// cadences share nothing but the store, and each partition is written by
// exactly one cadence.
type Scheduler struct {
	assets      []string
	coarseEvery time.Duration
	fineEvery   time.Duration
	collector   *Collector
	store       *series.Store

	afterCoarse func(context.Context)

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
	log     *logger.Log
}

func NewScheduler(assets []string, coarseEvery, fineEvery time.Duration, collector *Collector, store *series.Store) *Scheduler {
	return &Scheduler{
		assets:      assets,
		coarseEvery: coarseEvery,
		fineEvery:   fineEvery,
		collector:   collector,
		store:       store,
		log:         logger.GetLogger(),
	}
}

// OnCoarseSweepDone registers a hook invoked after every coarse sweep, used
// for the optional S3 mirror. Must be called before Start.
func (s *Scheduler) OnCoarseSweepDone(fn func(context.Context)) {
	s.afterCoarse = fn
}

// Start launches one goroutine per cadence.
func (s *Scheduler) Start(ctx context.Context) error {
	if len(s.assets) == 0 {
		return fmt.Errorf("no assets configured")
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()

	s.wg.Add(2)
	go s.runCadence(ctx, "coarse", s.coarseEvery, s.sweepCoarse)
	go s.runCadence(ctx, "fine", s.fineEvery, s.sweepFine)

	s.log.WithComponent("scheduler").WithFields(logger.Fields{
		"assets":          len(s.assets),
		"coarse_interval": s.coarseEvery.String(),
		"fine_interval":   s.fineEvery.String(),
	}).Info("scheduler started")
	return nil
}

// Stop waits for both cadence goroutines to exit. Callers cancel the Start
// context first; an in-flight sweep may be abandoned mid-asset.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	s.log.WithComponent("scheduler").Info("scheduler stopped")
}

func (s *Scheduler) runCadence(ctx context.Context, name string, interval time.Duration, sweep func(context.Context)) {
	defer s.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}
		sweep(ctx)

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}

// sweepCoarse runs one pass of the slow families. The timestamp is the
// sweep time truncated to the hour, shared by every row of the sweep.
func (s *Scheduler) sweepCoarse(ctx context.Context) {
	started := time.Now()
	at := started.UTC().Truncate(time.Hour)
	log := s.log.WithComponent("coarse_sweep")

	var appended, dropped int
	for _, asset := range s.assets {
		if ctx.Err() != nil {
			return
		}
		results := s.collector.CollectCoarse(ctx, asset, at)
		for _, fam := range series.CoarseFamilies {
			obs, ok := results[fam]
			if !ok {
				continue
			}
			if err := s.append(log, fam, obs); err != nil {
				dropped++
				continue
			}
			appended++
		}
	}

	log.WithFields(logger.Fields{
		"rows_appended": appended,
		"rows_dropped":  dropped,
		"duration_ms":   float64(time.Since(started).Nanoseconds()) / 1e6,
	}).Info("coarse sweep complete")
	log.LogMetric("coarse_sweep", "rows_appended", appended, "counter", nil)

	if s.afterCoarse != nil {
		s.afterCoarse(ctx)
	}
}

// sweepFine runs one pass of the per-minute family with wall-clock-exact
// timestamps.
func (s *Scheduler) sweepFine(ctx context.Context) {
	log := s.log.WithComponent("fine_sweep")

	var appended int
	for _, asset := range s.assets {
		if ctx.Err() != nil {
			return
		}
		obs, ok := s.collector.CollectFine(ctx, asset, time.Now().UTC())
		if !ok {
			continue
		}
		if err := s.append(log, series.PriceVolume1m, obs); err != nil {
			continue
		}
		appended++
	}

	log.WithFields(logger.Fields{"rows_appended": appended}).Debug("fine sweep complete")
}

// append commits one row, absorbing storage failures so the sweep proceeds.
func (s *Scheduler) append(log *logger.Entry, fam *series.Family, obs series.Observation) error {
	err := s.store.Append(fam, obs)
	if err == nil {
		return nil
	}
	fields := logger.Fields{"family": fam.Name, "asset": obs.Asset}
	if errors.Is(err, series.ErrStorageUnavailable) {
		log.WithError(err).WithFields(fields).Warn("storage unavailable, row dropped")
	} else {
		log.WithError(err).WithFields(fields).Error("failed to append observation")
	}
	return err
}
