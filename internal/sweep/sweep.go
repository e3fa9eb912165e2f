// Package sweep reclaims expired leases and backfills the freed slots.
// Nothing fires at a lease's expiry instant; staleness is discovered on
// the next pass, so worst-case lag equals the sweep interval.
package sweep

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wavecrit/wavecrit/internal/assign"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

// Config tunes the sweeper.
type Config struct {
	// BatchSize bounds how many expired leases one expiry transaction
	// touches.
	BatchSize int

	// Concurrency bounds how many affected tracks are re-assigned in
	// parallel.
	Concurrency int

	// BulkAssignLimit is how many recent assignable tracks the
	// safety-net pass re-triggers.
	BulkAssignLimit int
}

// Result reports what one sweep pass did.
type Result struct {
	ExpiredCount       int
	AffectedTrackCount int
}

// Sweeper reverts lapsed leases and re-triggers assignment for the
// affected tracks.
type Sweeper struct {
	store    store.Store
	assigner *assign.Assigner
	cfg      Config
	logger   *slog.Logger

	now func() time.Time
}

// New creates a Sweeper.
func New(s store.Store, a *assign.Assigner, cfg Config, logger *slog.Logger) *Sweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.BulkAssignLimit <= 0 {
		cfg.BulkAssignLimit = 50
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{store: s, assigner: a, cfg: cfg, logger: logger, now: time.Now}
}

// Sweep expires all lapsed leases (their intents move to expired, the
// lease rows are deleted) in bounded chunks, then re-runs assignment
// for each distinct affected track so freed slots are backfilled
// immediately. Re-assignment failures are logged, not fatal: the next
// pass retries.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var res Result
	affected := make(map[string]bool)
	now := s.now().UTC()

	for {
		leases, err := s.store.ListExpiredLeases(ctx, now, s.cfg.BatchSize)
		if err != nil {
			return res, err
		}
		if len(leases) == 0 {
			break
		}

		if err := s.store.ExpireLeases(ctx, leases); err != nil {
			return res, err
		}
		res.ExpiredCount += len(leases)
		for _, l := range leases {
			affected[l.TrackID] = true
		}

		if len(leases) < s.cfg.BatchSize {
			break
		}
	}

	res.AffectedTrackCount = len(affected)
	if len(affected) > 0 {
		s.reassign(ctx, affected)
	}

	if res.ExpiredCount > 0 {
		s.logger.Info("sweep reclaimed leases",
			"expired", res.ExpiredCount, "tracks", res.AffectedTrackCount)
	}
	return res, nil
}

// reassign backfills the affected tracks with bounded parallelism. Each
// call takes the same per-track lock as any other trigger; the sweep is
// not special-cased.
func (s *Sweeper) reassign(ctx context.Context, trackIDs map[string]bool) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for trackID := range trackIDs {
		g.Go(func() error {
			if _, err := s.assigner.Assign(gctx, trackID); err != nil {
				s.logger.Error("reassign after expiry failed", "track", trackID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// BulkAssign is the periodic safety net: it re-triggers assignment for
// the most recent assignable tracks, picking up tracks that missed a
// webhook or gained new eligible reviewers since the last attempt.
func (s *Sweeper) BulkAssign(ctx context.Context) (int, error) {
	tracks, err := s.store.ListTracks(ctx, store.TrackListFilter{
		Statuses: []models.TrackStatus{models.TrackStatusQueued, models.TrackStatusInProgress},
		Limit:    s.cfg.BulkAssignLimit,
	})
	if err != nil {
		return 0, err
	}

	assigned := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	results := make([]int, len(tracks))
	for i, t := range tracks {
		g.Go(func() error {
			n, err := s.assigner.Assign(gctx, t.ID)
			if err != nil {
				s.logger.Error("bulk assign failed", "track", t.ID, "error", err)
				return nil
			}
			results[i] = n
			return nil
		})
	}
	_ = g.Wait()

	for _, n := range results {
		assigned += n
	}
	return assigned, nil
}

// SetNow overrides the sweeper's clock. Test hook.
func (s *Sweeper) SetNow(now func() time.Time) { s.now = now }
