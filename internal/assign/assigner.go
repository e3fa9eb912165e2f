// Package assign is the engine's write path: it turns an assignable
// track plus the current reviewer pool into lease and review-intent
// rows, exactly once per (track, candidate) pair no matter how many
// triggers race.
package assign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wavecrit/wavecrit/internal/genre"
	"github.com/wavecrit/wavecrit/internal/matching"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

// PackagePolicy is the per-package assignment policy.
type PackagePolicy struct {
	// TopTierQuota is the absolute minimum number of top-tier reviews
	// the package promises. Expressed as a count, not a percentage, to
	// avoid rounding ambiguity.
	TopTierQuota int

	// Priority is the lease weight; higher surfaces first in reviewer
	// queues.
	Priority int
}

// Config carries the engine's assignment policy.
type Config struct {
	LeaseDuration time.Duration
	Packages      map[models.Package]PackagePolicy
	Matching      matching.Config
}

// Assigner runs the assignment transaction for tracks.
type Assigner struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger
	locks  *lockTable

	// now is replaceable in tests.
	now func() time.Time
}

// New creates an Assigner.
func New(s store.Store, cfg Config, logger *slog.Logger) *Assigner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assigner{
		store:  s,
		cfg:    cfg,
		logger: logger,
		locks:  newLockTable(),
		now:    time.Now,
	}
}

// Assign staffs a track with reviewers up to its remaining capacity.
// Safe to call concurrently and repeatedly: callers racing on the same
// track serialize on a per-track lock and re-read fresh state, and the
// insert step tolerates uniqueness collisions. Policy no-ops (track not
// assignable, already full, pull-model package) return (0, nil).
// Returns the number of leases created; fewer than needed means the
// eligible pool was exhausted and a later trigger will fill the rest.
func (a *Assigner) Assign(ctx context.Context, trackID string) (int, error) {
	a.locks.acquire(trackID)
	defer a.locks.release(trackID)

	// Re-read inside the lock for a consistent view.
	track, err := a.store.GetTrack(ctx, trackID)
	if err != nil {
		return 0, err
	}

	// Branch on package policy first: pull-model tracks are staffed by
	// peer claims, never by push assignment.
	policy, ok := a.cfg.Packages[track.Package]
	if !ok {
		return 0, fmt.Errorf("track %s: %w: %q", trackID, ErrUnknownPackage, track.Package)
	}
	if !track.Package.PushAssigned() {
		a.logger.Debug("skip pull-model track", "track", trackID, "package", track.Package)
		return 0, nil
	}

	if !track.Assignable() {
		a.logger.Debug("skip unassignable track", "track", trackID, "status", track.Status)
		return 0, nil
	}

	leases, err := a.store.ListTrackLeases(ctx, trackID)
	if err != nil {
		return 0, err
	}
	intents, err := a.store.ListTrackIntents(ctx, trackID)
	if err != nil {
		return 0, err
	}

	demand := matching.Demand{
		Requested:    track.RequestedReviews,
		Completed:    track.CompletedReviews,
		ActiveLeases: len(leases),
		TopTierQuota: policy.TopTierQuota,
	}
	if demand.Needed() <= 0 {
		a.logger.Debug("track already full", "track", trackID)
		return 0, nil
	}

	hier, err := genre.Load(ctx, a.store)
	if err != nil {
		return 0, err
	}

	reviewers, err := a.store.ListReviewers(ctx)
	if err != nil {
		return 0, err
	}
	pool := make([]models.Candidate, len(reviewers))
	byID := make(map[string]*models.Reviewer, len(reviewers))
	for i, r := range reviewers {
		pool[i] = r
		byID[r.ID] = r
	}

	// Candidates already tied to this track (any intent status,
	// including skipped and expired) never re-qualify.
	taken := make(map[string]bool, len(leases)+len(intents))
	for _, l := range leases {
		taken[l.HolderID()] = true
	}
	for _, ri := range intents {
		taken[ri.HolderID()] = true
	}

	demand.AlreadyTopTier = countTopTier(leases, intents, byID)

	now := a.now().UTC()
	filter := matching.NewFilter(hier, a.cfg.Matching)
	ranked := filter.FindCandidates(track, pool, taken, now)
	selection := matching.Allocate(demand, ranked)
	if len(selection) == 0 {
		a.logger.Debug("no eligible candidates", "track", trackID, "needed", demand.Needed())
		return 0, nil
	}

	pairs := make([]store.AssignPair, len(selection))
	for i, cand := range selection {
		pairs[i] = a.pair(track, cand, policy, now)
	}

	inserted, err := a.store.AssignBatch(ctx, pairs)
	if err != nil {
		return 0, fmt.Errorf("assign track %s: %w", trackID, err)
	}

	a.logger.Info("assigned reviewers",
		"track", trackID, "needed", demand.Needed(), "selected", len(selection), "inserted", inserted)
	return inserted, nil
}

// pair builds the lease and intent rows for one selected candidate.
func (a *Assigner) pair(track *models.Track, cand models.Candidate, policy PackagePolicy, now time.Time) store.AssignPair {
	lease := &models.Lease{
		TrackID:    track.ID,
		Priority:   policy.Priority,
		AssignedAt: now,
		ExpiresAt:  now.Add(a.cfg.LeaseDuration),
	}
	intent := &models.ReviewIntent{
		TrackID:    track.ID,
		Status:     models.IntentStatusAssigned,
		AssignedAt: now,
	}
	if cand.CandidateKind() == models.KindArtist {
		lease.ArtistID = cand.CandidateID()
		intent.ArtistID = cand.CandidateID()
	} else {
		lease.ReviewerID = cand.CandidateID()
		intent.ReviewerID = cand.CandidateID()
	}
	return store.AssignPair{Lease: lease, Intent: intent}
}

// countTopTier counts active and completed top-tier assignments toward
// the package quota. Expired intents do not count: their slot was
// reclaimed.
func countTopTier(leases []*models.Lease, intents []*models.ReviewIntent, byID map[string]*models.Reviewer) int {
	n := 0
	for _, l := range leases {
		if r, ok := byID[l.ReviewerID]; ok && r.Tier == models.TierPro {
			n++
		}
	}
	for _, ri := range intents {
		if ri.Status != models.IntentStatusCompleted {
			continue
		}
		if r, ok := byID[ri.ReviewerID]; ok && r.Tier == models.TierPro {
			n++
		}
	}
	return n
}
