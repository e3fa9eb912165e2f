package sweep

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecrit/wavecrit/internal/assign"
	"github.com/wavecrit/wavecrit/internal/matching"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestEngine(t *testing.T, s *store.SQLiteStore) (*assign.Assigner, *Sweeper) {
	t.Helper()
	cfg := assign.Config{
		LeaseDuration: 48 * time.Hour,
		Packages: map[models.Package]assign.PackagePolicy{
			models.PackageStandard: {TopTierQuota: 0, Priority: 10},
			models.PackagePeer:     {TopTierQuota: 0, Priority: 5},
		},
		Matching: matching.Config{MinAccountAge: 24 * time.Hour},
	}
	a := assign.New(s, cfg, nil)
	sw := New(s, a, Config{BatchSize: 10, Concurrency: 2, BulkAssignLimit: 10}, nil)
	return a, sw
}

func seedWorld(t *testing.T, s *store.SQLiteStore, reviewerCount int) *models.Track {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.UpsertCategory(ctx, &models.CategoryTag{Slug: "electronic", Name: "Electronic"}))
	require.NoError(t, s.UpsertCategory(ctx, &models.CategoryTag{Slug: "house", Name: "House", ParentSlug: "electronic"}))

	for i := 0; i < reviewerCount; i++ {
		require.NoError(t, s.CreateReviewer(ctx, &models.Reviewer{
			ID:                  fmt.Sprintf("rev_%d", i),
			Email:               fmt.Sprintf("rev_%d@example.com", i),
			DisplayName:         fmt.Sprintf("rev_%d", i),
			OnboardingComplete:  true,
			QualificationPassed: true,
			Rating:              4.0,
			Tags:                []string{"house"},
			CreatedAt:           time.Now().UTC().Add(-30 * 24 * time.Hour),
		}))
	}

	tr := &models.Track{
		ArtistID:         "art_owner",
		Title:            "demo",
		Package:          models.PackageStandard,
		RequestedReviews: 1,
		Tags:             []string{"house"},
	}
	require.NoError(t, s.CreateTrack(ctx, tr))
	return tr
}

func TestSweep_NothingExpired(t *testing.T) {
	s := newTestStore(t)
	_, sw := newTestEngine(t, s)

	res, err := sw.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.ExpiredCount)
	assert.Zero(t, res.AffectedTrackCount)
}

func TestSweep_ExpiryConvergence(t *testing.T) {
	s := newTestStore(t)
	a, sw := newTestEngine(t, s)
	ctx := context.Background()

	tr := seedWorld(t, s, 2)

	n, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	firstHolder := leases[0].HolderID()

	// Run the sweep from 72h in the future: the lease has lapsed.
	future := time.Now().UTC().Add(72 * time.Hour)
	sw.SetNow(func() time.Time { return future })

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExpiredCount)
	assert.Equal(t, 1, res.AffectedTrackCount)

	// The old lease is gone, its intent is expired for audit, and a
	// replacement lease for a different reviewer exists.
	leases, err = s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.NotEqual(t, firstHolder, leases[0].HolderID())

	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 2)
	byHolder := make(map[string]models.IntentStatus)
	for _, ri := range intents {
		byHolder[ri.HolderID()] = ri.Status
	}
	assert.Equal(t, models.IntentStatusExpired, byHolder[firstHolder])
}

func TestSweep_NoReplacementPoolStaysEmpty(t *testing.T) {
	s := newTestStore(t)
	a, sw := newTestEngine(t, s)
	ctx := context.Background()

	tr := seedWorld(t, s, 1)

	_, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)

	future := time.Now().UTC().Add(72 * time.Hour)
	sw.SetNow(func() time.Time { return future })

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.ExpiredCount)

	// The only reviewer already burned their intent on this track;
	// nothing to backfill with until the pool grows.
	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, leases)
}

func TestSweep_ChunksAcrossBatches(t *testing.T) {
	s := newTestStore(t)
	a, sw := newTestEngine(t, s)
	sw.cfg.BatchSize = 2
	ctx := context.Background()

	seedWorld(t, s, 5)
	// Five single-slot tracks, each assigned once.
	var tracks []*models.Track
	for i := 0; i < 5; i++ {
		tr := &models.Track{
			ArtistID:         "art_owner",
			Title:            fmt.Sprintf("demo-%d", i),
			Package:          models.PackageStandard,
			RequestedReviews: 1,
			Tags:             []string{"house"},
		}
		require.NoError(t, s.CreateTrack(ctx, tr))
		tracks = append(tracks, tr)
	}
	for _, tr := range tracks {
		_, err := a.Assign(ctx, tr.ID)
		require.NoError(t, err)
	}

	future := time.Now().UTC().Add(72 * time.Hour)
	sw.SetNow(func() time.Time { return future })

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, res.ExpiredCount)
	assert.Equal(t, 5, res.AffectedTrackCount)
}

func TestBulkAssign_SafetyNet(t *testing.T) {
	s := newTestStore(t)
	_, sw := newTestEngine(t, s)
	ctx := context.Background()

	// A queued track that never got its webhook.
	tr := seedWorld(t, s, 3)

	n, err := sw.BulkAssign(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}
