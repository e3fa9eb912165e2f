package assign

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecrit/wavecrit/internal/models"
)

func TestComplete_ReleasesLeaseAndAdvancesTrack(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedReviewer(t, s, "rev_1", models.TierStandard, 4.0)
	tr := seedTrack(t, s, models.PackageStandard, 1)

	n, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)

	ri, err := a.Complete(ctx, intents[0].ID, "great mixdown", 5)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusCompleted, ri.Status)
	assert.Equal(t, "great mixdown", ri.Feedback)
	assert.Equal(t, 5, ri.Score)
	require.NotNil(t, ri.CompletedAt)

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	assert.Empty(t, leases)

	got, err := s.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedReviews)
	assert.Equal(t, models.TrackStatusCompleted, got.Status)
}

func TestComplete_FinishedIntentRejected(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedReviewer(t, s, "rev_1", models.TierStandard, 4.0)
	tr := seedTrack(t, s, models.PackageStandard, 1)

	_, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)

	_, err = a.Complete(ctx, intents[0].ID, "solid", 4)
	require.NoError(t, err)

	_, err = a.Complete(ctx, intents[0].ID, "again", 5)
	assert.ErrorIs(t, err, ErrIntentFinished)

	_, err = a.Skip(ctx, intents[0].ID)
	assert.ErrorIs(t, err, ErrIntentFinished)

	// The double call did not move the counter twice.
	got, err := s.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedReviews)
}

func TestSkip_FreesSlotWithoutCounting(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedReviewer(t, s, "rev_1", models.TierStandard, 4.0)
	seedReviewer(t, s, "rev_2", models.TierStandard, 4.0)
	tr := seedTrack(t, s, models.PackageStandard, 1)

	_, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	skipper := intents[0].HolderID()

	ri, err := a.Skip(ctx, intents[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.IntentStatusSkipped, ri.Status)

	got, err := s.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	assert.Zero(t, got.CompletedReviews, "skip must not count as a completion")

	// The freed slot goes to the other reviewer, never the skipper.
	n, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.NotEqual(t, skipper, leases[0].HolderID())
}

// Completions racing assignment triggers must never push a track past
// its requested count: the lease release and the counter bump are one
// atomic step from any Assign caller's point of view.
func TestComplete_ConcurrentAssignNeverOverfills(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		seedReviewer(t, s, fmt.Sprintf("rev_%d", i), models.TierStandard, 4.0)
	}
	tr := seedTrack(t, s, models.PackageStandard, 3)

	n, err := a.Assign(ctx, tr.ID)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 3)

	var wg sync.WaitGroup
	for _, ri := range intents {
		wg.Add(1)
		go func(intentID string) {
			defer wg.Done()
			_, err := a.Complete(ctx, intentID, "done", 4)
			assert.NoError(t, err)
		}(ri.ID)
	}
	// Assignment triggers landing mid-completion, like the sweep
	// ticker or a webhook retry.
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := a.Assign(ctx, tr.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetTrack(ctx, tr.ID)
	require.NoError(t, err)
	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	finalIntents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, got.CompletedReviews)
	assert.LessOrEqual(t, got.CompletedReviews+len(leases), got.RequestedReviews,
		"completed plus active leases must never exceed requested")
	assert.Empty(t, leases)
	assert.Len(t, finalIntents, 3, "no extra review may be commissioned for a finished track")
	assert.Equal(t, models.TrackStatusCompleted, got.Status)
}
