package assign

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

func seedArtist(t *testing.T, s *store.SQLiteStore, id string, tags ...string) *models.Artist {
	t.Helper()
	a := &models.Artist{
		ID:                 id,
		Email:              id + "@example.com",
		DisplayName:        id,
		OnboardingComplete: true,
		Tags:               tags,
		CreatedAt:          time.Now().UTC().Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, s.CreateArtist(context.Background(), a))
	return a
}

func TestClaim_CreatesLeaseAndIntent(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedArtist(t, s, "art_peer", "techno")
	tr := seedTrack(t, s, models.PackagePeer, 3)

	require.NoError(t, a.Claim(ctx, tr.ID, "art_peer"))

	leases, err := s.ListTrackLeases(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "art_peer", leases[0].ArtistID)
	assert.Empty(t, leases[0].ReviewerID)
	assert.Equal(t, 5, leases[0].Priority)

	intents, err := s.ListTrackIntents(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, intents, 1)
	assert.Equal(t, models.IntentStatusAssigned, intents[0].Status)
}

func TestClaim_Rejections(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedArtist(t, s, "art_owner", "house")
	seedArtist(t, s, "art_peer", "techno")
	notOnboarded := &models.Artist{ID: "art_raw", Email: "raw@example.com", DisplayName: "raw"}
	require.NoError(t, s.CreateArtist(ctx, notOnboarded))

	peerTrack := seedTrack(t, s, models.PackagePeer, 1)
	paidTrack := seedTrack(t, s, models.PackageStandard, 3)

	assert.ErrorIs(t, a.Claim(ctx, paidTrack.ID, "art_peer"), ErrNotClaimable)
	assert.ErrorIs(t, a.Claim(ctx, peerTrack.ID, "art_owner"), ErrOwnTrack)
	assert.ErrorIs(t, a.Claim(ctx, peerTrack.ID, "art_raw"), ErrNotOnboarded)

	// Double claim by the same artist.
	require.NoError(t, a.Claim(ctx, peerTrack.ID, "art_peer"))
	assert.ErrorIs(t, a.Claim(ctx, peerTrack.ID, "art_peer"), ErrAlreadyClaimed)

	// Capacity of 1 is now exhausted for everyone else.
	seedArtist(t, s, "art_late", "techno")
	assert.ErrorIs(t, a.Claim(ctx, peerTrack.ID, "art_late"), ErrTrackFull)
}

func TestListClaimable(t *testing.T) {
	s := newTestStore(t)
	seedHierarchy(t, s)
	a := New(s, testConfig(), nil)
	ctx := context.Background()

	seedArtist(t, s, "art_peer", "techno")

	// Genre overlaps via the shared parent.
	open := seedTrack(t, s, models.PackagePeer, 3) // tagged house

	// Own track, wrong genre, and paid tracks are all excluded.
	own := &models.Track{ArtistID: "art_peer", Title: "own", Package: models.PackagePeer, RequestedReviews: 3, Tags: []string{"techno"}}
	require.NoError(t, s.CreateTrack(ctx, own))
	jazz := &models.Track{ArtistID: "art_owner", Title: "jazz", Package: models.PackagePeer, RequestedReviews: 3, Tags: []string{"jazz"}}
	require.NoError(t, s.CreateTrack(ctx, jazz))
	seedTrack(t, s, models.PackageDeep, 3)

	got, err := a.ListClaimable(ctx, "art_peer")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, open.ID, got[0].ID)

	// Once claimed it disappears from the list.
	require.NoError(t, a.Claim(ctx, open.ID, "art_peer"))
	got, err = a.ListClaimable(ctx, "art_peer")
	require.NoError(t, err)
	assert.Empty(t, got)
}
