package assign

import (
	"context"
	"time"

	"github.com/wavecrit/wavecrit/internal/genre"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
)

// Claim is the pull-model allocation path: a peer artist self-selects
// an open peer-package track. It shares the per-track lock and the
// collision-tolerant insert with the push path, so the two strategies
// never interfere with each other's accounting.
func (a *Assigner) Claim(ctx context.Context, trackID, artistID string) error {
	a.locks.acquire(trackID)
	defer a.locks.release(trackID)

	track, err := a.store.GetTrack(ctx, trackID)
	if err != nil {
		return err
	}
	if track.Package != models.PackagePeer || !track.Assignable() {
		return ErrNotClaimable
	}
	if track.ArtistID == artistID {
		return ErrOwnTrack
	}

	artist, err := a.store.GetArtist(ctx, artistID)
	if err != nil {
		return err
	}
	if !artist.OnboardingComplete {
		return ErrNotOnboarded
	}

	leases, err := a.store.ListTrackLeases(ctx, trackID)
	if err != nil {
		return err
	}
	intents, err := a.store.ListTrackIntents(ctx, trackID)
	if err != nil {
		return err
	}
	for _, l := range leases {
		if l.HolderID() == artistID {
			return ErrAlreadyClaimed
		}
	}
	for _, ri := range intents {
		if ri.HolderID() == artistID {
			return ErrAlreadyClaimed
		}
	}

	if track.RequestedReviews-track.CompletedReviews-len(leases) <= 0 {
		return ErrTrackFull
	}

	policy := a.cfg.Packages[track.Package]
	now := a.now().UTC()
	inserted, err := a.store.AssignBatch(ctx, []store.AssignPair{a.pair(track, artist, policy, now)})
	if err != nil {
		return err
	}
	if inserted == 0 {
		// Lost a race with another trigger inside the insert itself.
		return ErrAlreadyClaimed
	}

	a.logger.Info("peer claim", "track", trackID, "artist", artistID)
	return nil
}

// ListClaimable returns open peer-package tracks the artist could claim
// right now: genre overlap with the artist's tags, open capacity, not
// the artist's own track, no prior involvement.
func (a *Assigner) ListClaimable(ctx context.Context, artistID string) ([]*models.Track, error) {
	artist, err := a.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, err
	}

	hier, err := genre.Load(ctx, a.store)
	if err != nil {
		return nil, err
	}

	tracks, err := a.store.ListTracks(ctx, store.TrackListFilter{
		Package:  models.PackagePeer,
		Statuses: []models.TrackStatus{models.TrackStatusQueued, models.TrackStatusInProgress},
	})
	if err != nil {
		return nil, err
	}

	var out []*models.Track
	for _, t := range tracks {
		if t.ArtistID == artistID {
			continue
		}
		if !hier.Overlaps(t.Tags, artist.Tags) {
			continue
		}
		open, err := a.hasCapacityFor(ctx, t, artistID)
		if err != nil {
			return nil, err
		}
		if open {
			out = append(out, t)
		}
	}
	return out, nil
}

func (a *Assigner) hasCapacityFor(ctx context.Context, track *models.Track, artistID string) (bool, error) {
	leases, err := a.store.ListTrackLeases(ctx, track.ID)
	if err != nil {
		return false, err
	}
	if track.RequestedReviews-track.CompletedReviews-len(leases) <= 0 {
		return false, nil
	}
	for _, l := range leases {
		if l.HolderID() == artistID {
			return false, nil
		}
	}
	intents, err := a.store.ListTrackIntents(ctx, track.ID)
	if err != nil {
		return false, err
	}
	for _, ri := range intents {
		if ri.HolderID() == artistID {
			return false, nil
		}
	}
	return true, nil
}

// SetNow overrides the assigner's clock. Test hook.
func (a *Assigner) SetNow(now func() time.Time) { a.now = now }
