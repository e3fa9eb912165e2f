package assign

import (
	"context"
	"fmt"

	"github.com/wavecrit/wavecrit/internal/models"
)

// Complete finishes a review intent: the intent transitions to
// completed, its lease is released, and the track's completion counter
// advances. All of it runs under the track's lock so a concurrent
// Assign trigger sees either the pre-completion state (lease still
// held) or the post-completion state (counter bumped), never the gap in
// between where a freed slot looks unfilled.
func (a *Assigner) Complete(ctx context.Context, intentID, feedback string, score int) (*models.ReviewIntent, error) {
	// First read is only to learn the track; the authoritative re-read
	// happens inside the lock.
	ri, err := a.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	a.locks.acquire(ri.TrackID)
	defer a.locks.release(ri.TrackID)

	ri, err = a.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if ri.Status.Terminal() {
		return nil, ErrIntentFinished
	}

	now := a.now().UTC()
	ri.Status = models.IntentStatusCompleted
	ri.Feedback = feedback
	ri.Score = score
	ri.CompletedAt = &now
	if err := a.store.UpdateIntent(ctx, ri); err != nil {
		return nil, fmt.Errorf("complete intent %s: %w", intentID, err)
	}

	if err := a.store.DeleteLease(ctx, ri.TrackID, ri.HolderID()); err != nil {
		return nil, fmt.Errorf("release lease for intent %s: %w", intentID, err)
	}

	track, err := a.store.GetTrack(ctx, ri.TrackID)
	if err != nil {
		return nil, err
	}
	track.CompletedReviews++
	if track.CompletedReviews >= track.RequestedReviews {
		track.Status = models.TrackStatusCompleted
	} else if track.Status == models.TrackStatusQueued {
		track.Status = models.TrackStatusInProgress
	}
	if err := a.store.UpdateTrack(ctx, track); err != nil {
		return nil, fmt.Errorf("advance track %s: %w", ri.TrackID, err)
	}

	a.logger.Info("review completed",
		"track", ri.TrackID, "holder", ri.HolderID(), "completed", track.CompletedReviews, "requested", track.RequestedReviews)
	return ri, nil
}

// Skip is the reviewer bowing out. Terminal like expiry: the intent
// stays as a permanent record (so the skipper is never re-offered the
// track) and the lease frees up. The completion counter does not move.
// Callers backfill the freed slot with Assign after Skip returns; the
// lock is not reentrant, so the backfill cannot run inside it.
func (a *Assigner) Skip(ctx context.Context, intentID string) (*models.ReviewIntent, error) {
	ri, err := a.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	a.locks.acquire(ri.TrackID)
	defer a.locks.release(ri.TrackID)

	ri, err = a.store.GetIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if ri.Status.Terminal() {
		return nil, ErrIntentFinished
	}

	ri.Status = models.IntentStatusSkipped
	if err := a.store.UpdateIntent(ctx, ri); err != nil {
		return nil, fmt.Errorf("skip intent %s: %w", intentID, err)
	}
	if err := a.store.DeleteLease(ctx, ri.TrackID, ri.HolderID()); err != nil {
		return nil, fmt.Errorf("release lease for intent %s: %w", intentID, err)
	}

	a.logger.Info("review skipped", "track", ri.TrackID, "holder", ri.HolderID())
	return ri, nil
}
