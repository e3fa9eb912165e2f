package assign

import "errors"

var (
	// ErrUnknownPackage means a track references a package with no
	// configured policy. Assigning against it would be a silent policy
	// violation, so the transaction aborts instead.
	ErrUnknownPackage = errors.New("unknown package policy")

	// ErrNotClaimable means the track is not an open peer-package
	// track.
	ErrNotClaimable = errors.New("track is not claimable")

	// ErrOwnTrack means an artist tried to claim their own submission.
	ErrOwnTrack = errors.New("cannot claim own track")

	// ErrNotOnboarded means the claiming artist has not finished
	// onboarding.
	ErrNotOnboarded = errors.New("artist has not completed onboarding")

	// ErrTrackFull means the track has no remaining review capacity.
	ErrTrackFull = errors.New("track has no open review slots")

	// ErrAlreadyClaimed means the artist already holds (or held) an
	// assignment for this track.
	ErrAlreadyClaimed = errors.New("track already claimed by this artist")

	// ErrIntentFinished means the review intent is already in a
	// terminal state and cannot transition again.
	ErrIntentFinished = errors.New("review intent already finished")
)
