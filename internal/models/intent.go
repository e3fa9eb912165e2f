package models

import "time"

// IntentStatus tracks a review obligation through its lifecycle.
type IntentStatus string

const (
	IntentStatusAssigned   IntentStatus = "assigned"
	IntentStatusInProgress IntentStatus = "in_progress"
	IntentStatusCompleted  IntentStatus = "completed"
	IntentStatusExpired    IntentStatus = "expired"
	IntentStatusSkipped    IntentStatus = "skipped"
)

// Terminal reports whether the status is an end state. Terminal intents
// keep the candidate out of re-eligibility for the same track.
func (s IntentStatus) Terminal() bool {
	return s == IntentStatusCompleted || s == IntentStatusExpired || s == IntentStatusSkipped
}

// ReviewIntent records one candidate's obligation to review one track.
// Created alongside a Lease in status assigned; becomes the review
// record once feedback is submitted. Kept after lease expiry for audit.
type ReviewIntent struct {
	ID          string
	TrackID     string
	ReviewerID  string
	ArtistID    string
	Status      IntentStatus
	Feedback    string
	Score       int // 1-5 rating the reviewer gave the track, 0 until completed
	AssignedAt  time.Time
	CompletedAt *time.Time
}

// HolderID returns the candidate the intent belongs to.
func (ri *ReviewIntent) HolderID() string {
	if ri.ReviewerID != "" {
		return ri.ReviewerID
	}
	return ri.ArtistID
}
