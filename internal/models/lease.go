package models

import "time"

// Lease is a time-boxed claim of one candidate on one track. Exactly
// one of ReviewerID/ArtistID is set. At most one lease exists per
// (track, candidate) pair; the store enforces this with a uniqueness
// constraint rather than a pre-check.
type Lease struct {
	ID         string
	TrackID    string
	ReviewerID string // paid reviewer, empty for peer leases
	ArtistID   string // peer artist, empty for paid leases
	Priority   int    // package-derived weight; higher surfaces first in queues
	AssignedAt time.Time
	ExpiresAt  time.Time
}

// HolderID returns the candidate holding the lease.
func (l *Lease) HolderID() string {
	if l.ReviewerID != "" {
		return l.ReviewerID
	}
	return l.ArtistID
}

// Expired reports whether the lease has lapsed as of now.
func (l *Lease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}
