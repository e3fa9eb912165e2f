package models

import "time"

// TrackStatus represents the lifecycle state of a submitted track.
type TrackStatus string

const (
	TrackStatusQueued     TrackStatus = "queued"
	TrackStatusInProgress TrackStatus = "in_progress"
	TrackStatusCompleted  TrackStatus = "completed"
	TrackStatusCancelled  TrackStatus = "cancelled"
)

// Package is the review package purchased (or chosen) for a track.
// The paid packages are push-assigned by the engine; the peer package
// is pull-based: artists claim open tracks themselves.
type Package string

const (
	PackageStandard Package = "standard"
	PackagePriority Package = "priority"
	PackageDeep     Package = "deep"
	PackagePeer     Package = "peer"
)

// PushAssigned reports whether the engine proactively assigns reviewers
// for this package, as opposed to waiting for peer claims.
func (p Package) PushAssigned() bool {
	return p == PackageStandard || p == PackagePriority || p == PackageDeep
}

// Track is a submitted work awaiting reviews.
type Track struct {
	ID               string
	ArtistID         string
	Title            string
	Package          Package
	Status           TrackStatus
	RequestedReviews int
	CompletedReviews int
	Tags             []string // category slugs
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Assignable reports whether the track is in a state the engine may
// still staff.
func (t *Track) Assignable() bool {
	return t.Status == TrackStatusQueued || t.Status == TrackStatusInProgress
}
