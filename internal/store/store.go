package store

import (
	"context"
	"time"

	"github.com/wavecrit/wavecrit/internal/models"
)

// TrackListFilter specifies filters for listing tracks.
type TrackListFilter struct {
	ArtistID string
	Statuses []models.TrackStatus
	Package  models.Package
	Limit    int
}

// AssignPair couples the lease and intent inserted for one selected
// candidate. The two rows are written in the same transaction.
type AssignPair struct {
	Lease  *models.Lease
	Intent *models.ReviewIntent
}

// Store defines the persistence interface for wavecrit.
type Store interface {
	// Categories
	UpsertCategory(ctx context.Context, c *models.CategoryTag) error
	ListCategories(ctx context.Context) ([]*models.CategoryTag, error)

	// Tracks
	CreateTrack(ctx context.Context, t *models.Track) error
	GetTrack(ctx context.Context, id string) (*models.Track, error)
	ListTracks(ctx context.Context, filter TrackListFilter) ([]*models.Track, error)
	UpdateTrack(ctx context.Context, t *models.Track) error

	// Reviewers
	CreateReviewer(ctx context.Context, r *models.Reviewer) error
	GetReviewer(ctx context.Context, id string) (*models.Reviewer, error)
	ListReviewers(ctx context.Context) ([]*models.Reviewer, error)
	UpdateReviewer(ctx context.Context, r *models.Reviewer) error

	// Artists
	CreateArtist(ctx context.Context, a *models.Artist) error
	GetArtist(ctx context.Context, id string) (*models.Artist, error)
	ListArtists(ctx context.Context) ([]*models.Artist, error)
	UpdateArtist(ctx context.Context, a *models.Artist) error

	// Leases
	ListTrackLeases(ctx context.Context, trackID string) ([]*models.Lease, error)
	ListCandidateQueue(ctx context.Context, candidateID string, now time.Time) ([]*models.Lease, error)
	ListExpiredLeases(ctx context.Context, now time.Time, limit int) ([]*models.Lease, error)
	DeleteLease(ctx context.Context, trackID, candidateID string) error
	AssignBatch(ctx context.Context, pairs []AssignPair) (int, error)
	ExpireLeases(ctx context.Context, leases []*models.Lease) error

	// Review intents
	GetIntent(ctx context.Context, id string) (*models.ReviewIntent, error)
	ListTrackIntents(ctx context.Context, trackID string) ([]*models.ReviewIntent, error)
	UpdateIntent(ctx context.Context, ri *models.ReviewIntent) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
