package models

import "time"

// ReviewerTier is a paid reviewer's quality classification.
type ReviewerTier string

const (
	TierStandard ReviewerTier = "standard"
	TierPro      ReviewerTier = "pro"
)

// Weight orders tiers for ranking: pro reviewers sort ahead of standard.
func (t ReviewerTier) Weight() int {
	if t == TierPro {
		return 1
	}
	return 0
}

// CandidateKind discriminates the two participant types that can hold a
// lease on a track.
type CandidateKind string

const (
	KindReviewer CandidateKind = "reviewer"
	KindArtist   CandidateKind = "artist"
)

// Candidate is the eligibility-relevant surface shared by paid
// reviewers and peer artists, so the filter and allocator run once over
// a mixed pool instead of being duplicated per variant.
type Candidate interface {
	CandidateID() string
	CandidateKind() CandidateKind
	CandidateTags() []string
	CandidateEmail() string
	Onboarded() bool
	// Screened covers the paid-only gates: qualification check passed
	// and not restricted. Peer artists have no such gates and always
	// pass.
	Screened() bool
	JoinedAt() time.Time
	TierWeight() int
	QualityRating() float64
	Commended() int
}

// Reviewer is a paid, tiered reviewer.
type Reviewer struct {
	ID                  string
	Email               string
	DisplayName         string
	Tier                ReviewerTier
	Rating              float64
	RatingsCount        int
	CompletedReviews    int
	Commendations       int
	Restricted          bool
	OnboardingComplete  bool
	QualificationPassed bool
	Tags                []string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r *Reviewer) CandidateID() string          { return r.ID }
func (r *Reviewer) CandidateKind() CandidateKind { return KindReviewer }
func (r *Reviewer) CandidateTags() []string      { return r.Tags }
func (r *Reviewer) CandidateEmail() string       { return r.Email }
func (r *Reviewer) Onboarded() bool              { return r.OnboardingComplete }
func (r *Reviewer) Screened() bool               { return r.QualificationPassed && !r.Restricted }
func (r *Reviewer) JoinedAt() time.Time          { return r.CreatedAt }
func (r *Reviewer) TierWeight() int              { return r.Tier.Weight() }
func (r *Reviewer) QualityRating() float64       { return r.Rating }
func (r *Reviewer) Commended() int               { return r.Commendations }

// Artist is a marketplace artist. Artists act as peer reviewers on
// peer-package tracks and never review their own submissions.
type Artist struct {
	ID                 string
	Email              string
	DisplayName        string
	PeerReviews        int
	PeerRating         float64
	OnboardingComplete bool
	Tags               []string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a *Artist) CandidateID() string          { return a.ID }
func (a *Artist) CandidateKind() CandidateKind { return KindArtist }
func (a *Artist) CandidateTags() []string      { return a.Tags }
func (a *Artist) CandidateEmail() string       { return a.Email }
func (a *Artist) Onboarded() bool              { return a.OnboardingComplete }
func (a *Artist) Screened() bool               { return true }
func (a *Artist) JoinedAt() time.Time          { return a.CreatedAt }
func (a *Artist) TierWeight() int              { return 0 }
func (a *Artist) QualityRating() float64       { return a.PeerRating }
func (a *Artist) Commended() int               { return 0 }
