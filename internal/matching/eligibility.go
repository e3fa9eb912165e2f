// Package matching decides which candidates may review a track and how
// the eligible set is carved up against the track's package policy.
package matching

import (
	"sort"
	"time"

	"github.com/wavecrit/wavecrit/internal/genre"
	"github.com/wavecrit/wavecrit/internal/models"
)

// Config carries the eligibility policy knobs.
type Config struct {
	// MinAccountAge is how old an account must be before it can be
	// matched. Guards against throwaway signups gaming assignments.
	MinAccountAge time.Duration

	// AllowList holds internal test identities that bypass the account
	// age and genre-overlap checks, used to guarantee coverage during
	// operational testing. Injected from configuration, never
	// hard-coded.
	AllowList []string
}

// Filter applies the eligibility predicate and ranks the survivors.
type Filter struct {
	hier  *genre.Hierarchy
	cfg   Config
	allow map[string]bool
}

// NewFilter creates a Filter over a hierarchy snapshot.
func NewFilter(hier *genre.Hierarchy, cfg Config) *Filter {
	allow := make(map[string]bool, len(cfg.AllowList))
	for _, id := range cfg.AllowList {
		allow[id] = true
	}
	return &Filter{hier: hier, cfg: cfg, allow: allow}
}

// FindCandidates returns the ranked eligible candidates for a track.
// taken is the set of candidate ids that already hold a lease or a
// review intent (any status, including skipped and expired) for this
// track; they never re-qualify. The call is read-only: ranking order is
// tier weight desc, rating desc, commendations desc, with allow-listed
// identities concatenated to the front and the whole list deduplicated
// by identity.
func (f *Filter) FindCandidates(track *models.Track, pool []models.Candidate, taken map[string]bool, now time.Time) []models.Candidate {
	var allowed, normal []models.Candidate

	for _, cand := range pool {
		if !f.eligible(track, cand, taken, now) {
			continue
		}
		if f.allow[cand.CandidateID()] {
			allowed = append(allowed, cand)
		} else {
			normal = append(normal, cand)
		}
	}

	rank(allowed)
	rank(normal)

	out := make([]models.Candidate, 0, len(allowed)+len(normal))
	seen := make(map[string]bool, len(allowed)+len(normal))
	for _, cand := range append(allowed, normal...) {
		if seen[cand.CandidateID()] {
			continue
		}
		seen[cand.CandidateID()] = true
		out = append(out, cand)
	}
	return out
}

func (f *Filter) eligible(track *models.Track, cand models.Candidate, taken map[string]bool, now time.Time) bool {
	if !cand.Onboarded() || !cand.Screened() {
		return false
	}
	// Artists never review their own tracks.
	if cand.CandidateKind() == models.KindArtist && cand.CandidateID() == track.ArtistID {
		return false
	}
	if taken[cand.CandidateID()] {
		return false
	}
	// Test identities skip the age and genre gates entirely.
	if f.allow[cand.CandidateID()] {
		return true
	}
	if cand.JoinedAt().After(now.Add(-f.cfg.MinAccountAge)) {
		return false
	}
	return f.hier.Overlaps(track.Tags, cand.CandidateTags())
}

// rank sorts in place: tier weight desc, rating desc, commendations desc.
func rank(cands []models.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.TierWeight() != b.TierWeight() {
			return a.TierWeight() > b.TierWeight()
		}
		if a.QualityRating() != b.QualityRating() {
			return a.QualityRating() > b.QualityRating()
		}
		return a.Commended() > b.Commended()
	})
}
