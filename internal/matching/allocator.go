package matching

import "github.com/wavecrit/wavecrit/internal/models"

// Demand describes how many slots a track still needs and how much of
// its top-tier quota is already satisfied. Computed by the caller from
// a consistent view of the track's leases and intents.
type Demand struct {
	Requested      int // track.RequestedReviews
	Completed      int // track.CompletedReviews
	ActiveLeases   int
	AlreadyTopTier int // active or completed top-tier assignments
	TopTierQuota   int // absolute minimum top-tier count for the package
}

// Needed returns how many new leases the track can still take.
func (d Demand) Needed() int {
	return d.Requested - d.Completed - d.ActiveLeases
}

// Allocate carves the final assignment set out of the ranked candidate
// list. A quota of slots is reserved for top-tier candidates first;
// reserved slots that cannot be filled (not enough top-tier supply)
// roll over to the general pool so the total still reaches Needed()
// whenever candidates exist. Returns fewer than Needed() only when the
// pool is exhausted, which is a partial fill, not an error.
func Allocate(d Demand, ranked []models.Candidate) []models.Candidate {
	needed := d.Needed()
	if needed <= 0 {
		return nil
	}

	quota := d.TopTierQuota
	if quota > d.Requested {
		quota = d.Requested
	}
	shortfall := quota - d.AlreadyTopTier
	if shortfall < 0 {
		shortfall = 0
	}
	reserve := shortfall
	if reserve > needed {
		reserve = needed
	}

	selected := make([]models.Candidate, 0, needed)
	chosen := make(map[string]bool, needed)

	// Reserved slots: top-tier candidates only, in rank order.
	for _, cand := range ranked {
		if len(selected) >= reserve {
			break
		}
		if cand.TierWeight() > 0 {
			selected = append(selected, cand)
			chosen[cand.CandidateID()] = true
		}
	}

	// Remainder (including any rolled-over reserve): best remaining
	// candidates regardless of tier.
	for _, cand := range ranked {
		if len(selected) >= needed {
			break
		}
		if chosen[cand.CandidateID()] {
			continue
		}
		selected = append(selected, cand)
		chosen[cand.CandidateID()] = true
	}

	return selected
}
