package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavecrit/wavecrit/internal/genre"
	"github.com/wavecrit/wavecrit/internal/models"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func testHierarchy() *genre.Hierarchy {
	return genre.NewHierarchy([]*models.CategoryTag{
		{Slug: "electronic"},
		{Slug: "house", ParentSlug: "electronic"},
		{Slug: "techno", ParentSlug: "electronic"},
		{Slug: "jazz"},
	})
}

func testReviewer(id string, mutate ...func(*models.Reviewer)) *models.Reviewer {
	r := &models.Reviewer{
		ID:                  id,
		Email:               id + "@example.com",
		Tier:                models.TierStandard,
		Rating:              4.0,
		OnboardingComplete:  true,
		QualificationPassed: true,
		Tags:                []string{"house"},
		CreatedAt:           testNow.Add(-30 * 24 * time.Hour),
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func testTrack() *models.Track {
	return &models.Track{
		ID:               "trk_1",
		ArtistID:         "art_owner",
		Package:          models.PackageStandard,
		Status:           models.TrackStatusQueued,
		RequestedReviews: 3,
		Tags:             []string{"techno"},
	}
}

func newTestFilter(allow ...string) *Filter {
	return NewFilter(testHierarchy(), Config{
		MinAccountAge: 24 * time.Hour,
		AllowList:     allow,
	})
}

func TestFindCandidates_Predicate(t *testing.T) {
	f := newTestFilter()
	track := testTrack()

	pool := []models.Candidate{
		testReviewer("ok"),
		testReviewer("no-onboarding", func(r *models.Reviewer) { r.OnboardingComplete = false }),
		testReviewer("no-qualification", func(r *models.Reviewer) { r.QualificationPassed = false }),
		testReviewer("restricted", func(r *models.Reviewer) { r.Restricted = true }),
		testReviewer("too-new", func(r *models.Reviewer) { r.CreatedAt = testNow.Add(-time.Hour) }),
		testReviewer("wrong-genre", func(r *models.Reviewer) { r.Tags = []string{"jazz"} }),
	}

	got := f.FindCandidates(track, pool, nil, testNow)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].CandidateID())
}

func TestFindCandidates_GenreViaHierarchy(t *testing.T) {
	f := newTestFilter()
	track := testTrack() // tagged techno

	// A reviewer registered only for the broad parent still matches.
	pool := []models.Candidate{
		testReviewer("broad", func(r *models.Reviewer) { r.Tags = []string{"electronic"} }),
	}
	got := f.FindCandidates(track, pool, nil, testNow)
	assert.Len(t, got, 1)
}

func TestFindCandidates_ExcludesTakenAnyStatus(t *testing.T) {
	f := newTestFilter()
	track := testTrack()

	pool := []models.Candidate{testReviewer("done"), testReviewer("fresh")}
	taken := map[string]bool{"done": true} // covers completed, expired and skipped intents alike

	got := f.FindCandidates(track, pool, taken, testNow)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].CandidateID())
}

func TestFindCandidates_ArtistNeverReviewsOwnTrack(t *testing.T) {
	f := newTestFilter()
	track := testTrack()
	track.Package = models.PackagePeer

	owner := &models.Artist{
		ID:                 "art_owner",
		OnboardingComplete: true,
		Tags:               []string{"techno"},
		CreatedAt:          testNow.Add(-30 * 24 * time.Hour),
	}
	other := &models.Artist{
		ID:                 "art_other",
		OnboardingComplete: true,
		Tags:               []string{"techno"},
		CreatedAt:          testNow.Add(-30 * 24 * time.Hour),
	}

	got := f.FindCandidates(track, []models.Candidate{owner, other}, nil, testNow)
	require.Len(t, got, 1)
	assert.Equal(t, "art_other", got[0].CandidateID())
}

func TestFindCandidates_AllowListBypass(t *testing.T) {
	f := newTestFilter("qa-bot")
	track := testTrack()

	// Zero overlapping tags, account created a minute ago: still in.
	qa := testReviewer("qa-bot", func(r *models.Reviewer) {
		r.Tags = []string{"jazz"}
		r.CreatedAt = testNow.Add(-time.Minute)
	})
	pool := []models.Candidate{testReviewer("normal"), qa}

	got := f.FindCandidates(track, pool, nil, testNow)
	require.Len(t, got, 2)
	// Allow-listed identities rank ahead of everyone else.
	assert.Equal(t, "qa-bot", got[0].CandidateID())
	assert.Equal(t, "normal", got[1].CandidateID())
}

func TestFindCandidates_AllowListStillGated(t *testing.T) {
	f := newTestFilter("qa-bot")
	track := testTrack()

	// The bypass covers age and genre only, not onboarding.
	qa := testReviewer("qa-bot", func(r *models.Reviewer) { r.OnboardingComplete = false })
	got := f.FindCandidates(track, []models.Candidate{qa}, nil, testNow)
	assert.Empty(t, got)
}

func TestFindCandidates_Ranking(t *testing.T) {
	f := newTestFilter()
	track := testTrack()

	pool := []models.Candidate{
		testReviewer("std-low", func(r *models.Reviewer) { r.Rating = 3.5 }),
		testReviewer("pro", func(r *models.Reviewer) { r.Tier = models.TierPro; r.Rating = 3.0 }),
		testReviewer("std-high", func(r *models.Reviewer) { r.Rating = 4.8 }),
		testReviewer("std-high-commended", func(r *models.Reviewer) { r.Rating = 4.8; r.Commendations = 7 }),
	}

	got := f.FindCandidates(track, pool, nil, testNow)
	require.Len(t, got, 4)
	// Tier first, then rating, then commendations.
	assert.Equal(t, "pro", got[0].CandidateID())
	assert.Equal(t, "std-high-commended", got[1].CandidateID())
	assert.Equal(t, "std-high", got[2].CandidateID())
	assert.Equal(t, "std-low", got[3].CandidateID())
}
