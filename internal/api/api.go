// Package api exposes the engine to its collaborators: the submission
// flow and payment webhook trigger assignment, the review-submission
// flow transitions intents, the job runner hits sweep, and the
// reviewer-facing UI reads queue projections.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/wavecrit/wavecrit/internal/assign"
	"github.com/wavecrit/wavecrit/internal/models"
	"github.com/wavecrit/wavecrit/internal/store"
	"github.com/wavecrit/wavecrit/internal/sweep"
	"github.com/wavecrit/wavecrit/internal/tier"
)

// Server provides the REST API handlers.
type Server struct {
	store    store.Store
	assigner *assign.Assigner
	sweeper  *sweep.Sweeper
	recalc   *tier.Recalculator
	logger   *slog.Logger
}

// NewServer creates a new API server.
func NewServer(s store.Store, a *assign.Assigner, sw *sweep.Sweeper, rc *tier.Recalculator, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, assigner: a, sweeper: sw, recalc: rc, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/categories", s.listCategories)
	mux.HandleFunc("POST /api/v1/categories", s.createCategory)

	mux.HandleFunc("GET /api/v1/tracks", s.listTracks)
	mux.HandleFunc("POST /api/v1/tracks", s.createTrack)
	mux.HandleFunc("GET /api/v1/tracks/{id}", s.getTrack)
	mux.HandleFunc("POST /api/v1/tracks/{id}/assign", s.assignTrack)
	mux.HandleFunc("POST /api/v1/tracks/{id}/claim", s.claimTrack)

	mux.HandleFunc("POST /api/v1/reviewers", s.createReviewer)
	mux.HandleFunc("GET /api/v1/reviewers/{id}", s.getReviewer)
	mux.HandleFunc("GET /api/v1/reviewers/{id}/queue", s.reviewerQueue)
	mux.HandleFunc("POST /api/v1/reviewers/{id}/rate", s.rateReviewer)

	mux.HandleFunc("POST /api/v1/artists", s.createArtist)
	mux.HandleFunc("GET /api/v1/artists/{id}", s.getArtist)
	mux.HandleFunc("GET /api/v1/artists/{id}/queue", s.artistQueue)
	mux.HandleFunc("GET /api/v1/artists/{id}/claimable", s.listClaimable)

	mux.HandleFunc("POST /api/v1/intents/{id}/start", s.startIntent)
	mux.HandleFunc("POST /api/v1/intents/{id}/complete", s.completeIntent)
	mux.HandleFunc("POST /api/v1/intents/{id}/skip", s.skipIntent)

	mux.HandleFunc("POST /api/v1/sweep", s.runSweep)
	mux.HandleFunc("POST /api/v1/assign", s.runBulkAssign)

	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// --- Categories ---

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var c models.CategoryTag
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if c.Slug == "" || c.Name == "" {
		writeError(w, http.StatusBadRequest, "slug and name are required")
		return
	}
	if err := s.store.UpsertCategory(r.Context(), &c); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// --- Tracks ---

func (s *Server) listTracks(w http.ResponseWriter, r *http.Request) {
	filter := store.TrackListFilter{
		ArtistID: r.URL.Query().Get("artist_id"),
		Package:  models.Package(r.URL.Query().Get("package")),
	}
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Statuses = []models.TrackStatus{models.TrackStatus(status)}
	}
	tracks, err := s.store.ListTracks(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (s *Server) createTrack(w http.ResponseWriter, r *http.Request) {
	var tr models.Track
	if err := json.NewDecoder(r.Body).Decode(&tr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if tr.ArtistID == "" || tr.Title == "" {
		writeError(w, http.StatusBadRequest, "artist_id and title are required")
		return
	}
	if tr.RequestedReviews <= 0 {
		writeError(w, http.StatusBadRequest, "requested_reviews must be positive")
		return
	}
	if err := s.store.CreateTrack(r.Context(), &tr); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

func (s *Server) getTrack(w http.ResponseWriter, r *http.Request) {
	tr, err := s.store.GetTrack(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// assignTrack is the push trigger: the submission flow calls it when a
// track becomes payable, and the payment webhook calls it after
// checkout. Both land here; the per-track lock makes the race benign.
func (s *Server) assignTrack(w http.ResponseWriter, r *http.Request) {
	trackID := r.PathValue("id")
	n, err := s.assigner.Assign(r.Context(), trackID)
	if err != nil {
		s.logger.Error("assign failed", "track", trackID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": n})
}

func (s *Server) claimTrack(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ArtistID string
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.ArtistID == "" {
		writeError(w, http.StatusBadRequest, "artist_id is required")
		return
	}

	err := s.assigner.Claim(r.Context(), r.PathValue("id"), req.ArtistID)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "claimed"})
	case assign.ErrNotClaimable, assign.ErrOwnTrack, assign.ErrNotOnboarded:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case assign.ErrTrackFull, assign.ErrAlreadyClaimed:
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// --- Reviewers ---

func (s *Server) createReviewer(w http.ResponseWriter, r *http.Request) {
	var rev models.Reviewer
	if err := json.NewDecoder(r.Body).Decode(&rev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if rev.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := s.store.CreateReviewer(r.Context(), &rev); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

func (s *Server) getReviewer(w http.ResponseWriter, r *http.Request) {
	rev, err := s.store.GetReviewer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rev)
}

// queueEntry is the reviewer-facing queue projection: the lease plus
// enough track context to render a work list.
type queueEntry struct {
	Lease      *models.Lease
	TrackTitle string
	Package    models.Package
}

func (s *Server) candidateQueue(w http.ResponseWriter, r *http.Request, candidateID string) {
	leases, err := s.store.ListCandidateQueue(r.Context(), candidateID, time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]queueEntry, 0, len(leases))
	for _, l := range leases {
		entry := queueEntry{Lease: l}
		if tr, err := s.store.GetTrack(r.Context(), l.TrackID); err == nil {
			entry.TrackTitle = tr.Title
			entry.Package = tr.Package
		}
		entries = append(entries, entry)
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) reviewerQueue(w http.ResponseWriter, r *http.Request) {
	s.candidateQueue(w, r, r.PathValue("id"))
}

func (s *Server) artistQueue(w http.ResponseWriter, r *http.Request) {
	s.candidateQueue(w, r, r.PathValue("id"))
}

// rateReviewer records artist feedback on a delivered review: a rating
// folded into the reviewer's running average and an optional
// commendation. Either can move the reviewer across a tier boundary, so
// the recalculator runs after.
func (s *Server) rateReviewer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating  float64
		Commend bool
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Rating < 0 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 0 and 5")
		return
	}

	rev, err := s.store.GetReviewer(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if req.Rating > 0 {
		// Running average over the ratings actually submitted; the
		// count is persisted so ratings and completions can arrive in
		// any order without skewing the denominator.
		n := float64(rev.RatingsCount)
		rev.Rating = (rev.Rating*n + req.Rating) / (n + 1)
		rev.RatingsCount++
	}
	if req.Commend {
		rev.Commendations++
	}
	if err := s.store.UpdateReviewer(r.Context(), rev); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.recalc.Recompute(r.Context(), rev.ID); err != nil {
		s.logger.Error("tier recompute failed", "reviewer", rev.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, rev)
}

// --- Artists ---

func (s *Server) createArtist(w http.ResponseWriter, r *http.Request) {
	var a models.Artist
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if a.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := s.store.CreateArtist(r.Context(), &a); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) getArtist(w http.ResponseWriter, r *http.Request) {
	a, err := s.store.GetArtist(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (s *Server) listClaimable(w http.ResponseWriter, r *http.Request) {
	tracks, err := s.assigner.ListClaimable(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// --- Review intents ---

func (s *Server) startIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ri, err := s.store.GetIntent(ctx, r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if ri.Status != models.IntentStatusAssigned {
		writeError(w, http.StatusConflict, "intent is not in assigned state")
		return
	}

	ri.Status = models.IntentStatusInProgress
	if err := s.store.UpdateIntent(ctx, ri); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// First activity moves the track out of queued.
	if tr, err := s.store.GetTrack(ctx, ri.TrackID); err == nil && tr.Status == models.TrackStatusQueued {
		tr.Status = models.TrackStatusInProgress
		if err := s.store.UpdateTrack(ctx, tr); err != nil {
			s.logger.Error("track status update failed", "track", tr.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, ri)
}

// completeIntent delegates the state transition to the assigner so the
// intent update, lease release, and counter bump happen under the
// track's lock, serialized against any assignment trigger.
func (s *Server) completeIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Feedback string
		Score    int
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ctx := r.Context()
	if _, err := s.store.GetIntent(ctx, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	ri, err := s.assigner.Complete(ctx, r.PathValue("id"), req.Feedback, req.Score)
	if err != nil {
		if errors.Is(err, assign.ErrIntentFinished) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.bumpHolderCompleted(r, ri)

	writeJSON(w, http.StatusOK, ri)
}

// bumpHolderCompleted credits the completion to whoever held the
// intent, then recomputes paid reviewers' tiers.
func (s *Server) bumpHolderCompleted(r *http.Request, ri *models.ReviewIntent) {
	ctx := r.Context()
	if ri.ReviewerID != "" {
		rev, err := s.store.GetReviewer(ctx, ri.ReviewerID)
		if err != nil {
			s.logger.Error("reviewer lookup failed", "reviewer", ri.ReviewerID, "error", err)
			return
		}
		rev.CompletedReviews++
		if err := s.store.UpdateReviewer(ctx, rev); err != nil {
			s.logger.Error("reviewer update failed", "reviewer", rev.ID, "error", err)
			return
		}
		if err := s.recalc.Recompute(ctx, rev.ID); err != nil {
			s.logger.Error("tier recompute failed", "reviewer", rev.ID, "error", err)
		}
		return
	}

	a, err := s.store.GetArtist(ctx, ri.ArtistID)
	if err != nil {
		s.logger.Error("artist lookup failed", "artist", ri.ArtistID, "error", err)
		return
	}
	a.PeerReviews++
	if err := s.store.UpdateArtist(ctx, a); err != nil {
		s.logger.Error("artist update failed", "artist", a.ID, "error", err)
	}
}

// skipIntent is the reviewer bowing out; the assigner runs the
// transition under the track lock, then the freed slot is backfilled.
func (s *Server) skipIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := s.store.GetIntent(ctx, r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	ri, err := s.assigner.Skip(ctx, r.PathValue("id"))
	if err != nil {
		if errors.Is(err, assign.ErrIntentFinished) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Backfill the freed slot right away.
	if _, err := s.assigner.Assign(ctx, ri.TrackID); err != nil {
		s.logger.Error("reassign after skip failed", "track", ri.TrackID, "error", err)
	}
	writeJSON(w, http.StatusOK, ri)
}

// --- Sweep ---

func (s *Server) runSweep(w http.ResponseWriter, r *http.Request) {
	res, err := s.sweeper.Sweep(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// runBulkAssign is the job-runner target for the assignment safety net:
// re-trigger assignment on recent tracks with unfilled slots.
func (s *Server) runBulkAssign(w http.ResponseWriter, r *http.Request) {
	n, err := s.sweeper.BulkAssign(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": n})
}
