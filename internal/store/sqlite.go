package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wavecrit/wavecrit/internal/models"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store using modernc.org/sqlite (pure Go, no CGO).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite only supports one concurrent writer. Limiting to a single
	// connection serializes all DB access through Go's connection pool,
	// preventing "database is locked" errors from concurrent triggers.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Set busy timeout so concurrent writes wait instead of failing immediately
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// boolToInt converts a bool to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullStr maps an empty string to NULL so partial unique indexes on
// (track, reviewer) and (track, artist) behave correctly.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// newULID generates a new ULID string.
func newULID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// Migrate runs all embedded SQL migration files in order.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	// Create migrations tracking table
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		filename TEXT PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	// Sort by filename
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Check if already applied
		var count int
		err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations WHERE filename = ?", name).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", name, err)
		}
		if count > 0 {
			continue
		}

		data, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, string(data)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}

		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (filename) VALUES (?)", name); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Categories ---

func (s *SQLiteStore) UpsertCategory(ctx context.Context, c *models.CategoryTag) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO categories (slug, name, parent_slug, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET name=excluded.name, parent_slug=excluded.parent_slug`,
		c.Slug, c.Name, nullStr(c.ParentSlug), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]*models.CategoryTag, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT slug, name, parent_slug, created_at FROM categories ORDER BY slug")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []*models.CategoryTag
	for rows.Next() {
		c := &models.CategoryTag{}
		var parent sql.NullString
		if err := rows.Scan(&c.Slug, &c.Name, &parent, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ParentSlug = parent.String
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// --- Tracks ---

func (s *SQLiteStore) CreateTrack(ctx context.Context, t *models.Track) error {
	if t.ID == "" {
		t.ID = newULID()
	}
	if t.Status == "" {
		t.Status = models.TrackStatusQueued
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tracks (id, artist_id, title, package, status, requested_reviews, completed_reviews, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.ArtistID, t.Title, string(t.Package), string(t.Status),
		t.RequestedReviews, t.CompletedReviews, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create track: %w", err)
	}

	for _, slug := range t.Tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO track_tags (track_id, slug) VALUES (?, ?)", t.ID, slug); err != nil {
			return fmt.Errorf("tag track: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	t := &models.Track{}
	var pkg, status string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, artist_id, title, package, status, requested_reviews, completed_reviews, created_at, updated_at
		FROM tracks WHERE id = ?`, id,
	).Scan(&t.ID, &t.ArtistID, &t.Title, &pkg, &status, &t.RequestedReviews, &t.CompletedReviews, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get track: %w", err)
	}
	t.Package = models.Package(pkg)
	t.Status = models.TrackStatus(status)

	tags, err := s.entityTags(ctx, "track_tags", "track_id", t.ID)
	if err != nil {
		return nil, err
	}
	t.Tags = tags
	return t, nil
}

func (s *SQLiteStore) ListTracks(ctx context.Context, filter TrackListFilter) ([]*models.Track, error) {
	query := `SELECT id, artist_id, title, package, status, requested_reviews, completed_reviews, created_at, updated_at FROM tracks`
	var conditions []string
	var args []any

	if filter.ArtistID != "" {
		conditions = append(conditions, "artist_id = ?")
		args = append(args, filter.ArtistID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		conditions = append(conditions, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.Package != "" {
		conditions = append(conditions, "package = ?")
		args = append(args, string(filter.Package))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tracks []*models.Track
	for rows.Next() {
		t := &models.Track{}
		var pkg, status string
		if err := rows.Scan(&t.ID, &t.ArtistID, &t.Title, &pkg, &status,
			&t.RequestedReviews, &t.CompletedReviews, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan track: %w", err)
		}
		t.Package = models.Package(pkg)
		t.Status = models.TrackStatus(status)
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, t := range tracks {
		tags, err := s.entityTags(ctx, "track_tags", "track_id", t.ID)
		if err != nil {
			return nil, err
		}
		t.Tags = tags
	}
	return tracks, nil
}

func (s *SQLiteStore) UpdateTrack(ctx context.Context, t *models.Track) error {
	t.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE tracks SET title=?, package=?, status=?, requested_reviews=?, completed_reviews=?, updated_at=?
		WHERE id=?`,
		t.Title, string(t.Package), string(t.Status), t.RequestedReviews, t.CompletedReviews, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return fmt.Errorf("update track: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("track not found: %s", t.ID)
	}
	return nil
}

// entityTags loads the tag slugs attached to one entity row.
func (s *SQLiteStore) entityTags(ctx context.Context, table, column, id string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT slug FROM %s WHERE %s = ? ORDER BY slug", table, column), id)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var tags []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, slug)
	}
	return tags, rows.Err()
}

// replaceEntityTags rewrites the tag set for one entity row inside tx.
func replaceEntityTags(ctx context.Context, tx *sql.Tx, table, column, id string, tags []string) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, column), id); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, slug := range tags {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT OR IGNORE INTO %s (%s, slug) VALUES (?, ?)", table, column), id, slug); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// --- Reviewers ---

func (s *SQLiteStore) CreateReviewer(ctx context.Context, r *models.Reviewer) error {
	if r.ID == "" {
		r.ID = newULID()
	}
	if r.Tier == "" {
		r.Tier = models.TierStandard
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO reviewers (id, email, display_name, tier, rating, ratings_count, completed_reviews, commendations, restricted, onboarding_complete, qualification_passed, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Email, r.DisplayName, string(r.Tier), r.Rating, r.RatingsCount, r.CompletedReviews, r.Commendations,
		boolToInt(r.Restricted), boolToInt(r.OnboardingComplete), boolToInt(r.QualificationPassed),
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create reviewer: %w", err)
	}

	for _, slug := range r.Tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO reviewer_tags (reviewer_id, slug) VALUES (?, ?)", r.ID, slug); err != nil {
			return fmt.Errorf("tag reviewer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	r := &models.Reviewer{}
	var tier string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, tier, rating, ratings_count, completed_reviews, commendations, restricted, onboarding_complete, qualification_passed, created_at, updated_at
		FROM reviewers WHERE id = ?`, id,
	).Scan(&r.ID, &r.Email, &r.DisplayName, &tier, &r.Rating, &r.RatingsCount, &r.CompletedReviews, &r.Commendations,
		&r.Restricted, &r.OnboardingComplete, &r.QualificationPassed, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("reviewer not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get reviewer: %w", err)
	}
	r.Tier = models.ReviewerTier(tier)

	tags, err := s.entityTags(ctx, "reviewer_tags", "reviewer_id", r.ID)
	if err != nil {
		return nil, err
	}
	r.Tags = tags
	return r, nil
}

func (s *SQLiteStore) ListReviewers(ctx context.Context) ([]*models.Reviewer, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, display_name, tier, rating, ratings_count, completed_reviews, commendations, restricted, onboarding_complete, qualification_passed, created_at, updated_at
		FROM reviewers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reviewers []*models.Reviewer
	for rows.Next() {
		r := &models.Reviewer{}
		var tier string
		if err := rows.Scan(&r.ID, &r.Email, &r.DisplayName, &tier, &r.Rating, &r.RatingsCount, &r.CompletedReviews, &r.Commendations,
			&r.Restricted, &r.OnboardingComplete, &r.QualificationPassed, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan reviewer: %w", err)
		}
		r.Tier = models.ReviewerTier(tier)
		reviewers = append(reviewers, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, r := range reviewers {
		tags, err := s.entityTags(ctx, "reviewer_tags", "reviewer_id", r.ID)
		if err != nil {
			return nil, err
		}
		r.Tags = tags
	}
	return reviewers, nil
}

func (s *SQLiteStore) UpdateReviewer(ctx context.Context, r *models.Reviewer) error {
	r.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE reviewers SET email=?, display_name=?, tier=?, rating=?, ratings_count=?, completed_reviews=?, commendations=?, restricted=?, onboarding_complete=?, qualification_passed=?, updated_at=?
		WHERE id=?`,
		r.Email, r.DisplayName, string(r.Tier), r.Rating, r.RatingsCount, r.CompletedReviews, r.Commendations,
		boolToInt(r.Restricted), boolToInt(r.OnboardingComplete), boolToInt(r.QualificationPassed),
		r.UpdatedAt, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reviewer: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("reviewer not found: %s", r.ID)
	}

	if err := replaceEntityTags(ctx, tx, "reviewer_tags", "reviewer_id", r.ID, r.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Artists ---

func (s *SQLiteStore) CreateArtist(ctx context.Context, a *models.Artist) error {
	if a.ID == "" {
		a.ID = newULID()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO artists (id, email, display_name, peer_reviews, peer_rating, onboarding_complete, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, a.DisplayName, a.PeerReviews, a.PeerRating,
		boolToInt(a.OnboardingComplete), a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create artist: %w", err)
	}

	for _, slug := range a.Tags {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO artist_tags (artist_id, slug) VALUES (?, ?)", a.ID, slug); err != nil {
			return fmt.Errorf("tag artist: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetArtist(ctx context.Context, id string) (*models.Artist, error) {
	a := &models.Artist{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, peer_reviews, peer_rating, onboarding_complete, created_at, updated_at
		FROM artists WHERE id = ?`, id,
	).Scan(&a.ID, &a.Email, &a.DisplayName, &a.PeerReviews, &a.PeerRating,
		&a.OnboardingComplete, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("artist not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get artist: %w", err)
	}

	tags, err := s.entityTags(ctx, "artist_tags", "artist_id", a.ID)
	if err != nil {
		return nil, err
	}
	a.Tags = tags
	return a, nil
}

func (s *SQLiteStore) ListArtists(ctx context.Context) ([]*models.Artist, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, display_name, peer_reviews, peer_rating, onboarding_complete, created_at, updated_at
		FROM artists ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var artists []*models.Artist
	for rows.Next() {
		a := &models.Artist{}
		if err := rows.Scan(&a.ID, &a.Email, &a.DisplayName, &a.PeerReviews, &a.PeerRating,
			&a.OnboardingComplete, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, a := range artists {
		tags, err := s.entityTags(ctx, "artist_tags", "artist_id", a.ID)
		if err != nil {
			return nil, err
		}
		a.Tags = tags
	}
	return artists, nil
}

func (s *SQLiteStore) UpdateArtist(ctx context.Context, a *models.Artist) error {
	a.UpdatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE artists SET email=?, display_name=?, peer_reviews=?, peer_rating=?, onboarding_complete=?, updated_at=?
		WHERE id=?`,
		a.Email, a.DisplayName, a.PeerReviews, a.PeerRating,
		boolToInt(a.OnboardingComplete), a.UpdatedAt, a.ID,
	)
	if err != nil {
		return fmt.Errorf("update artist: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("artist not found: %s", a.ID)
	}

	if err := replaceEntityTags(ctx, tx, "artist_tags", "artist_id", a.ID, a.Tags); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Leases ---

const leaseColumns = "id, track_id, reviewer_id, artist_id, priority, assigned_at, expires_at"

func scanLease(scanner interface{ Scan(...any) error }) (*models.Lease, error) {
	l := &models.Lease{}
	var reviewerID, artistID sql.NullString
	if err := scanner.Scan(&l.ID, &l.TrackID, &reviewerID, &artistID,
		&l.Priority, &l.AssignedAt, &l.ExpiresAt); err != nil {
		return nil, err
	}
	l.ReviewerID = reviewerID.String
	l.ArtistID = artistID.String
	return l, nil
}

func (s *SQLiteStore) listLeases(ctx context.Context, query string, args ...any) ([]*models.Lease, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var leases []*models.Lease
	for rows.Next() {
		l, err := scanLease(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, l)
	}
	return leases, rows.Err()
}

func (s *SQLiteStore) ListTrackLeases(ctx context.Context, trackID string) ([]*models.Lease, error) {
	return s.listLeases(ctx,
		"SELECT "+leaseColumns+" FROM leases WHERE track_id = ? ORDER BY assigned_at", trackID)
}

// ListCandidateQueue returns the candidate's live queue: non-expired
// leases ordered by priority desc, then assignment time asc.
func (s *SQLiteStore) ListCandidateQueue(ctx context.Context, candidateID string, now time.Time) ([]*models.Lease, error) {
	return s.listLeases(ctx,
		`SELECT `+leaseColumns+` FROM leases
		WHERE (reviewer_id = ? OR artist_id = ?) AND expires_at > ?
		ORDER BY priority DESC, assigned_at`,
		candidateID, candidateID, now.UTC())
}

func (s *SQLiteStore) ListExpiredLeases(ctx context.Context, now time.Time, limit int) ([]*models.Lease, error) {
	query := "SELECT " + leaseColumns + " FROM leases WHERE expires_at <= ? ORDER BY expires_at"
	args := []any{now.UTC()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.listLeases(ctx, query, args...)
}

func (s *SQLiteStore) DeleteLease(ctx context.Context, trackID, candidateID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM leases WHERE track_id = ? AND (reviewer_id = ? OR artist_id = ?)",
		trackID, candidateID, candidateID)
	if err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}

// AssignBatch inserts lease+intent pairs in one transaction. Both
// inserts use OR IGNORE: a (track, candidate) collision means another
// trigger already assigned this pair, which is a silent skip rather
// than a batch failure. Returns the number of leases actually created.
func (s *SQLiteStore) AssignBatch(ctx context.Context, pairs []AssignPair) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, pair := range pairs {
		l, ri := pair.Lease, pair.Intent
		if l.ID == "" {
			l.ID = newULID()
		}
		if ri.ID == "" {
			ri.ID = newULID()
		}

		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO leases (id, track_id, reviewer_id, artist_id, priority, assigned_at, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.TrackID, nullStr(l.ReviewerID), nullStr(l.ArtistID), l.Priority, l.AssignedAt, l.ExpiresAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert lease: %w", err)
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			continue
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO review_intents (id, track_id, reviewer_id, artist_id, status, assigned_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			ri.ID, ri.TrackID, nullStr(ri.ReviewerID), nullStr(ri.ArtistID), string(ri.Status), ri.AssignedAt,
		); err != nil {
			return 0, fmt.Errorf("insert intent: %w", err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}
	return inserted, nil
}

// ExpireLeases reverts a batch of lapsed leases: each lease's intent
// moves to expired (if still assigned or in progress) and the lease row
// is deleted. One transaction per call so the sweeper can chunk.
func (s *SQLiteStore) ExpireLeases(ctx context.Context, leases []*models.Lease) error {
	if len(leases) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, l := range leases {
		if _, err := tx.ExecContext(ctx,
			`UPDATE review_intents SET status = ?
			WHERE track_id = ? AND (reviewer_id = ? OR artist_id = ?) AND status IN (?, ?)`,
			string(models.IntentStatusExpired), l.TrackID, l.HolderID(), l.HolderID(),
			string(models.IntentStatusAssigned), string(models.IntentStatusInProgress),
		); err != nil {
			return fmt.Errorf("expire intent: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM leases WHERE id = ?", l.ID); err != nil {
			return fmt.Errorf("delete expired lease: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// --- Review intents ---

const intentColumns = "id, track_id, reviewer_id, artist_id, status, feedback, score, assigned_at, completed_at"

func scanIntent(scanner interface{ Scan(...any) error }) (*models.ReviewIntent, error) {
	ri := &models.ReviewIntent{}
	var reviewerID, artistID sql.NullString
	var status string
	var completedAt sql.NullTime
	if err := scanner.Scan(&ri.ID, &ri.TrackID, &reviewerID, &artistID,
		&status, &ri.Feedback, &ri.Score, &ri.AssignedAt, &completedAt); err != nil {
		return nil, err
	}
	ri.ReviewerID = reviewerID.String
	ri.ArtistID = artistID.String
	ri.Status = models.IntentStatus(status)
	if completedAt.Valid {
		ri.CompletedAt = &completedAt.Time
	}
	return ri, nil
}

func (s *SQLiteStore) GetIntent(ctx context.Context, id string) (*models.ReviewIntent, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+intentColumns+" FROM review_intents WHERE id = ?", id)
	ri, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("review intent not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get review intent: %w", err)
	}
	return ri, nil
}

func (s *SQLiteStore) ListTrackIntents(ctx context.Context, trackID string) ([]*models.ReviewIntent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+intentColumns+" FROM review_intents WHERE track_id = ? ORDER BY assigned_at", trackID)
	if err != nil {
		return nil, fmt.Errorf("list review intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var intents []*models.ReviewIntent
	for rows.Next() {
		ri, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review intent: %w", err)
		}
		intents = append(intents, ri)
	}
	return intents, rows.Err()
}

func (s *SQLiteStore) UpdateIntent(ctx context.Context, ri *models.ReviewIntent) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE review_intents SET status=?, feedback=?, score=?, completed_at=? WHERE id=?",
		string(ri.Status), ri.Feedback, ri.Score, ri.CompletedAt, ri.ID,
	)
	if err != nil {
		return fmt.Errorf("update review intent: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("review intent not found: %s", ri.ID)
	}
	return nil
}
