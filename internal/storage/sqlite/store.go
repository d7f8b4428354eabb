// Package sqlite implements the Keepsake record store on an on-device
// SQLite database via the CGO-free modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/keepsake-app/keepsake/internal/storage"
	"github.com/keepsake-app/keepsake/pkg/types"
)

// Ensure *Store satisfies the full store contract at compile time.
var _ storage.Store = (*Store)(nil)

// Store implements storage.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) a SQLite database at dsn and initializes
// the schema. Opening is idempotent: every statement in the schema is
// IF NOT EXISTS. Use ":memory:" for an ephemeral store in tests.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: open %s: %v", storage.ErrStorage, dsn, err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors; WAL mode lets
	// readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: sqlite: %s: %v", storage.ErrStorage, pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: sqlite: create schema: %v", storage.ErrStorage, err)
	}

	return &Store{db: db}, nil
}

// GetDB returns the underlying database connection. Used by the backup
// tooling and tests for direct operations.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

// Close flushes the WAL into the main database file and releases resources.
// The TRUNCATE checkpoint removes the -shm and -wal files so another process
// can open the database without encountering stale WAL state.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		log.Printf("sqlite: WAL checkpoint on close failed (non-fatal): %v", err)
	}
	return s.db.Close()
}

const memoryColumns = `
	id, content, content_type, created_at,
	latitude, longitude, location_name,
	audio_uri, image_uri,
	link_url, link_title, link_preview,
	focus_tags, view_count, last_viewed_at
`

// Add persists a new memory, assigning an ID when none is set.
func (s *Store) Add(ctx context.Context, memory *types.Memory) (string, error) {
	if memory == nil {
		return "", fmt.Errorf("%w: memory is required", storage.ErrValidation)
	}

	if memory.ID == "" {
		memory.ID = uuid.New().String()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now().UTC()
	}
	memory.ViewCount = 0
	memory.LastViewedAt = nil

	if err := memory.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", storage.ErrValidation, err)
	}

	query := `
		INSERT INTO memories (` + memoryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		memory.ID,
		memory.Content,
		memory.ContentType,
		memory.CreatedAt.UTC(),
		nullableFloat(memory.Latitude),
		nullableFloat(memory.Longitude),
		nullableString(memory.LocationName),
		nullableString(memory.AudioURI),
		nullableString(memory.ImageURI),
		nullableString(memory.LinkURL),
		nullableString(memory.LinkTitle),
		nullableString(memory.LinkPreview),
		nullableString(memory.FocusTags),
		memory.ViewCount,
		nullableTime(memory.LastViewedAt),
	)
	if err != nil {
		return "", fmt.Errorf("%w: sqlite: add memory: %v", storage.ErrStorage, err)
	}

	return memory.ID, nil
}

// Get retrieves a memory by ID.
func (s *Store) Get(ctx context.Context, id string) (*types.Memory, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+memoryColumns+" FROM memories WHERE id = ?", id)

	memory, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: get memory: %v", storage.ErrStorage, err)
	}
	return memory, nil
}

// List retrieves memories ordered by created_at descending.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]types.Memory, error) {
	opts.Normalize()

	query := "SELECT " + memoryColumns + " FROM memories"
	var conditions []string
	var args []interface{}

	if opts.ContentType != "" {
		conditions = append(conditions, "content_type = ?")
		args = append(args, opts.ContentType)
	}
	if !opts.CreatedAfter.IsZero() {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, opts.CreatedAfter.UTC())
	}
	if !opts.CreatedBefore.IsZero() {
		conditions = append(conditions, "created_at < ?")
		args = append(args, opts.CreatedBefore.UTC())
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	query += " ORDER BY created_at DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: list memories: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// Update applies a partial patch to an existing memory.
// An empty patch is a no-op by contract.
func (s *Store) Update(ctx context.Context, id string, patch storage.MemoryUpdate) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}
	if patch.IsEmpty() {
		return nil
	}

	var sets []string
	var args []interface{}

	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if patch.FocusTags != nil {
		sets = append(sets, "focus_tags = ?")
		args = append(args, nullableString(*patch.FocusTags))
	}
	if patch.LocationName != nil {
		sets = append(sets, "location_name = ?")
		args = append(args, nullableString(*patch.LocationName))
	}
	if patch.LinkTitle != nil {
		sets = append(sets, "link_title = ?")
		args = append(args, nullableString(*patch.LinkTitle))
	}
	if patch.LinkPreview != nil {
		sets = append(sets, "link_preview = ?")
		args = append(args, nullableString(*patch.LinkPreview))
	}

	query := "UPDATE memories SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args = append(args, id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: sqlite: update memory: %v", storage.ErrStorage, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: sqlite: rows affected: %v", storage.ErrStorage, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a memory by ID. Deleting an absent ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM memories WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: sqlite: delete memory: %v", storage.ErrStorage, err)
	}
	return nil
}

// IncrementViewCount atomically increments view_count and sets
// last_viewed_at to the current UTC time.
func (s *Store) IncrementViewCount(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrValidation)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE memories SET view_count = view_count + 1, last_viewed_at = ? WHERE id = ?",
		time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%w: sqlite: increment view count: %v", storage.ErrStorage, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: sqlite: rows affected: %v", storage.ErrStorage, err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Count returns the total number of memories.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM memories").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: sqlite: count memories: %v", storage.ErrStorage, err)
	}
	return count, nil
}

// CountOnDate counts memories captured on the calendar date of day,
// bucketed in day's location.
func (s *Store) CountOnDate(ctx context.Context, day time.Time) (int, error) {
	start, end := dayBounds(day)

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM memories WHERE created_at >= ? AND created_at < ?",
		start, end).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: sqlite: count on date: %v", storage.ErrStorage, err)
	}
	return count, nil
}

// ListOnDate returns up to limit memories captured on the calendar date of
// day, newest first.
func (s *Store) ListOnDate(ctx context.Context, day time.Time, limit int) ([]types.Memory, error) {
	start, end := dayBounds(day)
	return s.List(ctx, storage.ListOptions{
		CreatedAfter:  start,
		CreatedBefore: end,
		Limit:         limit,
	})
}

// ListMostViewed returns up to limit memories with view_count > 0,
// ordered by view count descending.
func (s *Store) ListMostViewed(ctx context.Context, limit int) ([]types.Memory, error) {
	query := "SELECT " + memoryColumns + ` FROM memories
		WHERE view_count > 0
		ORDER BY view_count DESC, created_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: sqlite: list most viewed: %v", storage.ErrStorage, err)
	}
	defer rows.Close()

	return scanMemories(rows)
}

// ListRecent returns up to limit memories, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]types.Memory, error) {
	return s.List(ctx, storage.ListOptions{Limit: limit})
}

// dayBounds returns the [start, end) UTC instants covering the calendar date
// of day in day's own location. Timestamps are stored in UTC; bucketing
// happens against the caller's local day at query time.
func dayBounds(day time.Time) (time.Time, time.Time) {
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// scanner abstracts *sql.Row and *sql.Rows for scanMemory.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory reads one memory row in memoryColumns order.
func scanMemory(sc scanner) (*types.Memory, error) {
	var m types.Memory
	var latitude, longitude sql.NullFloat64
	var locationName, audioURI, imageURI sql.NullString
	var linkURL, linkTitle, linkPreview, focusTags sql.NullString
	var lastViewedAt sql.NullTime

	err := sc.Scan(
		&m.ID,
		&m.Content,
		&m.ContentType,
		&m.CreatedAt,
		&latitude,
		&longitude,
		&locationName,
		&audioURI,
		&imageURI,
		&linkURL,
		&linkTitle,
		&linkPreview,
		&focusTags,
		&m.ViewCount,
		&lastViewedAt,
	)
	if err != nil {
		return nil, err
	}

	if latitude.Valid {
		m.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		m.Longitude = &longitude.Float64
	}
	if locationName.Valid {
		m.LocationName = locationName.String
	}
	if audioURI.Valid {
		m.AudioURI = audioURI.String
	}
	if imageURI.Valid {
		m.ImageURI = imageURI.String
	}
	if linkURL.Valid {
		m.LinkURL = linkURL.String
	}
	if linkTitle.Valid {
		m.LinkTitle = linkTitle.String
	}
	if linkPreview.Valid {
		m.LinkPreview = linkPreview.String
	}
	if focusTags.Valid {
		m.FocusTags = focusTags.String
	}
	if lastViewedAt.Valid {
		t := lastViewedAt.Time
		m.LastViewedAt = &t
	}

	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

// scanMemories drains rows into a slice.
func scanMemories(rows *sql.Rows) ([]types.Memory, error) {
	var memories []types.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: sqlite: scan memory: %v", storage.ErrStorage, err)
		}
		memories = append(memories, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: sqlite: iterate memories: %v", storage.ErrStorage, err)
	}
	return memories, nil
}

// nullableTime converts a time pointer to sql.NullTime.
func nullableTime(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// nullableString converts a string to sql.NullString.
// An empty string is treated as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableFloat converts a float pointer to sql.NullFloat64.
func nullableFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
