package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/passage-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/passage-cli/internal/core/domain"
	"github.com/custodia-labs/passage-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to all
// metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.passage/data/passages.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".passage", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "passages.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// PassageStore returns a PassageStore interface backed by this store.
func (s *Store) PassageStore() driven.PassageStore {
	return &passageStore{store: s}
}

// IndexStatusStore returns an IndexStatusStore interface backed by this store.
func (s *Store) IndexStatusStore() driven.IndexStatusStore {
	return &indexStatusStore{store: s}
}

// SessionStore returns a SessionStore interface backed by this store.
func (s *Store) SessionStore() driven.SessionStore {
	return &sessionStore{store: s}
}

// SavedStore returns a SavedStore interface backed by this store.
func (s *Store) SavedStore() driven.SavedStore {
	return &savedStore{store: s}
}

// UsageStore returns a UsageStore interface backed by this store.
func (s *Store) UsageStore() driven.UsageStore {
	return &usageStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Passage Store ====================

// passageStore implements driven.PassageStore.
type passageStore struct {
	store *Store
}

var _ driven.PassageStore = (*passageStore)(nil)

const passageColumns = `id, text, source_file, file_type, page_number, line_number,
	chapter, section, document_title, author, start_char, end_char, embedding, extracted_at`

// CommitFile atomically replaces a file's passages and marks the file
// completed. Re-indexing a file never leaves stale passages behind.
func (s *passageStore) CommitFile(ctx context.Context, filePath string, passages []domain.Passage) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM passages WHERE source_file = ?", filePath); err != nil {
		return fmt.Errorf("clearing old passages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO passages (`+passageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, p := range passages {
		if _, err := stmt.ExecContext(ctx, p.ID, p.Text, p.SourceFile, string(p.FileType),
			nullInt(p.PageNumber), nullInt(p.LineNumber), nullString(p.Chapter),
			nullString(p.Section), nullString(p.DocumentTitle), nullString(p.Author),
			p.StartChar, p.EndChar, float32SliceToBytes(p.Embedding), p.ExtractedAt.UTC()); err != nil {
			return fmt.Errorf("saving passage: %w", err)
		}
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO indexing_status (file_path, status, indexed_at, error_message, created_at)
		VALUES (?, ?, ?, NULL, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			status = excluded.status,
			indexed_at = excluded.indexed_at,
			error_message = NULL
	`, filePath, string(domain.IndexStateCompleted), now, now); err != nil {
		return fmt.Errorf("marking file completed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Get retrieves a passage by id.
func (s *passageStore) Get(ctx context.Context, id string) (*domain.Passage, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+passageColumns+` FROM passages WHERE id = ?
	`, id)

	return scanPassageRow(row)
}

// List returns all passages.
func (s *passageStore) List(ctx context.Context) ([]domain.Passage, error) {
	return s.query(ctx, "SELECT "+passageColumns+" FROM passages ORDER BY extracted_at, id")
}

// ListEmbedded returns all passages that have an embedding vector.
func (s *passageStore) ListEmbedded(ctx context.Context) ([]domain.Passage, error) {
	return s.query(ctx, "SELECT "+passageColumns+" FROM passages WHERE embedding IS NOT NULL ORDER BY extracted_at, id")
}

func (s *passageStore) query(ctx context.Context, q string, args ...any) ([]domain.Passage, error) {
	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying passages: %w", err)
	}
	defer rows.Close()

	var passages []domain.Passage //nolint:prealloc // size unknown from query
	for rows.Next() {
		p, err := scanPassage(rows)
		if err != nil {
			return nil, err
		}
		passages = append(passages, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating passages: %w", err)
	}

	return passages, nil
}

// Random uniformly samples one passage from completed files, skipping
// excluded ids.
func (s *passageStore) Random(ctx context.Context, exclude map[string]struct{}) (*domain.Passage, error) {
	q := `
		SELECT ` + passageColumns + ` FROM passages
		WHERE source_file IN (
			SELECT file_path FROM indexing_status WHERE status = ?
		)
	`
	args := []any{string(domain.IndexStateCompleted)}

	if len(exclude) > 0 {
		placeholders := make([]string, 0, len(exclude))
		for id := range exclude {
			placeholders = append(placeholders, "?")
			args = append(args, id)
		}
		q += " AND id NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}

	q += " ORDER BY RANDOM() LIMIT 1"

	p, err := scanPassageRow(s.store.db.QueryRowContext(ctx, q, args...))
	if err == domain.ErrNotFound {
		return nil, domain.ErrNoPassagesAvailable
	}
	return p, err
}

// SetEmbedding lazily populates a passage's embedding vector.
func (s *passageStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE passages SET embedding = ? WHERE id = ?",
		float32SliceToBytes(embedding), id)
	if err != nil {
		return fmt.Errorf("setting embedding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the number of stored passages.
func (s *passageStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM passages").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting passages: %w", err)
	}
	return count, nil
}

// ==================== Index Status Store ====================

// indexStatusStore implements driven.IndexStatusStore.
type indexStatusStore struct {
	store *Store
}

var _ driven.IndexStatusStore = (*indexStatusStore)(nil)

// Get retrieves the status row for a file.
func (s *indexStatusStore) Get(ctx context.Context, filePath string) (*domain.IndexingStatus, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_path, status, indexed_at, error_message, created_at
		FROM indexing_status WHERE file_path = ?
	`, filePath)

	var status domain.IndexingStatus
	var state string
	var indexedAt sql.NullTime
	var errorMessage sql.NullString
	if err := row.Scan(&status.FilePath, &state, &indexedAt, &errorMessage, &status.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning indexing status: %w", err)
	}

	status.State = domain.IndexState(state)
	if indexedAt.Valid {
		status.IndexedAt = indexedAt.Time
	}
	status.ErrorMessage = errorMessage.String

	return &status, nil
}

// Upsert registers a newly discovered file as pending, leaving an
// existing row untouched.
func (s *indexStatusStore) Upsert(ctx context.Context, filePath string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO indexing_status (file_path, status, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file_path) DO NOTHING
	`, filePath, string(domain.IndexStatePending), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("registering file: %w", err)
	}
	return nil
}

// SetState transitions a file's state.
func (s *indexStatusStore) SetState(ctx context.Context, filePath string, state domain.IndexState, errorMessage string) error {
	var indexedAt sql.NullTime
	if state == domain.IndexStateCompleted {
		indexedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO indexing_status (file_path, status, indexed_at, error_message, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(file_path) DO UPDATE SET
			status = excluded.status,
			indexed_at = excluded.indexed_at,
			error_message = excluded.error_message
	`, filePath, string(state), indexedAt, nullString(errorMessage), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("setting indexing state: %w", err)
	}
	return nil
}

// Pending returns up to limit files awaiting indexing, in discovery order.
func (s *indexStatusStore) Pending(ctx context.Context, limit int) ([]string, error) {
	q := `
		SELECT file_path FROM indexing_status
		WHERE status = ? ORDER BY created_at, file_path
	`
	args := []any{string(domain.IndexStatePending)}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying pending files: %w", err)
	}
	defer rows.Close()

	var paths []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("scanning file path: %w", err)
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pending files: %w", err)
	}

	return paths, nil
}

// Progress returns per-state file counts.
func (s *indexStatusStore) Progress(ctx context.Context) (domain.IndexingProgress, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM indexing_status GROUP BY status")
	if err != nil {
		return domain.IndexingProgress{}, fmt.Errorf("querying progress: %w", err)
	}
	defer rows.Close()

	var progress domain.IndexingProgress
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return domain.IndexingProgress{}, fmt.Errorf("scanning progress: %w", err)
		}
		switch domain.IndexState(state) {
		case domain.IndexStatePending:
			progress.Pending = count
		case domain.IndexStateIndexing:
			progress.Indexing = count
		case domain.IndexStateCompleted:
			progress.Completed = count
		case domain.IndexStateFailed:
			progress.Failed = count
		}
	}

	if err := rows.Err(); err != nil {
		return domain.IndexingProgress{}, fmt.Errorf("iterating progress: %w", err)
	}

	return progress, nil
}

// ==================== Session Store ====================

// sessionStore implements driven.SessionStore.
type sessionStore struct {
	store *Store
}

var _ driven.SessionStore = (*sessionStore)(nil)

// RecordShown appends a passage to a date's session record.
func (s *sessionStore) RecordShown(ctx context.Context, date string, passageID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO session_history (id, session_date, passage_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_date, passage_id) DO NOTHING
	`, uuid.New().String(), date, passageID, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("recording session passage: %w", err)
	}
	return nil
}

// ShownSince returns ids of passages shown on or after the cutoff date.
func (s *sessionStore) ShownSince(ctx context.Context, cutoffDate string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT DISTINCT passage_id FROM session_history WHERE session_date >= ?
	`, cutoffDate)
	if err != nil {
		return nil, fmt.Errorf("querying session history: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning passage id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating session history: %w", err)
	}

	return ids, nil
}

// Clear removes all session history.
func (s *sessionStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM session_history"); err != nil {
		return fmt.Errorf("clearing session history: %w", err)
	}
	return nil
}

// ==================== Saved Store ====================

// savedStore implements driven.SavedStore.
type savedStore struct {
	store *Store
}

var _ driven.SavedStore = (*savedStore)(nil)

// Save adds a passage to the saved collection.
func (s *savedStore) Save(ctx context.Context, passageID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO saved_passages (id, passage_id, saved_at)
		VALUES (?, ?, ?)
	`, uuid.New().String(), passageID, time.Now().UTC())

	if err != nil {
		return fmt.Errorf("saving passage: %w", err)
	}
	return nil
}

// List returns saved passage ids, most recent first.
func (s *savedStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx,
		"SELECT passage_id FROM saved_passages ORDER BY saved_at DESC, id")
	if err != nil {
		return nil, fmt.Errorf("querying saved passages: %w", err)
	}
	defer rows.Close()

	var ids []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning saved passage: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating saved passages: %w", err)
	}

	return ids, nil
}

// ==================== Usage Store ====================

// usageStore implements driven.UsageStore.
type usageStore struct {
	store *Store
}

var _ driven.UsageStore = (*usageStore)(nil)

// Record logs an action, optionally tied to a passage.
func (s *usageStore) Record(ctx context.Context, action string, passageID string) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO usage_events (id, action, passage_id, created_at)
		VALUES (?, ?, ?, ?)
	`, uuid.New().String(), action, nullString(passageID), time.Now().UTC())

	if err != nil {
		return fmt.Errorf("recording usage event: %w", err)
	}
	return nil
}

// ==================== Helper Functions ====================

// scanPassage scans a passage from *sql.Rows.
func scanPassage(rows *sql.Rows) (*domain.Passage, error) {
	var p domain.Passage
	var fileType string
	var pageNumber, lineNumber sql.NullInt64
	var chapter, section, title, author sql.NullString
	var embeddingBlob []byte

	if err := rows.Scan(&p.ID, &p.Text, &p.SourceFile, &fileType, &pageNumber, &lineNumber,
		&chapter, &section, &title, &author, &p.StartChar, &p.EndChar,
		&embeddingBlob, &p.ExtractedAt); err != nil {
		return nil, fmt.Errorf("scanning passage: %w", err)
	}

	fillPassage(&p, fileType, pageNumber, lineNumber, chapter, section, title, author, embeddingBlob)
	return &p, nil
}

// scanPassageRow scans a passage from *sql.Row.
func scanPassageRow(row *sql.Row) (*domain.Passage, error) {
	var p domain.Passage
	var fileType string
	var pageNumber, lineNumber sql.NullInt64
	var chapter, section, title, author sql.NullString
	var embeddingBlob []byte

	if err := row.Scan(&p.ID, &p.Text, &p.SourceFile, &fileType, &pageNumber, &lineNumber,
		&chapter, &section, &title, &author, &p.StartChar, &p.EndChar,
		&embeddingBlob, &p.ExtractedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning passage: %w", err)
	}

	fillPassage(&p, fileType, pageNumber, lineNumber, chapter, section, title, author, embeddingBlob)
	return &p, nil
}

func fillPassage(p *domain.Passage, fileType string, pageNumber, lineNumber sql.NullInt64,
	chapter, section, title, author sql.NullString, embeddingBlob []byte) {
	p.FileType = domain.FileType(fileType)
	p.PageNumber = int(pageNumber.Int64)
	p.LineNumber = int(lineNumber.Int64)
	p.Chapter = chapter.String
	p.Section = section.String
	p.DocumentTitle = title.String
	p.Author = author.String
	p.Embedding = bytesToFloat32Slice(embeddingBlob)
}

// nullString converts an empty string to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullInt converts a zero value to NULL.
func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
