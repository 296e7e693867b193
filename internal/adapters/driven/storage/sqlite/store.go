package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/meridian-labs/cogsync-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
	"github.com/meridian-labs/cogsync-cli/internal/core/ports/driven"
)

// busyRetries bounds how often a write is re-attempted when another process
// holds the write lock longer than the busy timeout.
const busyRetries = 3

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified database path.
// If dbPath is empty, defaults to ~/.cogsync/cogsync.db.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".cogsync", "cogsync.db")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

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

// Conversions returns a ConversionStore interface backed by this store.
func (s *Store) Conversions() driven.ConversionStore {
	return &conversionStore{store: s}
}

// States returns a StateStore interface backed by this store.
func (s *Store) States() driven.StateStore {
	return &stateStore{store: s}
}

// HashIndex returns a HashIndexStore interface backed by this store.
func (s *Store) HashIndex() driven.HashIndexStore {
	return &hashIndexStore{store: s}
}

// Runs returns a RunStore interface backed by this store.
func (s *Store) Runs() driven.RunStore {
	return &runStore{store: s}
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

// isBusy reports whether err is SQLite's transient lock contention error.
func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// withBusyRetry re-runs fn when the database is briefly locked by another
// writer. The busy_timeout pragma handles most contention; this covers
// writers holding the lock longer than the timeout.
func withBusyRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		err = fn()
		if !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return err
}

// ==================== Conversion Store ====================

// conversionStore implements driven.ConversionStore.
type conversionStore struct {
	store *Store
}

var _ driven.ConversionStore = (*conversionStore)(nil)

// RecordConversion stores a completed conversion, its processing state, and
// its hash index entry in one transaction. A path that was converted before
// keeps its original conversion_id via the upsert.
func (s *conversionStore) RecordConversion(ctx context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error) {
	if err := rec.Validate(); err != nil {
		return 0, err
	}

	var id int64
	err := withBusyRetry(func() error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := upsertConversion(ctx, tx, rec); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT conversion_id FROM conversions WHERE original_file_path = ?",
			rec.OriginalPath).Scan(&id); err != nil {
			return fmt.Errorf("resolving conversion id: %w", err)
		}

		if state != nil {
			if err := upsertState(ctx, tx, state); err != nil {
				return err
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO content_hash_index (content_hash, file_path, indexed_at)
			VALUES (?, ?, ?)
			ON CONFLICT(content_hash, file_path) DO NOTHING
		`, rec.ContentHash, rec.OriginalPath, time.Now().UTC()); err != nil {
			return fmt.Errorf("indexing content hash: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// RecordFailure stores a failed attempt and its processing state.
// The hash index is left untouched; failed files own no artifact.
func (s *conversionStore) RecordFailure(ctx context.Context, rec *domain.ConversionRecord, state *domain.ProcessingState) (int64, error) {
	if rec.OriginalPath == "" {
		return 0, fmt.Errorf("%w: original path is empty", domain.ErrInvalidInput)
	}
	rec.Status = domain.StatusFailed
	if rec.FailedAt.IsZero() {
		rec.FailedAt = time.Now().UTC()
	}

	var id int64
	err := withBusyRetry(func() error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := upsertConversion(ctx, tx, rec); err != nil {
			return err
		}

		if err := tx.QueryRowContext(ctx,
			"SELECT conversion_id FROM conversions WHERE original_file_path = ?",
			rec.OriginalPath).Scan(&id); err != nil {
			return fmt.Errorf("resolving conversion id: %w", err)
		}

		if state != nil {
			if err := upsertState(ctx, tx, state); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	rec.ID = id
	return id, nil
}

// upsertConversion writes a record, preserving the conversion_id of any
// existing record for the same path.
func upsertConversion(ctx context.Context, tx *sql.Tx, rec *domain.ConversionRecord) error {
	var dupID any
	if rec.DuplicateOfID != nil {
		dupID = *rec.DuplicateOfID
	}
	var runID any
	if rec.RunID != nil {
		runID = *rec.RunID
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO conversions (
			original_file_path, cog_file_path, blob_path, content_hash, blob_url,
			original_file_size, cog_file_size, conversion_timestamp,
			file_modification_time, status, duplicate_of_conversion_id,
			duplicate_of_file_path, error_message, error_type, failed_timestamp,
			run_id, upload_timestamp, upload_content_hash
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(original_file_path) DO UPDATE SET
			cog_file_path = excluded.cog_file_path,
			blob_path = excluded.blob_path,
			content_hash = excluded.content_hash,
			blob_url = excluded.blob_url,
			original_file_size = excluded.original_file_size,
			cog_file_size = excluded.cog_file_size,
			conversion_timestamp = excluded.conversion_timestamp,
			file_modification_time = excluded.file_modification_time,
			status = excluded.status,
			duplicate_of_conversion_id = excluded.duplicate_of_conversion_id,
			duplicate_of_file_path = excluded.duplicate_of_file_path,
			error_message = excluded.error_message,
			error_type = excluded.error_type,
			failed_timestamp = excluded.failed_timestamp,
			run_id = excluded.run_id,
			upload_timestamp = excluded.upload_timestamp,
			upload_content_hash = excluded.upload_content_hash
	`, rec.OriginalPath, rec.COGPath, rec.BlobPath, rec.ContentHash, rec.BlobURL,
		rec.OriginalSize, rec.COGSize, nullTime(rec.ConvertedAt),
		nullTime(rec.SourceModTime), string(rec.Status), dupID,
		rec.DuplicateOfPath, rec.ErrorMessage, rec.ErrorKind, nullTime(rec.FailedAt),
		runID, nullTime(rec.UploadedAt), uploadHash(rec))
	if err != nil {
		return fmt.Errorf("saving conversion: %w", err)
	}
	return nil
}

// uploadHash returns the hash the uploaded object name was derived from.
func uploadHash(rec *domain.ConversionRecord) string {
	if rec.UploadedAt.IsZero() {
		return ""
	}
	return rec.ContentHash
}

// MarkDuplicate demotes the record at path to a reference to the canonical
// record. The demoted record keeps its own conversion_id.
func (s *conversionStore) MarkDuplicate(ctx context.Context, path string, canonical *domain.ConversionRecord) error {
	if canonical == nil || canonical.ID == 0 {
		return fmt.Errorf("%w: canonical record missing id", domain.ErrInvalidInput)
	}

	return withBusyRetry(func() error {
		res, err := s.store.db.ExecContext(ctx, `
			UPDATE conversions SET
				status = ?,
				duplicate_of_conversion_id = ?,
				duplicate_of_file_path = ?,
				blob_path = ?,
				blob_url = ?
			WHERE original_file_path = ?
		`, string(domain.StatusDuplicateReferenced), canonical.ID,
			canonical.OriginalPath, canonical.BlobPath, canonical.BlobURL, path)
		if err != nil {
			return fmt.Errorf("marking duplicate: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking affected rows: %w", err)
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

const conversionColumns = `
	conversion_id, original_file_path, cog_file_path, blob_path, content_hash,
	blob_url, original_file_size, cog_file_size, conversion_timestamp,
	file_modification_time, status, duplicate_of_conversion_id,
	duplicate_of_file_path, error_message, error_type, failed_timestamp,
	run_id, upload_timestamp`

// GetByPath retrieves the conversion record for an original path.
func (s *conversionStore) GetByPath(ctx context.Context, path string) (*domain.ConversionRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT"+conversionColumns+" FROM conversions WHERE original_file_path = ?", path)
	return scanConversion(row)
}

// CanonicalForHash returns the oldest completed conversion for the hash.
// Oldest-first keeps duplicate references stable across runs.
func (s *conversionStore) CanonicalForHash(ctx context.Context, hash string) (*domain.ConversionRecord, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT"+conversionColumns+` FROM conversions
		WHERE content_hash = ? AND status = ?
		ORDER BY conversion_id ASC LIMIT 1`, hash, string(domain.StatusCompleted))
	return scanConversion(row)
}

// List returns records filtered by status, newest first.
func (s *conversionStore) List(ctx context.Context, status domain.ConversionStatus, limit int) ([]*domain.ConversionRecord, error) {
	query := "SELECT" + conversionColumns + " FROM conversions"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY conversion_id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var records []*domain.ConversionRecord //nolint:prealloc // size unknown from query
	for rows.Next() {
		rec, err := scanConversionRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversions: %w", err)
	}

	return records, nil
}

// Statistics aggregates totals across all records and runs.
func (s *conversionStore) Statistics(ctx context.Context) (*domain.AggregateStats, error) {
	stats := &domain.AggregateStats{
		ByStatus: make(map[domain.ConversionStatus]int),
	}

	rows, err := s.store.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM conversions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("querying status counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		stats.ByStatus[domain.ConversionStatus(status)] = count
		stats.TotalConversions += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status counts: %w", err)
	}

	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns); err != nil {
		return nil, fmt.Errorf("counting runs: %w", err)
	}

	if err := s.store.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(original_file_size), 0), COALESCE(SUM(cog_file_size), 0)
		FROM conversions WHERE status = ?
	`, string(domain.StatusCompleted)).Scan(&stats.OriginalBytes, &stats.COGBytes); err != nil {
		return nil, fmt.Errorf("summing sizes: %w", err)
	}

	if err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT content_hash) FROM content_hash_index").Scan(&stats.UniqueHashes); err != nil {
		return nil, fmt.Errorf("counting hashes: %w", err)
	}

	return stats, nil
}

// ==================== State Store ====================

// stateStore implements driven.StateStore.
type stateStore struct {
	store *Store
}

var _ driven.StateStore = (*stateStore)(nil)

// Upsert stores or updates the state for (file_path, run_id).
func (s *stateStore) Upsert(ctx context.Context, state *domain.ProcessingState) error {
	return withBusyRetry(func() error {
		tx, err := s.store.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if err := upsertState(ctx, tx, state); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing transaction: %w", err)
		}
		return nil
	})
}

// upsertState writes a processing state row within a transaction.
func upsertState(ctx context.Context, tx *sql.Tx, state *domain.ProcessingState) error {
	if state.ProcessedAt.IsZero() {
		state.ProcessedAt = time.Now().UTC()
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO processing_state
			(file_path, content_hash, modification_time, file_size, status, processed_at, run_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_path, run_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			modification_time = excluded.modification_time,
			file_size = excluded.file_size,
			status = excluded.status,
			processed_at = excluded.processed_at
	`, state.FilePath, state.ContentHash, nullTime(state.ModTime),
		state.FileSize, string(state.Status), state.ProcessedAt, state.RunID)
	if err != nil {
		return fmt.Errorf("saving processing state: %w", err)
	}
	return nil
}

// Latest retrieves the most recent state for a path across all runs.
func (s *stateStore) Latest(ctx context.Context, path string) (*domain.ProcessingState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT file_path, content_hash, modification_time, file_size, status, processed_at, run_id
		FROM processing_state WHERE file_path = ?
		ORDER BY run_id DESC LIMIT 1
	`, path)

	var state domain.ProcessingState
	var status string
	var modTime, processedAt sql.NullTime
	if err := row.Scan(&state.FilePath, &state.ContentHash, &modTime,
		&state.FileSize, &status, &processedAt, &state.RunID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning processing state: %w", err)
	}

	state.Status = domain.ConversionStatus(status)
	if modTime.Valid {
		state.ModTime = modTime.Time
	}
	if processedAt.Valid {
		state.ProcessedAt = processedAt.Time
	}

	return &state, nil
}

// ==================== Hash Index Store ====================

// hashIndexStore implements driven.HashIndexStore.
type hashIndexStore struct {
	store *Store
}

var _ driven.HashIndexStore = (*hashIndexStore)(nil)

// Add records that path currently has the given content hash.
func (s *hashIndexStore) Add(ctx context.Context, hash, path string) error {
	return withBusyRetry(func() error {
		_, err := s.store.db.ExecContext(ctx, `
			INSERT INTO content_hash_index (content_hash, file_path, indexed_at)
			VALUES (?, ?, ?)
			ON CONFLICT(content_hash, file_path) DO NOTHING
		`, hash, path, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("indexing content hash: %w", err)
		}
		return nil
	})
}

// HasOther reports whether any path other than exclude carries the hash.
func (s *hashIndexStore) HasOther(ctx context.Context, hash, exclude string) (bool, error) {
	var count int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM content_hash_index
		WHERE content_hash = ? AND file_path != ?
	`, hash, exclude).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking hash index: %w", err)
	}
	return count > 0, nil
}

// Paths returns all paths indexed under the hash.
func (s *hashIndexStore) Paths(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT file_path FROM content_hash_index
		WHERE content_hash = ? ORDER BY file_path
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("querying hash index: %w", err)
	}
	defer rows.Close()

	var paths []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scanning hash index: %w", err)
		}
		paths = append(paths, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating hash index: %w", err)
	}

	return paths, nil
}

// ==================== Run Store ====================

// runStore implements driven.RunStore.
type runStore struct {
	store *Store
}

var _ driven.RunStore = (*runStore)(nil)

// Begin opens a new run and returns its ID.
func (s *runStore) Begin(ctx context.Context, inputDir, configSnapshot string) (int64, error) {
	if configSnapshot == "" {
		configSnapshot = "{}"
	}

	var id int64
	err := withBusyRetry(func() error {
		res, err := s.store.db.ExecContext(ctx, `
			INSERT INTO runs (start_time, input_directory, config_snapshot)
			VALUES (?, ?, ?)
		`, time.Now().UTC(), inputDir, configSnapshot)
		if err != nil {
			return fmt.Errorf("starting run: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("resolving run id: %w", err)
		}
		return nil
	})
	return id, err
}

// End closes the run, persisting its final statistics.
func (s *runStore) End(ctx context.Context, runID int64, stats domain.RunStats) error {
	return withBusyRetry(func() error {
		res, err := s.store.db.ExecContext(ctx, `
			UPDATE runs SET
				end_time = ?,
				total_files = ?,
				successful = ?,
				failed = ?,
				skipped = ?,
				retries = ?,
				uploaded = ?,
				upload_failed = ?,
				duplicates_referenced = ?
			WHERE run_id = ?
		`, time.Now().UTC(), stats.TotalFiles, stats.Successful, stats.Failed,
			stats.Skipped, stats.Retries, stats.Uploaded, stats.UploadFailed,
			stats.DuplicatesReferenced, runID)
		if err != nil {
			return fmt.Errorf("ending run: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking affected rows: %w", err)
		}
		if affected == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

const runColumns = `
	run_id, start_time, end_time, input_directory, total_files, successful,
	failed, skipped, retries, uploaded, upload_failed, duplicates_referenced,
	config_snapshot`

// Get retrieves a run by ID.
func (s *runStore) Get(ctx context.Context, runID int64) (*domain.Run, error) {
	row := s.store.db.QueryRowContext(ctx,
		"SELECT"+runColumns+" FROM runs WHERE run_id = ?", runID)
	return scanRun(row)
}

// List returns runs newest first.
func (s *runStore) List(ctx context.Context, limit int) ([]*domain.Run, error) {
	query := "SELECT" + runColumns + " FROM runs ORDER BY run_id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.Run //nolint:prealloc // size unknown from query
	for rows.Next() {
		run, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	return runs, nil
}

// ==================== Helper Functions ====================

// nullTime maps the zero time to NULL for storage.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversionFields(sc rowScanner) (*domain.ConversionRecord, error) {
	var rec domain.ConversionRecord
	var status string
	var dupID, runID sql.NullInt64
	var convertedAt, modTime, failedAt, uploadedAt sql.NullTime

	if err := sc.Scan(&rec.ID, &rec.OriginalPath, &rec.COGPath, &rec.BlobPath,
		&rec.ContentHash, &rec.BlobURL, &rec.OriginalSize, &rec.COGSize,
		&convertedAt, &modTime, &status, &dupID, &rec.DuplicateOfPath,
		&rec.ErrorMessage, &rec.ErrorKind, &failedAt, &runID, &uploadedAt); err != nil {
		return nil, err
	}

	rec.Status = domain.ConversionStatus(status)
	if dupID.Valid {
		rec.DuplicateOfID = &dupID.Int64
	}
	if runID.Valid {
		rec.RunID = &runID.Int64
	}
	if convertedAt.Valid {
		rec.ConvertedAt = convertedAt.Time
	}
	if modTime.Valid {
		rec.SourceModTime = modTime.Time
	}
	if failedAt.Valid {
		rec.FailedAt = failedAt.Time
	}
	if uploadedAt.Valid {
		rec.UploadedAt = uploadedAt.Time
	}

	return &rec, nil
}

// scanConversion scans a single conversion row.
func scanConversion(row *sql.Row) (*domain.ConversionRecord, error) {
	rec, err := scanConversionFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning conversion: %w", err)
	}
	return rec, nil
}

// scanConversionRows scans a conversion from *sql.Rows.
func scanConversionRows(rows *sql.Rows) (*domain.ConversionRecord, error) {
	rec, err := scanConversionFields(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning conversion: %w", err)
	}
	return rec, nil
}

func scanRunFields(sc rowScanner) (*domain.Run, error) {
	var run domain.Run
	var endTime sql.NullTime

	if err := sc.Scan(&run.ID, &run.StartedAt, &endTime, &run.InputDir,
		&run.Stats.TotalFiles, &run.Stats.Successful, &run.Stats.Failed,
		&run.Stats.Skipped, &run.Stats.Retries, &run.Stats.Uploaded,
		&run.Stats.UploadFailed, &run.Stats.DuplicatesReferenced,
		&run.ConfigSnapshot); err != nil {
		return nil, err
	}

	if endTime.Valid {
		run.EndedAt = endTime.Time
	}

	return &run, nil
}

// scanRun scans a single run row.
func scanRun(row *sql.Row) (*domain.Run, error) {
	run, err := scanRunFields(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}

// scanRunRows scans a run from *sql.Rows.
func scanRunRows(rows *sql.Rows) (*domain.Run, error) {
	run, err := scanRunFields(rows)
	if err != nil {
		return nil, fmt.Errorf("scanning run: %w", err)
	}
	return run, nil
}
