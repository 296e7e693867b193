package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// exportVersion identifies the flat JSON layout. Bump when a field changes
// meaning, not when fields are added.
const exportVersion = 1

// Export is the flat JSON representation of the whole metadata store.
// Every table round-trips losslessly through this structure.
type Export struct {
	Version     int       `json:"version"`
	ExportedAt  time.Time `json:"export_timestamp"`
	Conversions []exportConversion `json:"conversions"`
	States      []exportState      `json:"processing_state"`
	HashIndex   []exportHashEntry  `json:"content_hash_index"`
	Runs        []exportRun        `json:"runs"`
}

type exportConversion struct {
	ConversionID     int64      `json:"conversion_id"`
	OriginalPath     string     `json:"original_file_path"`
	COGPath          string     `json:"cog_file_path,omitempty"`
	BlobPath         string     `json:"blob_path,omitempty"`
	ContentHash      string     `json:"content_hash,omitempty"`
	BlobURL          string     `json:"blob_url,omitempty"`
	OriginalSize     int64      `json:"original_file_size"`
	COGSize          int64      `json:"cog_file_size"`
	ConvertedAt      *time.Time `json:"conversion_timestamp,omitempty"`
	SourceModTime    *time.Time `json:"file_modification_time,omitempty"`
	Status           string     `json:"status"`
	DuplicateOfID    *int64     `json:"duplicate_of_conversion_id,omitempty"`
	DuplicateOfPath  string     `json:"duplicate_of_file_path,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	ErrorKind        string     `json:"error_type,omitempty"`
	FailedAt         *time.Time `json:"failed_timestamp,omitempty"`
	RunID            *int64     `json:"run_id,omitempty"`
	UploadedAt       *time.Time `json:"upload_timestamp,omitempty"`
	UploadContentHash string    `json:"upload_content_hash,omitempty"`
}

type exportState struct {
	FilePath    string     `json:"file_path"`
	ContentHash string     `json:"content_hash,omitempty"`
	ModTime     *time.Time `json:"modification_time,omitempty"`
	FileSize    int64      `json:"file_size"`
	Status      string     `json:"status"`
	ProcessedAt time.Time  `json:"processed_at"`
	RunID       int64      `json:"run_id"`
}

type exportHashEntry struct {
	ContentHash string    `json:"content_hash"`
	FilePath    string    `json:"file_path"`
	IndexedAt   time.Time `json:"indexed_at"`
}

type exportRun struct {
	RunID                int64      `json:"run_id"`
	StartTime            time.Time  `json:"start_time"`
	EndTime              *time.Time `json:"end_time,omitempty"`
	InputDirectory       string     `json:"input_directory,omitempty"`
	TotalFiles           int        `json:"total_files"`
	Successful           int        `json:"successful"`
	Failed               int        `json:"failed"`
	Skipped              int        `json:"skipped"`
	Retries              int        `json:"retries"`
	Uploaded             int        `json:"uploaded"`
	UploadFailed         int        `json:"upload_failed"`
	DuplicatesReferenced int        `json:"duplicates_referenced"`
	ConfigSnapshot       string     `json:"config_snapshot,omitempty"`
}

// ExportJSON writes every record family to w as a single JSON document.
func (s *Store) ExportJSON(ctx context.Context, w io.Writer) error {
	exp := Export{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
	}

	if err := s.exportConversions(ctx, &exp); err != nil {
		return err
	}
	if err := s.exportStates(ctx, &exp); err != nil {
		return err
	}
	if err := s.exportHashIndex(ctx, &exp); err != nil {
		return err
	}
	if err := s.exportRuns(ctx, &exp); err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(exp); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

func (s *Store) exportConversions(ctx context.Context, exp *Export) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT conversion_id, original_file_path, cog_file_path, blob_path,
			content_hash, blob_url, original_file_size, cog_file_size,
			conversion_timestamp, file_modification_time, status,
			duplicate_of_conversion_id, duplicate_of_file_path, error_message,
			error_type, failed_timestamp, run_id, upload_timestamp,
			upload_content_hash
		FROM conversions ORDER BY conversion_id
	`)
	if err != nil {
		return fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c exportConversion
		if err := rows.Scan(&c.ConversionID, &c.OriginalPath, &c.COGPath,
			&c.BlobPath, &c.ContentHash, &c.BlobURL, &c.OriginalSize,
			&c.COGSize, &c.ConvertedAt, &c.SourceModTime, &c.Status,
			&c.DuplicateOfID, &c.DuplicateOfPath, &c.ErrorMessage,
			&c.ErrorKind, &c.FailedAt, &c.RunID, &c.UploadedAt,
			&c.UploadContentHash); err != nil {
			return fmt.Errorf("scanning conversion: %w", err)
		}
		exp.Conversions = append(exp.Conversions, c)
	}
	return rows.Err()
}

func (s *Store) exportStates(ctx context.Context, exp *Export) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, content_hash, modification_time, file_size, status,
			processed_at, run_id
		FROM processing_state ORDER BY run_id, file_path
	`)
	if err != nil {
		return fmt.Errorf("querying processing state: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var st exportState
		if err := rows.Scan(&st.FilePath, &st.ContentHash, &st.ModTime,
			&st.FileSize, &st.Status, &st.ProcessedAt, &st.RunID); err != nil {
			return fmt.Errorf("scanning processing state: %w", err)
		}
		exp.States = append(exp.States, st)
	}
	return rows.Err()
}

func (s *Store) exportHashIndex(ctx context.Context, exp *Export) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT content_hash, file_path, indexed_at
		FROM content_hash_index ORDER BY content_hash, file_path
	`)
	if err != nil {
		return fmt.Errorf("querying hash index: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e exportHashEntry
		if err := rows.Scan(&e.ContentHash, &e.FilePath, &e.IndexedAt); err != nil {
			return fmt.Errorf("scanning hash index: %w", err)
		}
		exp.HashIndex = append(exp.HashIndex, e)
	}
	return rows.Err()
}

func (s *Store) exportRuns(ctx context.Context, exp *Export) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, start_time, end_time, input_directory, total_files,
			successful, failed, skipped, retries, uploaded, upload_failed,
			duplicates_referenced, config_snapshot
		FROM runs ORDER BY run_id
	`)
	if err != nil {
		return fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r exportRun
		if err := rows.Scan(&r.RunID, &r.StartTime, &r.EndTime,
			&r.InputDirectory, &r.TotalFiles, &r.Successful, &r.Failed,
			&r.Skipped, &r.Retries, &r.Uploaded, &r.UploadFailed,
			&r.DuplicatesReferenced, &r.ConfigSnapshot); err != nil {
			return fmt.Errorf("scanning run: %w", err)
		}
		exp.Runs = append(exp.Runs, r)
	}
	return rows.Err()
}

// ImportJSON loads an export document into the store, preserving IDs.
// Intended for restoring into an empty database; existing rows with
// clashing keys are replaced.
func (s *Store) ImportJSON(ctx context.Context, r io.Reader) error {
	var exp Export
	if err := json.NewDecoder(r).Decode(&exp); err != nil {
		return fmt.Errorf("decoding export: %w", err)
	}
	if exp.Version != exportVersion {
		return fmt.Errorf("unsupported export version %d", exp.Version)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Runs first so conversion and state foreign keys resolve.
	for _, r := range exp.Runs {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO runs
				(run_id, start_time, end_time, input_directory, total_files,
				successful, failed, skipped, retries, uploaded, upload_failed,
				duplicates_referenced, config_snapshot)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.RunID, r.StartTime, r.EndTime, r.InputDirectory, r.TotalFiles,
			r.Successful, r.Failed, r.Skipped, r.Retries, r.Uploaded,
			r.UploadFailed, r.DuplicatesReferenced, r.ConfigSnapshot); err != nil {
			return fmt.Errorf("importing run %d: %w", r.RunID, err)
		}
	}

	for _, c := range exp.Conversions {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO conversions
				(conversion_id, original_file_path, cog_file_path, blob_path,
				content_hash, blob_url, original_file_size, cog_file_size,
				conversion_timestamp, file_modification_time, status,
				duplicate_of_conversion_id, duplicate_of_file_path,
				error_message, error_type, failed_timestamp, run_id,
				upload_timestamp, upload_content_hash)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ConversionID, c.OriginalPath, c.COGPath, c.BlobPath,
			c.ContentHash, c.BlobURL, c.OriginalSize, c.COGSize,
			c.ConvertedAt, c.SourceModTime, c.Status, c.DuplicateOfID,
			c.DuplicateOfPath, c.ErrorMessage, c.ErrorKind, c.FailedAt,
			c.RunID, c.UploadedAt, c.UploadContentHash); err != nil {
			return fmt.Errorf("importing conversion %d: %w", c.ConversionID, err)
		}
	}

	for _, st := range exp.States {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO processing_state
				(file_path, content_hash, modification_time, file_size, status,
				processed_at, run_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, st.FilePath, st.ContentHash, st.ModTime, st.FileSize, st.Status,
			st.ProcessedAt, st.RunID); err != nil {
			return fmt.Errorf("importing state for %s: %w", st.FilePath, err)
		}
	}

	for _, e := range exp.HashIndex {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO content_hash_index
				(content_hash, file_path, indexed_at)
			VALUES (?, ?, ?)
		`, e.ContentHash, e.FilePath, e.IndexedAt); err != nil {
			return fmt.Errorf("importing hash entry %s: %w", e.ContentHash, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing import: %w", err)
	}
	return nil
}
