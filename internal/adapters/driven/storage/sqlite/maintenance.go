package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Backup writes a consistent snapshot of the database to destPath using
// VACUUM INTO. The destination must not already exist.
func (s *Store) Backup(ctx context.Context, destPath string) error {
	// VACUUM INTO takes a string literal, not a bind parameter, in some
	// SQLite builds. Escape single quotes to keep the path safe.
	escaped := strings.ReplaceAll(destPath, "'", "''")
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", escaped)); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// BackupName derives a timestamped backup file name inside dir.
func BackupName(dir string, now time.Time) string {
	return filepath.Join(dir, "cogsync-backup-"+now.UTC().Format("20060102-150405")+".db")
}

// PruneBackups deletes the oldest backup files in dir beyond keep. The
// timestamp in the file name orders the backups, so no stat calls are needed.
// It returns the paths that were removed.
func PruneBackups(dir string, keep int) ([]string, error) {
	if keep < 1 {
		keep = 1
	}
	matches, err := filepath.Glob(filepath.Join(dir, "cogsync-backup-*.db"))
	if err != nil {
		return nil, fmt.Errorf("listing backups: %w", err)
	}
	if len(matches) <= keep {
		return nil, nil
	}

	sort.Strings(matches)
	stale := matches[:len(matches)-keep]
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("pruning backup %s: %w", path, err)
		}
	}
	return stale, nil
}

// Vacuum reclaims free pages after large deletions.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming database: %w", err)
	}
	return nil
}
