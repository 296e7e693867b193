// Package sqlite provides a unified SQLite-based implementation of the
// metadata store port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO, enabling easy cross-compilation. It implements multiple
// store interfaces through a single database connection:
//
//   - ConversionStore: Conversion record persistence
//   - StateStore: Per-run processing state persistence
//   - HashIndexStore: Content hash index persistence
//   - RunStore: Run lifecycle persistence
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory and applied on open.
//
// # Data Location
//
// By default, the database is stored at ~/.cogsync/cogsync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking
// provided by SQLite in WAL mode; writes hitting a busy database are retried.
package sqlite
