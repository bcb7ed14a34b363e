// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements every store interface
// through a single database connection:
//
//   - DocumentStore: source documents, their chunks and the similarity-search procedure
//   - LiveDocStore: chunks of documents being edited live
//   - ChatStore: chat messages and rolling summaries
//   - RulesStore: per-workspace rules
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.granted/data/granted.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Live-document replacement runs in one transaction, so
// readers never see a mix of old and new chunks.
package sqlite
