// Package archive persists inference runs: round records, fitted posterior
// models, and run metadata, backed by SQLite.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SchemaVersion is the current schema version.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite archive.
const schemaV1 = `
-- One row per inference run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    rounds INTEGER NOT NULL,
    simulations_per_round INTEGER NOT NULL,
    seed INTEGER NOT NULL,
    observation TEXT NOT NULL,  -- JSON array
    config TEXT                 -- JSON snapshot of the run configuration
);

-- Accumulated dataset, one row per round
CREATE TABLE IF NOT EXISTS round_records (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    round INTEGER NOT NULL,
    proposal_tag TEXT NOT NULL,
    theta TEXT NOT NULL,         -- JSON array of rows
    observations TEXT NOT NULL,  -- JSON array of rows
    PRIMARY KEY (run_id, round)
);
CREATE INDEX IF NOT EXISTS idx_round_records_run ON round_records(run_id);

-- Fitted posterior models, one row per round
CREATE TABLE IF NOT EXISTS posteriors (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    round INTEGER NOT NULL,
    model TEXT NOT NULL,  -- JSON-serialized conditional density
    PRIMARY KEY (run_id, round)
);

-- Schema version
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the archive schema if it does not exist and records
// the schema version.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_version ORDER BY version DESC LIMIT 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		_, err = db.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`,
			SchemaVersion, time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("recording schema version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("reading schema version: %w", err)
	case version > SchemaVersion:
		return fmt.Errorf("archive schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	return nil
}
