// Package export persists a snapshot of an indexed dataset (its
// recording lists and consolidated metadata table) into a SQLite
// database for downstream tooling. The in-memory catalog stays the
// source of truth; a snapshot is write-once.
package export

import (
	"database/sql"
	"fmt"

	"github.com/ohler55/ojg/oj"
	_ "modernc.org/sqlite"

	"github.com/nicelab/nicebids/internal/bidspath"
	"github.com/nicelab/nicebids/internal/metadata"
)

const schema = `
CREATE TABLE IF NOT EXISTS recordings (
	path TEXT PRIMARY KEY,
	participant_id TEXT NOT NULL,
	ses TEXT NOT NULL,
	task TEXT NOT NULL,
	acq TEXT NOT NULL,
	run INTEGER NOT NULL,
	suffix TEXT NOT NULL,
	ext TEXT NOT NULL,
	derivative TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_recordings_key ON recordings(participant_id, ses, task, acq);

CREATE TABLE IF NOT EXISTS metadata (
	participant_id TEXT NOT NULL,
	ses TEXT NOT NULL,
	task TEXT NOT NULL,
	acq TEXT NOT NULL,
	run INTEGER NOT NULL,
	extra JSON,
	PRIMARY KEY (participant_id, ses, task, acq)
);
`

// Snapshot is the exportable view of a dataset.
type Snapshot struct {
	Files       []*bidspath.Entry
	Derivatives []*bidspath.Entry
	Metadata    *metadata.Table
}

// Write creates (or overwrites the tables of) a snapshot database at
// dbPath.
func Write(dbPath string, snap Snapshot) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	defer func() { _ = db.Close() }()

	// Snapshot writes are bulk and disposable on failure.
	if _, err := db.Exec("PRAGMA synchronous = OFF"); err != nil {
		return err
	}
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create snapshot schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM recordings"); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return err
	}

	if err := writeRecordings(tx, snap.Files, snap.Derivatives); err != nil {
		return err
	}
	if err := writeMetadata(tx, snap.Metadata); err != nil {
		return err
	}
	return tx.Commit()
}

func writeRecordings(tx *sql.Tx, files, derivatives []*bidspath.Entry) error {
	stmt, err := tx.Prepare(`INSERT INTO recordings
		(path, participant_id, ses, task, acq, run, suffix, ext, derivative)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare recordings insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range append(append([]*bidspath.Entry{}, files...), derivatives...) {
		_, err := stmt.Exec(e.Path, "sub-"+e.Sub, e.Ses, e.Task, e.Acq,
			e.EffectiveRun(), e.Suffix, e.Ext, e.Derivative)
		if err != nil {
			return fmt.Errorf("insert recording %s: %w", e.Path, err)
		}
	}
	return nil
}

func writeMetadata(tx *sql.Tx, table *metadata.Table) error {
	if table == nil {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO metadata
		(participant_id, ses, task, acq, run, extra) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare metadata insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, row := range table.Rows {
		extra := make(map[string]any)
		for _, col := range table.Columns {
			switch col {
			case "participant_id", "ses", "task", "acq", metadata.RunColumn:
			default:
				extra[col] = row[col]
			}
		}
		_, err := stmt.Exec(row["participant_id"], row["ses"], row["task"], row["acq"],
			row[metadata.RunColumn], oj.JSON(extra))
		if err != nil {
			return fmt.Errorf("insert metadata row %v: %w", row["participant_id"], err)
		}
	}
	return nil
}
