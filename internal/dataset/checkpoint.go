package dataset

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/methnet/pkg/types"
)

// Checkpoint is a per-record resume log kept beside the dataset file while
// a build is in flight. Records are stored as JSON keyed by PMCID; the run
// signature (query and keyword list) guards against resuming a different
// request.
type Checkpoint struct {
	db *sql.DB
}

// OpenCheckpoint opens or creates the log at path. When the stored
// signature differs from signature, previously logged records are
// discarded.
func OpenCheckpoint(ctx context.Context, path, signature string) (*Checkpoint, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening checkpoint: %w", err)
	}
	cp := &Checkpoint{db: db}
	if err := cp.createSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating checkpoint schema: %w", err)
	}
	if err := cp.claim(ctx, signature); err != nil {
		db.Close()
		return nil, err
	}
	return cp, nil
}

func (c *Checkpoint) createSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			pmcid TEXT NOT NULL UNIQUE,
			record TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// claim stamps the log with signature, clearing records logged under a
// different one.
func (c *Checkpoint) claim(ctx context.Context, signature string) error {
	var stored string
	err := c.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'signature'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("reading checkpoint signature: %w", err)
	case stored == signature:
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clearing checkpoint: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES ('signature', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, signature,
	); err != nil {
		return fmt.Errorf("writing checkpoint signature: %w", err)
	}
	return tx.Commit()
}

// Append logs a completed record. Logging the same PMCID twice keeps the
// latest copy.
func (c *Checkpoint) Append(ctx context.Context, rec types.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling record %s: %w", rec.PMCID, err)
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO records (pmcid, record) VALUES (?, ?)
		 ON CONFLICT(pmcid) DO UPDATE SET record = excluded.record`,
		rec.PMCID, string(data),
	)
	if err != nil {
		return fmt.Errorf("logging record %s: %w", rec.PMCID, err)
	}
	return nil
}

// Completed returns the logged records keyed by PMCID.
func (c *Checkpoint) Completed(ctx context.Context) (map[string]types.Record, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT pmcid, record FROM records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying checkpoint: %w", err)
	}
	defer rows.Close()

	done := make(map[string]types.Record)
	for rows.Next() {
		var pmcid, data string
		if err := rows.Scan(&pmcid, &data); err != nil {
			return nil, fmt.Errorf("scanning checkpoint row: %w", err)
		}
		var rec types.Record
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding record %s: %w", pmcid, err)
		}
		if rec.Refs == nil {
			rec.Refs = []string{}
		}
		done[pmcid] = rec
	}
	return done, rows.Err()
}

// Close releases the database connection.
func (c *Checkpoint) Close() error {
	return c.db.Close()
}

// RemoveCheckpoint deletes the log at path, including WAL side files. A
// missing log is not an error.
func RemoveCheckpoint(path string) error {
	var errs []error
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Signature identifies a build request for checkpoint matching.
func Signature(query string, keywords []string) string {
	return query + "\x00" + strings.Join(keywords, "\x00")
}
