package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/cognicore/bayesnet/pkg/bayesnet/store"
)

// sqliteStore implements the Ledger interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite ledger. Writers share a single connection, which
// also keeps ":memory:" databases visible to every caller. File
// databases run in WAL mode.
func Open(ctx context.Context, dsn string) (store.Ledger, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if !isMemory(dsn) {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

func isMemory(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS ledger (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	query_key TEXT NOT NULL,
	algorithm INTEGER NOT NULL,
	probability REAL NOT NULL,
	sums INTEGER NOT NULL,
	multiplies INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	UNIQUE(run_id, query_key)
);

CREATE INDEX IF NOT EXISTS idx_ledger_run ON ledger(run_id, id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// Record inserts an entry; the first entry for a (run, key) pair wins
func (s *sqliteStore) Record(ctx context.Context, e store.Entry) error {
	const stmt = `
INSERT INTO ledger (id, run_id, query_key, algorithm, probability, sums, multiplies, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id, query_key) DO NOTHING;
`
	_, err := s.db.ExecContext(ctx, stmt,
		e.ID,
		e.RunID,
		e.Key,
		e.Algorithm,
		e.Probability,
		e.Sums,
		e.Multiplies,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// Lookup returns the entry recorded for key in a run
func (s *sqliteStore) Lookup(ctx context.Context, runID, key string) (store.Entry, bool, error) {
	const stmt = `
SELECT id, run_id, query_key, algorithm, probability, sums, multiplies, created_at
FROM ledger WHERE run_id = ? AND query_key = ?;
`
	e, err := scanEntry(s.db.QueryRowContext(ctx, stmt, runID, key))
	if err == sql.ErrNoRows {
		return store.Entry{}, false, nil
	}
	if err != nil {
		return store.Entry{}, false, err
	}
	return e, true, nil
}

// Entries returns the entries of a run ordered by ID
func (s *sqliteStore) Entries(ctx context.Context, runID string) ([]store.Entry, error) {
	const stmt = `
SELECT id, run_id, query_key, algorithm, probability, sums, multiplies, created_at
FROM ledger WHERE run_id = ? ORDER BY id;
`
	rows, err := s.db.QueryContext(ctx, stmt, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (store.Entry, error) {
	var (
		e       store.Entry
		created string
	)
	if err := row.Scan(&e.ID, &e.RunID, &e.Key, &e.Algorithm, &e.Probability, &e.Sums, &e.Multiplies, &created); err != nil {
		return store.Entry{}, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = ts
	}
	return e, nil
}
