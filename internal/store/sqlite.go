package store

import (
	"context"
	"database/sql"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func (s Store) sqlitePath() string {
	return filepath.Join(s.Dir, "photomaker.sqlite")
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// The CLI and the TUI may run at the same time; WAL plus busy_timeout keeps them from
	// tripping over "database is locked".
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prefs (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			created_at_unixms INTEGER NOT NULL,
			server TEXT NOT NULL,
			catalog TEXT NOT NULL,
			state TEXT NOT NULL,
			files INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			error TEXT,
			results_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at_unixms);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}
