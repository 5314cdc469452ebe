package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Submission is one finished upload attempt as recorded locally.
type Submission struct {
	ID        string          `json:"id" yaml:"id"`
	CreatedAt time.Time       `json:"createdAt" yaml:"createdAt"`
	Server    string          `json:"server" yaml:"server"`
	Catalog   string          `json:"catalog" yaml:"catalog"`
	State     string          `json:"state" yaml:"state"`
	Files     int             `json:"files" yaml:"files"`
	Succeeded int             `json:"succeeded" yaml:"succeeded"`
	Failed    int             `json:"failed" yaml:"failed"`
	Error     string          `json:"error,omitempty" yaml:"error,omitempty"`
	Results   json.RawMessage `json:"results,omitempty" yaml:"-"`
}

// AppendSubmission stores sub, assigning an id and timestamp when missing.
func (s Store) AppendSubmission(ctx context.Context, sub *Submission) error {
	if sub == nil {
		return errors.New("nil submission")
	}
	if strings.TrimSpace(sub.ID) == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	results := string(sub.Results)
	if results == "" {
		results = "null"
	}

	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, `
		INSERT INTO submissions(id, created_at_unixms, server, catalog, state, files, succeeded, failed, error, results_json)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.CreatedAt.UnixMilli(), sub.Server, sub.Catalog, sub.State,
		sub.Files, sub.Succeeded, sub.Failed, nullIfEmpty(sub.Error), results,
	)
	return err
}

// ListSubmissions returns the newest submissions first. limit <= 0 means all.
func (s Store) ListSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT id, created_at_unixms, server, catalog, state, files, succeeded, failed, error, results_json
		FROM submissions ORDER BY created_at_unixms DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			sub     Submission
			ms      int64
			errText sql.NullString
			results string
		)
		if err := rows.Scan(&sub.ID, &ms, &sub.Server, &sub.Catalog, &sub.State,
			&sub.Files, &sub.Succeeded, &sub.Failed, &errText, &results); err != nil {
			return nil, err
		}
		sub.CreatedAt = time.UnixMilli(ms).UTC()
		sub.Error = errText.String
		if results != "null" {
			sub.Results = json.RawMessage(results)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
