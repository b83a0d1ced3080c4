// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists finished statistics runs in a SQLite database so
// they can be listed and shown again without querying the provider.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/bibliometrics/pkg/types"
)

// Run kinds.
const (
	KindAuthor = "author"
	KindPaper  = "paper"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is the summary row of a stored run.
type Run struct {
	ID        string    `json:"id" yaml:"id"`
	Kind      string    `json:"kind" yaml:"kind"`
	Subject   []string  `json:"subject" yaml:"subject"`
	Provider  string    `json:"provider" yaml:"provider"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Papers    int       `json:"papers" yaml:"papers"`
	Citations int       `json:"citations" yaml:"citations"`
	HIndex    int       `json:"h_index" yaml:"h_index"`
	Cancelled bool      `json:"cancelled" yaml:"cancelled"`
	Truncated bool      `json:"truncated" yaml:"truncated"`
}

// Store manages the run database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at cfg.Path and creates the schema if
// it does not exist.
func Open(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = types.DefaultStorePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			subject TEXT NOT NULL,
			provider TEXT,
			created_at TEXT NOT NULL,
			h_index INTEGER NOT NULL DEFAULT 0,
			cancelled INTEGER NOT NULL DEFAULT 0,
			truncated INTEGER NOT NULL DEFAULT 0,
			skipped TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS timelines (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			paper_id TEXT NOT NULL,
			published TEXT,
			now TEXT,
			own_rank INTEGER,
			truncated INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, paper_id)
		)`,
		`CREATE TABLE IF NOT EXISTS citations (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			paper_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_citations_run ON citations(run_id, paper_id)`,
		`CREATE TABLE IF NOT EXISTS rates (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			date TEXT NOT NULL,
			rate REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveAuthorRun stores agg and returns the new run id.
func (s *Store) SaveAuthorRun(ctx context.Context, provider string, agg *types.AuthorAggregate) (string, error) {
	ranks := make(map[string]int, len(agg.OwnPapers))
	for _, p := range agg.OwnPapers {
		ranks[p.ID] = p.Rank
	}

	id := uuid.NewString()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		skipped, err := encodeJSON("skipped", agg.Skipped)
		if err != nil {
			return err
		}
		if err := insertRun(ctx, tx, id, KindAuthor, agg.Authors, provider, s.now(),
			agg.HIndex, agg.Cancelled, agg.Truncated, skipped); err != nil {
			return err
		}
		for _, tl := range agg.PerPaper {
			if err := insertTimeline(ctx, tx, id, tl, ranks[tl.PaperID]); err != nil {
				return err
			}
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO rates (run_id, seq, date, rate) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing rate insert: %w", err)
		}
		defer stmt.Close()
		for i, pt := range agg.MeanCitationRate {
			if _, err := stmt.ExecContext(ctx, id, i, formatTime(pt.Date), pt.Rate); err != nil {
				return fmt.Errorf("inserting rate point %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// SavePaperRun stores a single paper timeline and returns the new run id.
func (s *Store) SavePaperRun(ctx context.Context, provider string, tl types.PaperTimeline) (string, error) {
	id := uuid.NewString()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertRun(ctx, tx, id, KindPaper, []string{tl.PaperID}, provider, s.now(),
			0, false, tl.Truncated, ""); err != nil {
			return err
		}
		return insertTimeline(ctx, tx, id, tl, 0)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// encodeJSON marshals a run column stored as JSON text.
func encodeJSON(field string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", field, err)
	}
	return string(data), nil
}

func insertRun(ctx context.Context, tx *sql.Tx, id, kind string, subject []string, provider string,
	created time.Time, hIndex int, cancelled, truncated bool, skipped string) error {
	subjectJSON, err := encodeJSON("subject", subject)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, subject, provider, created_at, h_index, cancelled, truncated, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, kind, subjectJSON, provider, formatTime(created), hIndex, cancelled, truncated, skipped,
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func insertTimeline(ctx context.Context, tx *sql.Tx, runID string, tl types.PaperTimeline, ownRank int) error {
	var published, now sql.NullString
	if tl.HasPublished {
		published = sql.NullString{String: formatTime(tl.Published), Valid: true}
	}
	if tl.HasNow {
		now = sql.NullString{String: formatTime(tl.Now), Valid: true}
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO timelines (run_id, paper_id, published, now, own_rank, truncated) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, tl.PaperID, published, now, ownRank, tl.Truncated,
	)
	if err != nil {
		return fmt.Errorf("inserting timeline %s: %w", tl.PaperID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO citations (run_id, paper_id, rank, date) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing citation insert: %w", err)
	}
	defer stmt.Close()
	for _, c := range tl.Citations {
		if _, err := stmt.ExecContext(ctx, runID, tl.PaperID, c.Rank, formatTime(c.Date)); err != nil {
			return fmt.Errorf("inserting citation of %s: %w", tl.PaperID, err)
		}
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}
