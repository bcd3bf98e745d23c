package storage

import (
	"browser_agent/domain/entities"
	"browser_agent/domain/interfaces"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// ErrRunNotFound is returned by GetRun for unknown ids
var ErrRunNotFound = errors.New("run not found")

const schema = `CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	input TEXT NOT NULL,
	status TEXT NOT NULL,
	step_count INTEGER NOT NULL,
	errors INTEGER NOT NULL DEFAULT 0,
	warnings INTEGER NOT NULL DEFAULT 0,
	results TEXT NOT NULL DEFAULT '[]',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);`

type runStore struct {
	db *sql.DB
}

// storedItem keeps typed values; ExtractedItem's JSON form is the display shape
type storedItem struct {
	Name   string           `json:"name"`
	Price  *int64           `json:"price,omitempty"`
	Rating *float64         `json:"rating,omitempty"`
	URL    string           `json:"url,omitempty"`
	Site   entities.SiteTag `json:"site"`
}

// NewRunStore - opens or creates the sqlite run history at path
func NewRunStore(path string) (interfaces.RunStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create run store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create runs table: %w", err)
	}
	return &runStore{db: db}, nil
}

// SaveRun - inserts or replaces a run
func (s *runStore) SaveRun(ctx context.Context, run entities.Run) error {
	items := make([]storedItem, 0, len(run.Results))
	for _, r := range run.Results {
		items = append(items, storedItem{Name: r.Name, Price: r.Price, Rating: r.Rating, URL: r.URL, Site: r.Site})
	}
	results, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, input, status, step_count, errors, warnings, results, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Input, string(run.Status), run.StepCount, run.Errors, run.Warnings, string(results),
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun - loads one run with its results
func (s *runStore) GetRun(ctx context.Context, id string) (entities.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, step_count, errors, warnings, results, started_at, finished_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns - most recent runs first
func (s *runStore) ListRuns(ctx context.Context, limit int) ([]entities.Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, input, status, step_count, errors, warnings, results, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []entities.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close - closes the database
func (s *runStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (entities.Run, error) {
	var (
		run                 entities.Run
		status, results     string
		startedAt, finished string
	)
	err := row.Scan(&run.ID, &run.Input, &status, &run.StepCount, &run.Errors, &run.Warnings, &results, &startedAt, &finished)
	if err != nil {
		return entities.Run{}, err
	}
	run.Status = entities.RunStatus(status)

	var items []storedItem
	if err := json.Unmarshal([]byte(results), &items); err != nil {
		return entities.Run{}, fmt.Errorf("failed to decode results of run %s: %w", run.ID, err)
	}
	run.Results = make(entities.Results, 0, len(items))
	for _, it := range items {
		run.Results = append(run.Results, entities.ExtractedItem{Name: it.Name, Price: it.Price, Rating: it.Rating, URL: it.URL, Site: it.Site})
	}

	if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
		return entities.Run{}, fmt.Errorf("failed to parse start time of run %s: %w", run.ID, err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return entities.Run{}, fmt.Errorf("failed to parse finish time of run %s: %w", run.ID, err)
	}
	return run, nil
}

var _ interfaces.RunStore = (*runStore)(nil)
