// Package store archives planning runs and their Pareto fronts in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/signalsfoundry/router-placement/placement"
)

var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	building    TEXT NOT NULL,
	candidates  INTEGER NOT NULL,
	sensors     INTEGER NOT NULL,
	seed        INTEGER NOT NULL,
	generations INTEGER NOT NULL,
	evaluations INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS solutions (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position  INTEGER NOT NULL,
	uncovered INTEGER NOT NULL,
	routers   INTEGER NOT NULL,
	active    TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Run is the archived summary of one optimizer run.
type Run struct {
	ID          string
	CreatedAt   time.Time
	Building    string
	Candidates  int
	Sensors     int
	Seed        uint64
	Generations int
	Evaluations int
	Front       placement.Front
}

// Archive is a SQLite-backed run history. Writes are serialised.
type Archive struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Archive, error) {
	db, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open archive %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close releases the database handle.
func (a *Archive) Close() error {
	return a.db.Close()
}

// SaveRun stores run and its front in one transaction. Saving an existing
// ID replaces it.
func (a *Archive) SaveRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("save run: empty id")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, created_at, building, candidates, sensors, seed, generations, evaluations)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UnixNano(), run.Building,
		run.Candidates, run.Sensors, int64(run.Seed), run.Generations, run.Evaluations)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO solutions
		(run_id, position, uncovered, routers, active) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	defer stmt.Close()
	for i, s := range run.Front {
		if _, err := stmt.ExecContext(ctx, run.ID, i, s.Uncovered, s.Routers, encodeActive(s.Active)); err != nil {
			return fmt.Errorf("save run %s solution %d: %w", run.ID, i, err)
		}
	}
	return tx.Commit()
}

// LoadRun returns a stored run with its front.
func (a *Archive) LoadRun(ctx context.Context, id string) (Run, error) {
	var (
		run     Run
		created int64
		seed    int64
	)
	err := a.db.QueryRowContext(ctx, `SELECT id, created_at, building, candidates, sensors, seed, generations, evaluations
		FROM runs WHERE id = ?`, id).
		Scan(&run.ID, &created, &run.Building, &run.Candidates, &run.Sensors, &seed, &run.Generations, &run.Evaluations)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, fmt.Errorf("load run %s: %w", id, err)
	}
	run.Seed = uint64(seed)
	run.CreatedAt = time.Unix(0, created).UTC()
	if run.Front, err = a.LoadFront(ctx, id); err != nil {
		return Run{}, err
	}
	return run, nil
}

// LoadFront returns the archived front of run id in its saved order.
func (a *Archive) LoadFront(ctx context.Context, id string) (placement.Front, error) {
	var exists int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("load front %s: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	rows, err := a.db.QueryContext(ctx, `SELECT uncovered, routers, active FROM solutions
		WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("load front %s: %w", id, err)
	}
	defer rows.Close()

	front := placement.Front{}
	for rows.Next() {
		var (
			s      placement.Solution
			active string
		)
		if err := rows.Scan(&s.Uncovered, &s.Routers, &active); err != nil {
			return nil, fmt.Errorf("load front %s: %w", id, err)
		}
		s.Active = decodeActive(active)
		front = append(front, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load front %s: %w", id, err)
	}
	return front, nil
}

// ListRuns returns run IDs, newest first.
func (a *Archive) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id FROM runs ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func encodeActive(x []bool) string {
	b := make([]byte, len(x))
	for i, on := range x {
		b[i] = '0'
		if on {
			b[i] = '1'
		}
	}
	return string(b)
}

func decodeActive(s string) []bool {
	x := make([]bool, len(s))
	for i := range s {
		x[i] = s[i] == '1'
	}
	return x
}
