// Package history persists a journal of agent runs in the caretaker database.
// Fix attempts are journaled as events only; no attempt state is stored.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/caretaker/internal/db"
	"github.com/rs/zerolog/log"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
	StatusError   = "error"
)

// Run is one agent invocation against one target file.
type Run struct {
	ID        string
	Agent     string
	Target    string
	Status    string
	StartedAt time.Time
	EndedAt   *time.Time
	Attempts  int
	Cost      string
	Template  string
	Reason    string
	Error     string
}

// Outcome closes a run.
type Outcome struct {
	Status   string
	Attempts int
	Cost     string
	Template string
	Reason   string
	Error    string
}

// Event is a timeline entry of a run.
type Event struct {
	Seq     int
	Time    time.Time
	Type    string
	Message string
	Data    json.RawMessage
}

// Store provides persistence for runs and their events.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens the database at path and returns a store over it.
func Open(path string) (*Store, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	return NewStore(database), nil
}

// NewStore creates a store over an open database.
func NewStore(database *sql.DB) *Store {
	return &Store{db: database, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun inserts a running run and a run_started event.
func (s *Store) StartRun(ctx context.Context, agent, target string) (string, error) {
	runID := uuid.NewString()
	startedAt := s.now().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("begin start run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(run_id, agent, target, status, started_at) VALUES(?, ?, ?, ?, ?)`,
		runID, agent, target, StatusRunning, startedAt); err != nil {
		_ = tx.Rollback()
		return "", fmt.Errorf("insert run: %w", err)
	}
	if err := s.insertEvent(ctx, tx, runID, "run_started", fmt.Sprintf("%s started on %s", agent, target), nil); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit start run: %w", err)
	}
	return runID, nil
}

// AddEvent appends an event to a run. data is stored as JSON when non-nil.
func (s *Store) AddEvent(ctx context.Context, runID, typ, message string, data any) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin add event: %w", err)
	}
	if err := s.insertEvent(ctx, tx, runID, typ, message, data); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add event: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run and a run_finished event.
func (s *Store) FinishRun(ctx context.Context, runID string, out Outcome) error {
	endedAt := s.now().Format(time.RFC3339Nano)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin finish run: %w", err)
	}
	cost := out.Cost
	if cost == "" {
		cost = "0"
	}
	res, err := tx.ExecContext(ctx, `UPDATE runs SET status=?, ended_at=?, attempts=?, cost=?, template=?, reason=?, error=? WHERE run_id=?`,
		out.Status, endedAt, out.Attempts, cost, nullableString(out.Template), nullableString(out.Reason), nullableString(out.Error), runID)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return fmt.Errorf("finish run %s: not found", runID)
	}
	if err := s.insertEvent(ctx, tx, runID, "run_finished", "run "+out.Status, out); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit finish run: %w", err)
	}
	return nil
}

// List returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT run_id, agent, target, status, started_at, ended_at, attempts, cost,
		COALESCE(template, ''), COALESCE(reason, ''), COALESCE(error, '')
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		var (
			r         Run
			startedAt string
			endedAt   sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Agent, &r.Target, &r.Status, &startedAt, &endedAt, &r.Attempts, &r.Cost, &r.Template, &r.Reason, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = parseTime(startedAt)
		if endedAt.Valid {
			t := parseTime(endedAt.String)
			r.EndedAt = &t
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Events returns the events of a run in order.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT seq, ts, type, message, data_json FROM events WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			ev   Event
			ts   string
			data sql.NullString
		)
		if err := rows.Scan(&ev.Seq, &ts, &ev.Type, &ev.Message, &data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Time = parseTime(ts)
		if data.Valid {
			ev.Data = json.RawMessage(data.String)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, runID, typ, message string, data any) error {
	var seq int
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id=?`, runID).Scan(&seq); err != nil {
		return fmt.Errorf("read event seq: %w", err)
	}
	var dataJSON any
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal event data: %w", err)
		}
		dataJSON = string(raw)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(run_id, seq, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		runID, seq+1, s.now().Format(time.RFC3339Nano), typ, message, dataJSON); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Journal binds a store to one run. Its methods log failures instead of
// returning them, so history never interrupts an agent.
type Journal struct {
	store *Store
	runID string
}

// Journal returns the journal of runID. A nil store yields a journal that
// drops every event.
func (s *Store) Journal(runID string) *Journal {
	return &Journal{store: s, runID: runID}
}

// RunID is the id of the journaled run.
func (j *Journal) RunID() string {
	if j == nil {
		return ""
	}
	return j.runID
}

// Record appends an event to the run.
func (j *Journal) Record(ctx context.Context, typ, message string, data any) {
	if j == nil || j.store == nil {
		return
	}
	if err := j.store.AddEvent(ctx, j.runID, typ, message, data); err != nil {
		log.Warn().Err(err).Str("run_id", j.runID).Str("type", typ).Msg("failed to record history event")
	}
}

// Finish closes the run.
func (j *Journal) Finish(ctx context.Context, out Outcome) {
	if j == nil || j.store == nil {
		return
	}
	if err := j.store.FinishRun(ctx, j.runID, out); err != nil {
		log.Warn().Err(err).Str("run_id", j.runID).Msg("failed to finish history run")
	}
}

// Begin starts a run and returns its journal. Failures are logged and yield
// a nil journal, which is safe to use.
func Begin(ctx context.Context, s *Store, agent, target string) *Journal {
	if s == nil {
		return nil
	}
	runID, err := s.StartRun(ctx, agent, target)
	if err != nil {
		log.Warn().Err(err).Str("agent", agent).Str("target", target).Msg("failed to start history run")
		return nil
	}
	return s.Journal(runID)
}
