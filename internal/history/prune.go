package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetentionPolicy controls run cleanup. A run is kept when either rule keeps it.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// Prune deletes runs, with their events, that fall outside policy. Running
// runs and runs with unparsable timestamps are always kept. With dryRun the
// result is computed without deleting anything.
func (s *Store) Prune(ctx context.Context, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = s.now().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, started_at, status FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list runs: %w", err)
	}
	type runRow struct {
		id        string
		startedAt time.Time
		status    string
		parseErr  error
	}
	var runs []runRow
	for rows.Next() {
		var id, startedAt, status string
		if err := rows.Scan(&id, &startedAt, &status); err != nil {
			_ = rows.Close()
			return PruneResult{}, fmt.Errorf("scan run: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339Nano, startedAt)
		runs = append(runs, runRow{id: id, startedAt: parsed, status: status, parseErr: parseErr})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return PruneResult{}, fmt.Errorf("iterate runs: %w", err)
	}
	_ = rows.Close()

	res := PruneResult{Considered: len(runs)}
	var stale []string
	for idx, row := range runs {
		keep := row.status == StatusRunning
		if !keep && policy.KeepLast > 0 && idx < policy.KeepLast {
			keep = true
		}
		if !keep && policy.KeepDays > 0 {
			keep = row.parseErr != nil || row.startedAt.After(cutoff)
		}
		if keep {
			res.Kept++
			continue
		}
		stale = append(stale, row.id)
	}
	if dryRun || len(stale) == 0 {
		res.Deleted = len(stale)
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return res, fmt.Errorf("begin prune: %w", err)
	}
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE run_id=?`, id); err != nil {
			_ = tx.Rollback()
			return res, fmt.Errorf("delete events of %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id=?`, id); err != nil {
			_ = tx.Rollback()
			return res, fmt.Errorf("delete run %s: %w", id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("commit prune: %w", err)
	}
	res.Deleted = len(stale)
	return res, nil
}
