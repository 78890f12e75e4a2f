// Package runlog records billing run outcomes in the billing_run_log table.
package runlog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/e164networks/e164bill/internal/db"
)

// Entry represents a row in billing_run_log.
type Entry struct {
	ID           string     `json:"id"`
	Scope        string     `json:"scope"`
	CutoffDate   time.Time  `json:"cutoff_date"`
	ReportPeriod time.Time  `json:"report_period"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ItemsWritten int64      `json:"items_written"`
	Skipped      int64      `json:"skipped"`
	Error        string     `json:"error,omitempty"`
}

// Result holds the outcome of a run, passed to Complete().
type Result struct {
	ItemsWritten int64
	Skipped      int64
}

// Log provides read/write access to the billing_run_log table.
type Log struct {
	pool db.Pool
}

// New creates a Log backed by the given connection pool.
func New(pool db.Pool) *Log {
	return &Log{pool: pool}
}

// Start records the beginning of a billing run and returns its ID.
func (l *Log) Start(ctx context.Context, scope string, cutoff, reportPeriod time.Time) (string, error) {
	id := uuid.NewString()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO billing_run_log (id, scope, cutoff_date, report_period, status, started_at)
		 VALUES ($1, $2, $3, $4, 'running', now())`,
		id, scope, cutoff, reportPeriod,
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start run for %s", scope)
	}
	return id, nil
}

// Complete marks a run as successfully completed.
func (l *Log) Complete(ctx context.Context, runID string, result *Result) error {
	var written, skipped int64
	if result != nil {
		written = result.ItemsWritten
		skipped = result.Skipped
	}

	_, err := l.pool.Exec(ctx,
		`UPDATE billing_run_log
		 SET status = 'complete', completed_at = now(), items_written = $1, skipped = $2
		 WHERE id = $3`,
		written, skipped, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (l *Log) Fail(ctx context.Context, runID string, errMsg string) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE billing_run_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	return nil
}

// LastSuccess returns the started_at time of the most recent completed run
// for a scope. Returns nil if the scope has never completed a run.
func (l *Log) LastSuccess(ctx context.Context, scope string) (*time.Time, error) {
	var t time.Time
	err := l.pool.QueryRow(ctx,
		`SELECT started_at FROM billing_run_log
		 WHERE scope = $1 AND status = 'complete'
		 ORDER BY started_at DESC LIMIT 1`,
		scope,
	).Scan(&t)
	if err != nil {
		if err.Error() == "no rows in result set" {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "runlog: last success for %s", scope)
	}
	return &t, nil
}

// ListAll returns all run log entries ordered by most recent first.
func (l *Log) ListAll(ctx context.Context) ([]Entry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, scope, cutoff_date, report_period, status, started_at, completed_at, items_written, skipped, error
		 FROM billing_run_log ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list all")
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var completedAt *time.Time
		var errStr *string
		if err := rows.Scan(&e.ID, &e.Scope, &e.CutoffDate, &e.ReportPeriod, &e.Status, &e.StartedAt, &completedAt, &e.ItemsWritten, &e.Skipped, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
