package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AppSecureAI/automation-action/internal/api"
)

// ErrRunNotFound is returned when a run id has no row in the history.
var ErrRunNotFound = errors.New("run not found")

// RunRow is one recorded run.
type RunRow struct {
	ID        int64  `json:"id"`
	RunID     string `json:"run_id"`
	FileName  string `json:"file_name"`
	Mode      string `json:"mode"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`

	Summary *api.Summary `json:"summary,omitempty"`
}

// RecordSubmission inserts a freshly submitted run.
func RecordSubmission(db *sql.DB, runID, fileName, mode string) error {
	return RetryWithBackoff(func() error {
		_, err := db.Exec(
			`INSERT INTO runs (run_id, file_name, mode) VALUES (?, ?, ?)`,
			runID, fileName, mode,
		)
		if err != nil {
			return fmt.Errorf("record submission %s: %w", runID, err)
		}
		return nil
	})
}

// UpdateRunStatus sets the run's final status and optional failure reason.
func UpdateRunStatus(db *sql.DB, runID, status, errMsg string) error {
	return RetryWithBackoff(func() error {
		res, err := db.Exec(
			`UPDATE runs
			 SET status = ?, error = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE run_id = ?`,
			status, errMsg, runID,
		)
		if err != nil {
			return fmt.Errorf("update run %s: %w", runID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrRunNotFound
		}
		return nil
	})
}

// SaveSummary stores the retrieved summary as JSON alongside the run.
func SaveSummary(db *sql.DB, runID string, summary *api.Summary) error {
	if summary == nil {
		return nil
	}
	b, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary for %s: %w", runID, err)
	}
	return RetryWithBackoff(func() error {
		res, err := db.Exec(
			`UPDATE runs
			 SET summary_json = ?, updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
			 WHERE run_id = ?`,
			string(b), runID,
		)
		if err != nil {
			return fmt.Errorf("save summary for %s: %w", runID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrRunNotFound
		}
		return nil
	})
}

// GetRun fetches a single run by its remote run id.
func GetRun(db *sql.DB, runID string) (*RunRow, error) {
	row := db.QueryRow(
		`SELECT id, run_id, file_name, mode, status, error, summary_json, created_at, updated_at
		 FROM runs WHERE run_id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// ListRuns returns the most recent runs, newest first.
func ListRuns(db *sql.DB, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(
		`SELECT id, run_id, file_name, mode, status, error, summary_json, created_at, updated_at
		 FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*RunRow, error) {
	var r RunRow
	var summaryJSON sql.NullString
	if err := s.Scan(&r.ID, &r.RunID, &r.FileName, &r.Mode, &r.Status, &r.Error,
		&summaryJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if summaryJSON.Valid && summaryJSON.String != "" {
		var sum api.Summary
		if err := json.Unmarshal([]byte(summaryJSON.String), &sum); err != nil {
			return nil, fmt.Errorf("decode stored summary for %s: %w", r.RunID, err)
		}
		r.Summary = &sum
	}
	return &r, nil
}
