package state

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/probelab/probe/pkg/models"
)

// ErrRunNotFound is returned when a run ID is not in the history.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted run: its summary, metadata, and report.
type RunRecord struct {
	// Summary is the compact per-run record.
	Summary models.RunSummary
	// IssueTitle is the researched issue's title.
	IssueTitle string
	// Profile is the depth profile the run used.
	Profile string
	// Iterations is the number of execute/evaluate rounds.
	Iterations int
	// StartedAt is when the run began.
	StartedAt time.Time
	// CompletedAt is when the run finished.
	CompletedAt time.Time
	// Report is the synthesized report.
	Report models.Report
}

// SaveRun persists a finished run and its report in one transaction.
func (db *DB) SaveRun(rec *RunRecord) error {
	insights, err := json.Marshal(rec.Summary.KeyInsights)
	if err != nil {
		return fmt.Errorf("marshal key insights: %w", err)
	}
	limitations, err := json.Marshal(rec.Report.Limitations)
	if err != nil {
		return fmt.Errorf("marshal limitations: %w", err)
	}

	return db.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (
				id, issue_title, profile,
				total_sub_tasks, successful_tasks, failed_tasks, blocked_tasks,
				progress, confidence_level, iterations,
				ceiling_reached, stalled, started_at, completed_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			rec.Summary.RunID, rec.IssueTitle, rec.Profile,
			rec.Summary.TotalSubTasks, rec.Summary.SuccessfulTasks, rec.Summary.FailedTasks, rec.Summary.BlockedTasks,
			rec.Summary.Progress, rec.Summary.ConfidenceLevel, rec.Iterations,
			boolToInt(rec.Summary.CeilingReached), boolToInt(rec.Summary.Stalled),
			formatTime(rec.StartedAt), formatTime(rec.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO reports (run_id, title, body, limitations, key_insights, generated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`,
			rec.Summary.RunID, rec.Report.Title, rec.Report.Body,
			string(limitations), string(insights), formatTime(rec.Report.GeneratedAt),
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		return nil
	})
}

// GetRun loads one run with its report.
func (db *DB) GetRun(runID string) (*RunRecord, error) {
	row := db.QueryRow(`
		SELECT r.id, r.issue_title, r.profile,
			r.total_sub_tasks, r.successful_tasks, r.failed_tasks, r.blocked_tasks,
			r.progress, r.confidence_level, r.iterations,
			r.ceiling_reached, r.stalled, r.started_at, r.completed_at,
			p.title, p.body, p.limitations, p.key_insights, p.generated_at
		FROM runs r
		JOIN reports p ON p.run_id = r.id
		WHERE r.id = ?
	`, runID)

	rec, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT r.id, r.issue_title, r.profile,
			r.total_sub_tasks, r.successful_tasks, r.failed_tasks, r.blocked_tasks,
			r.progress, r.confidence_level, r.iterations,
			r.ceiling_reached, r.stalled, r.started_at, r.completed_at,
			p.title, p.body, p.limitations, p.key_insights, p.generated_at
		FROM runs r
		JOIN reports p ON p.run_id = r.id
		ORDER BY r.started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*RunRecord, error) {
	var rec RunRecord
	var ceiling, stalled int
	var startedAt, completedAt, generatedAt string
	var limitations, insights sql.NullString

	err := s.Scan(
		&rec.Summary.RunID, &rec.IssueTitle, &rec.Profile,
		&rec.Summary.TotalSubTasks, &rec.Summary.SuccessfulTasks, &rec.Summary.FailedTasks, &rec.Summary.BlockedTasks,
		&rec.Summary.Progress, &rec.Summary.ConfidenceLevel, &rec.Iterations,
		&ceiling, &stalled, &startedAt, &completedAt,
		&rec.Report.Title, &rec.Report.Body, &limitations, &insights, &generatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Summary.CeilingReached = ceiling != 0
	rec.Summary.Stalled = stalled != 0

	if rec.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if rec.CompletedAt, err = parseTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if rec.Report.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, fmt.Errorf("parse generated_at: %w", err)
	}

	if limitations.Valid && limitations.String != "" {
		if err := json.Unmarshal([]byte(limitations.String), &rec.Report.Limitations); err != nil {
			return nil, fmt.Errorf("unmarshal limitations: %w", err)
		}
	}
	if insights.Valid && insights.String != "" {
		if err := json.Unmarshal([]byte(insights.String), &rec.Summary.KeyInsights); err != nil {
			return nil, fmt.Errorf("unmarshal key insights: %w", err)
		}
	}
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
