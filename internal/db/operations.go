package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var ErrNoChange = errors.New("no matching row")

type JobOperations struct{}

func (o *JobOperations) CreateJob(ctx context.Context, j *PrintJob) error {
	if j.CreatedAt.IsZero() {
		j.CreatedAt = time.Now().UTC()
	}
	if j.Status == "" {
		j.Status = "pending"
	}
	_, err := GetDB().ExecContext(ctx, InsertJob,
		j.ID, j.PrinterName, j.DocumentLabel, j.Source, j.PayloadBase64,
		j.PayloadBytes, j.Status, j.Attempts, j.SubmittedBy, j.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, id string) (*PrintJob, error) {
	j, err := scanJob(GetDB().QueryRowContext(ctx, GetJobByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

func (o *JobOperations) ListOpenJobs(ctx context.Context, limit int) ([]*PrintJob, error) {
	rows, err := GetDB().QueryContext(ctx, ListOpenJobs, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (o *JobOperations) ListJobsByStatus(ctx context.Context, status string, limit int) ([]*PrintJob, error) {
	rows, err := GetDB().QueryContext(ctx, ListJobsByStatus, status, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// BeginAttempt moves a job that has not printed back to pending for another
// submission, optionally on a different printer.
func (o *JobOperations) BeginAttempt(ctx context.Context, id, printerName string) error {
	result, err := GetDB().ExecContext(ctx, BeginJobAttempt, printerName, id)
	if err != nil {
		return fmt.Errorf("failed to begin job attempt: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoChange
	}
	return nil
}

func (o *JobOperations) RecordOutcome(ctx context.Context, id string, out JobOutcome) error {
	var printedAt interface{}
	if out.PrintedAt != nil {
		printedAt = *out.PrintedAt
	}
	_, err := GetDB().ExecContext(ctx, RecordJobOutcome,
		out.Status, out.Stage, out.LastError, out.Warnings,
		out.BytesWritten, out.SpoolerJobID, printedAt, id)
	if err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}
	return nil
}

func (o *JobOperations) CountJobsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := GetDB().QueryContext(ctx, CountJobsByStatus)
	if err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan job count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// DeleteFailedJob removes a failed job from the journal. Jobs in any other
// status are left alone and ErrNoChange is returned.
func (o *JobOperations) DeleteFailedJob(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeleteFailedJob, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNoChange
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*PrintJob, error) {
	j := &PrintJob{}
	var printedAt sql.NullTime
	err := row.Scan(
		&j.ID, &j.PrinterName, &j.DocumentLabel, &j.Source, &j.PayloadBase64, &j.PayloadBytes,
		&j.Status, &j.Stage, &j.LastError, &j.Warnings, &j.BytesWritten, &j.SpoolerJobID,
		&j.Attempts, &j.SubmittedBy, &j.CreatedAt, &printedAt)
	if err != nil {
		return nil, err
	}
	if printedAt.Valid {
		j.PrintedAt = &printedAt.Time
	}
	return j, nil
}

func scanJobs(rows *sql.Rows) ([]*PrintJob, error) {
	var jobs []*PrintJob
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type SettingsOperations struct{}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{Key: key}
	err := GetDB().QueryRowContext(ctx, GetSetting, key).Scan(&s.Value, &s.Encrypted, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string, encrypted bool) error {
	_, err := GetDB().ExecContext(ctx, SetSetting, key, value, encrypted, value, encrypted)
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	_, err := GetDB().ExecContext(ctx, DeleteSetting, key)
	if err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

var (
	Jobs     = &JobOperations{}
	Settings = &SettingsOperations{}
)
