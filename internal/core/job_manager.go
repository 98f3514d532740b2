package core

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/rawspool/internal/db"
	"github.com/orrn/rawspool/internal/escpos"
	"github.com/orrn/rawspool/internal/logging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type JobManagerConfig struct {
	DefaultPrinter string
	CodePage       string
}

// JobManager journals every submission around the Submitter so that jobs
// which did not print can be inspected and sent again.
type JobManager struct {
	submitter *Submitter
	jobs      JobStore
	settings  SettingsStore
	notifier  Notifier
	cfg       JobManagerConfig
	now       func() time.Time
}

func NewJobManager(submitter *Submitter, jobs JobStore, settings SettingsStore, notifier Notifier, cfg JobManagerConfig) *JobManager {
	return &JobManager{
		submitter: submitter,
		jobs:      jobs,
		settings:  settings,
		notifier:  notifier,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (m *JobManager) Submitter() *Submitter {
	return m.submitter
}

// DefaultPrinter returns the stored printer setting, else the configured default.
func (m *JobManager) DefaultPrinter(ctx context.Context) string {
	if m.settings != nil {
		if s, err := m.settings.GetSetting(ctx, SettingPrinterName); err == nil && strings.TrimSpace(s.Value) != "" {
			return s.Value
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			logging.Warn("failed to read printer setting", "error", err)
		}
	}
	return m.cfg.DefaultPrinter
}

func (m *JobManager) SetDefaultPrinter(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrPrinterNameRequired
	}
	if err := m.settings.SetSetting(ctx, SettingPrinterName, name, false); err != nil {
		return fmt.Errorf("failed to save printer setting: %w", err)
	}
	logging.Info("default printer changed", "printer", name)
	return nil
}

// ClearDefaultPrinter drops the stored printer setting and returns the
// configured default that applies from now on.
func (m *JobManager) ClearDefaultPrinter(ctx context.Context) (string, error) {
	if err := m.settings.DeleteSetting(ctx, SettingPrinterName); err != nil {
		return "", fmt.Errorf("failed to clear printer setting: %w", err)
	}
	logging.Info("default printer reset", "printer", m.cfg.DefaultPrinter)
	return m.cfg.DefaultPrinter, nil
}

func (m *JobManager) resolvePrinter(ctx context.Context, requested string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	return m.DefaultPrinter(ctx)
}

// PrintRaw journals and submits one base64 payload. The returned job carries
// the recorded outcome; the error is the submitter's primary failure. Nothing
// is journaled when the platform has no spooler.
func (m *JobManager) PrintRaw(ctx context.Context, req PrintRequest) (*db.PrintJob, error) {
	return m.print(ctx, req, SourceRaw)
}

// PrintText builds an ESC/POS receipt from text and prints it as RAW data.
func (m *JobManager) PrintText(ctx context.Context, req TextRequest) (*db.PrintJob, error) {
	codePage := req.CodePage
	if codePage == "" {
		codePage = m.cfg.CodePage
	}
	payload, err := escpos.Build(req.Text, escpos.Options{CodePage: codePage})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTextEncode, err)
	}
	return m.print(ctx, PrintRequest{
		PrinterName: req.PrinterName,
		DataBase64:  base64.StdEncoding.EncodeToString(payload),
		SubmittedBy: req.SubmittedBy,
	}, SourceText)
}

func (m *JobManager) print(ctx context.Context, req PrintRequest, source string) (*db.PrintJob, error) {
	printer := m.resolvePrinter(ctx, req.PrinterName)
	if !m.submitter.Supported() {
		_, err := m.submitter.Submit(printer, req.DataBase64)
		return nil, err
	}

	job := &db.PrintJob{
		ID:            uuid.NewString(),
		PrinterName:   printer,
		DocumentLabel: m.submitter.DocumentLabel(),
		Source:        source,
		PayloadBase64: req.DataBase64,
		PayloadBytes:  payloadLen(req.DataBase64),
		Status:        string(JobStatusPending),
		Attempts:      1,
		SubmittedBy:   req.SubmittedBy,
		CreatedAt:     m.now(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to journal job: %w", err)
	}

	return job, m.attempt(ctx, job)
}

// Reprint submits the stored payload of a job that has not printed yet. An
// empty printerName keeps the job's printer.
func (m *JobManager) Reprint(ctx context.Context, id, printerName string) (*db.PrintJob, error) {
	job, err := m.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == string(JobStatusPrinted) {
		return job, ErrAlreadyPrinted
	}
	if !m.submitter.Supported() {
		_, err := m.submitter.Submit(job.PrinterName, job.PayloadBase64)
		return job, err
	}

	if name := strings.TrimSpace(printerName); name != "" {
		job.PrinterName = name
	}
	if err := m.jobs.BeginAttempt(ctx, job.ID, job.PrinterName); err != nil {
		if errors.Is(err, db.ErrNoChange) {
			return job, ErrAlreadyPrinted
		}
		return job, fmt.Errorf("failed to journal reprint: %w", err)
	}
	job.Attempts++
	job.Status = string(JobStatusPending)

	return job, m.attempt(ctx, job)
}

// attempt runs one submission and records its outcome. The outcome is written
// even if ctx is cancelled, since the spooler call cannot be taken back.
func (m *JobManager) attempt(ctx context.Context, job *db.PrintJob) error {
	started := time.Now()
	receipt, err := m.submitter.Submit(job.PrinterName, job.PayloadBase64)

	out := db.JobOutcome{
		BytesWritten: int64(receipt.BytesWritten),
		SpoolerJobID: int64(receipt.JobID),
		Warnings:     joinWarnings(receipt.Warnings),
	}
	for _, w := range receipt.Warnings {
		logging.Warn("spooler cleanup step failed",
			"job_id", job.ID, "printer", job.PrinterName, "step", w.Step, "error", w.Err)
	}

	if err != nil {
		stage, _ := StageOf(err)
		var f *PrintFailure
		contacted := errors.As(err, &f) && f.Contacted
		out.Status = string(JobStatusFailed)
		out.Stage = string(stage)
		out.LastError = err.Error()
		logging.Error("print job failed",
			"job_id", job.ID, "printer", job.PrinterName, "stage", stage, "contacted", contacted, "error", err)
	} else {
		now := m.now()
		out.Status = string(JobStatusPrinted)
		out.PrintedAt = &now
		logging.Info("print job printed",
			"job_id", job.ID, "printer", job.PrinterName, "bytes", receipt.BytesWritten,
			"spooler_job_id", receipt.JobID, "duration_ms", time.Since(started).Milliseconds())
	}

	if rerr := m.jobs.RecordOutcome(context.WithoutCancel(ctx), job.ID, out); rerr != nil {
		logging.Error("failed to record job outcome", "job_id", job.ID, "error", rerr)
	}
	applyOutcome(job, out)

	if m.notifier != nil {
		if err != nil {
			m.notifier.SendJobFailed(job)
		} else {
			m.notifier.SendJobPrinted(job)
		}
	}
	return err
}

func (m *JobManager) GetJob(ctx context.Context, id string) (*db.PrintJob, error) {
	job, err := m.jobs.GetJobByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListOpen returns jobs that have not printed, newest first.
func (m *JobManager) ListOpen(ctx context.Context, limit int) ([]*db.PrintJob, error) {
	return m.jobs.ListOpenJobs(ctx, clampLimit(limit))
}

// ListByStatus returns jobs in one status, newest first.
func (m *JobManager) ListByStatus(ctx context.Context, status JobStatus, limit int) ([]*db.PrintJob, error) {
	return m.jobs.ListJobsByStatus(ctx, string(status), clampLimit(limit))
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// DeleteFailed removes a failed job from the journal.
func (m *JobManager) DeleteFailed(ctx context.Context, id string) error {
	job, err := m.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != string(JobStatusFailed) {
		return ErrJobNotFailed
	}
	if err := m.jobs.DeleteFailedJob(ctx, id); err != nil {
		if errors.Is(err, db.ErrNoChange) {
			return ErrJobNotFailed
		}
		return err
	}
	logging.Info("failed job deleted", "job_id", id, "printer", job.PrinterName)
	return nil
}

type JobStats struct {
	Pending int64 `json:"pending"`
	Printed int64 `json:"printed"`
	Failed  int64 `json:"failed"`
	Total   int64 `json:"total"`
}

func (m *JobManager) Stats(ctx context.Context) (*JobStats, error) {
	counts, err := m.jobs.CountJobsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &JobStats{
		Pending: counts[string(JobStatusPending)],
		Printed: counts[string(JobStatusPrinted)],
		Failed:  counts[string(JobStatusFailed)],
	}
	for _, c := range counts {
		stats.Total += c
	}
	return stats, nil
}

func applyOutcome(job *db.PrintJob, out db.JobOutcome) {
	job.Status = out.Status
	job.Stage = out.Stage
	job.LastError = out.LastError
	job.Warnings = out.Warnings
	job.BytesWritten = out.BytesWritten
	job.SpoolerJobID = out.SpoolerJobID
	job.PrintedAt = out.PrintedAt
}

func joinWarnings(warnings []CleanupWarning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = w.String()
	}
	return strings.Join(parts, "\n")
}

// payloadLen is the decoded size of a base64 payload, or 0 when it does not decode.
func payloadLen(s string) int {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return 0
	}
	return len(raw)
}
