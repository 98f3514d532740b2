package core

import (
	"context"

	"github.com/orrn/rawspool/internal/db"
)

type JobStatus string

const (
	JobStatusPending JobStatus = "pending"
	JobStatusPrinted JobStatus = "printed"
	JobStatusFailed  JobStatus = "failed"
)

const (
	SourceRaw  = "raw"
	SourceText = "text"
)

const SettingPrinterName = "printer_name"

type JobStore interface {
	CreateJob(ctx context.Context, j *db.PrintJob) error
	GetJobByID(ctx context.Context, id string) (*db.PrintJob, error)
	ListOpenJobs(ctx context.Context, limit int) ([]*db.PrintJob, error)
	ListJobsByStatus(ctx context.Context, status string, limit int) ([]*db.PrintJob, error)
	BeginAttempt(ctx context.Context, id, printerName string) error
	RecordOutcome(ctx context.Context, id string, out db.JobOutcome) error
	CountJobsByStatus(ctx context.Context) (map[string]int64, error)
	DeleteFailedJob(ctx context.Context, id string) error
}

type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (*db.Setting, error)
	SetSetting(ctx context.Context, key, value string, encrypted bool) error
	DeleteSetting(ctx context.Context, key string) error
}

// Notifier is told about every finished attempt. Implementations must not block.
type Notifier interface {
	SendJobPrinted(job *db.PrintJob)
	SendJobFailed(job *db.PrintJob)
}

type PrintRequest struct {
	PrinterName string
	DataBase64  string
	SubmittedBy string
}

type TextRequest struct {
	PrinterName string
	Text        string
	CodePage    string
	SubmittedBy string
}
