package db

import (
	"time"
)

type PrintJob struct {
	ID            string     `json:"id"`
	PrinterName   string     `json:"printer_name"`
	DocumentLabel string     `json:"document_label"`
	Source        string     `json:"source"`
	PayloadBase64 string     `json:"-"`
	PayloadBytes  int        `json:"payload_bytes"`
	Status        string     `json:"status"`
	Stage         string     `json:"stage,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	Warnings      string     `json:"warnings,omitempty"`
	BytesWritten  int64      `json:"bytes_written"`
	SpoolerJobID  int64      `json:"spooler_job_id,omitempty"`
	Attempts      int        `json:"attempts"`
	SubmittedBy   string     `json:"submitted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	PrintedAt     *time.Time `json:"printed_at,omitempty"`
}

// JobOutcome is what one submission attempt leaves on its journal row.
type JobOutcome struct {
	Status       string
	Stage        string
	LastError    string
	Warnings     string
	BytesWritten int64
	SpoolerJobID int64
	PrintedAt    *time.Time
}

type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Encrypted bool      `json:"encrypted"`
	UpdatedAt time.Time `json:"updated_at"`
}
