// Package archive moves old printed jobs out of the journal into monthly
// SQLite files so the live journal stays small.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orrn/rawspool/internal/logging"
)

var ErrArchiveNotFound = errors.New("archive not found")

type Archiver struct {
	db          *sql.DB
	archivePath string
	archiveDays int
	interval    time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
	mu          sync.Mutex
	now         func() time.Time
}

type ArchiveFile struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	JobCount  int       `json:"job_count"`
	Month     string    `json:"month"`
}

type Config struct {
	ArchivePath string
	ArchiveDays int
	Interval    time.Duration
}

func NewArchiver(db *sql.DB, cfg Config) (*Archiver, error) {
	if cfg.ArchivePath == "" {
		cfg.ArchivePath = "./data/archives"
	}
	if cfg.ArchiveDays <= 0 {
		cfg.ArchiveDays = 30
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}

	if err := os.MkdirAll(cfg.ArchivePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	return &Archiver{
		db:          db,
		archivePath: cfg.ArchivePath,
		archiveDays: cfg.ArchiveDays,
		interval:    cfg.Interval,
		stopCh:      make(chan struct{}),
		now:         func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.run()
}

// Stop ends the ticker loop and waits for an archive pass in progress.
func (a *Archiver) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			n, err := a.RunArchive(context.Background())
			if err != nil {
				logging.Error("journal archive failed", "error", err)
				continue
			}
			if n > 0 {
				logging.Info("journal archived", "jobs", n)
			}
		}
	}
}

// RunArchive copies printed jobs older than the retention window into the
// archive file of the current month, then removes them from the journal.
// Jobs that have not printed are never archived.
func (a *Archiver) RunArchive(ctx context.Context) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	cutoff := now.AddDate(0, 0, -a.archiveDays)

	jobs, err := a.jobsForArchival(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to get jobs for archival: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	archivePath := filepath.Join(a.archivePath, archiveName(now))
	archiveDB, err := openArchiveDB(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive database: %w", err)
	}
	defer archiveDB.Close()

	tx, err := archiveDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin archive transaction: %w", err)
	}
	for _, job := range jobs {
		if err := insertArchivedJob(ctx, tx, job); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert job %s into archive: %w", job.id, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO archive_metadata (id, archived_at, source_database)
		VALUES (1, ?, 'journal')
	`, now); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("failed to update archive metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	if err := a.deleteArchivedJobs(ctx, jobs); err != nil {
		return 0, fmt.Errorf("failed to delete archived jobs: %w", err)
	}
	return len(jobs), nil
}

type archivedJob struct {
	id            string
	printerName   string
	documentLabel string
	source        string
	payloadBase64 string
	payloadBytes  int
	bytesWritten  int64
	spoolerJobID  int64
	attempts      int
	warnings      string
	submittedBy   string
	createdAt     time.Time
	printedAt     time.Time
}

func (a *Archiver) jobsForArchival(ctx context.Context, cutoff time.Time) ([]*archivedJob, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, printer_name, document_label, source, payload_base64, payload_bytes,
			bytes_written, spooler_job_id, attempts, warnings, submitted_by, created_at, printed_at
		FROM print_jobs
		WHERE status = 'printed' AND printed_at IS NOT NULL AND printed_at < ?
		ORDER BY printed_at ASC
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*archivedJob
	for rows.Next() {
		j := &archivedJob{}
		if err := rows.Scan(
			&j.id, &j.printerName, &j.documentLabel, &j.source, &j.payloadBase64, &j.payloadBytes,
			&j.bytesWritten, &j.spoolerJobID, &j.attempts, &j.warnings, &j.submittedBy,
			&j.createdAt, &j.printedAt,
		); err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func openArchiveDB(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = conn.Exec(`
		CREATE TABLE IF NOT EXISTS print_jobs (
			id TEXT PRIMARY KEY,
			printer_name TEXT NOT NULL,
			document_label TEXT NOT NULL,
			source TEXT NOT NULL,
			payload_base64 TEXT NOT NULL,
			payload_bytes INTEGER NOT NULL,
			bytes_written INTEGER NOT NULL,
			spooler_job_id INTEGER NOT NULL,
			attempts INTEGER NOT NULL,
			warnings TEXT NOT NULL DEFAULT '',
			submitted_by TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			printed_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS archive_metadata (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			archived_at DATETIME,
			source_database TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_archive_jobs_printed_at ON print_jobs(printed_at);
	`)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func insertArchivedJob(ctx context.Context, tx *sql.Tx, j *archivedJob) error {
	_, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO print_jobs (id, printer_name, document_label, source, payload_base64,
			payload_bytes, bytes_written, spooler_job_id, attempts, warnings, submitted_by, created_at, printed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.id, j.printerName, j.documentLabel, j.source, j.payloadBase64,
		j.payloadBytes, j.bytesWritten, j.spoolerJobID, j.attempts, j.warnings, j.submittedBy,
		j.createdAt, j.printedAt)
	return err
}

func (a *Archiver) deleteArchivedJobs(ctx context.Context, jobs []*archivedJob) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, j := range jobs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM print_jobs WHERE id = ? AND status = 'printed'", j.id); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func archiveName(t time.Time) string {
	return fmt.Sprintf("archive_%s.db", t.Format("2006_01"))
}

// ListArchives returns the archive files, newest month first.
func (a *Archiver) ListArchives() ([]*ArchiveFile, error) {
	entries, err := os.ReadDir(a.archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	archives := []*ArchiveFile{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "archive_") || !strings.HasSuffix(e.Name(), ".db") {
			continue
		}
		info, err := a.GetArchiveInfo(e.Name())
		if err != nil {
			logging.Warn("skipping unreadable archive", "file", e.Name(), "error", err)
			continue
		}
		archives = append(archives, info)
	}
	sort.Slice(archives, func(i, j int) bool { return archives[i].Filename > archives[j].Filename })
	return archives, nil
}

func (a *Archiver) GetArchiveInfo(filename string) (*ArchiveFile, error) {
	if filename != filepath.Base(filename) || !strings.HasPrefix(filename, "archive_") {
		return nil, ErrArchiveNotFound
	}
	path := filepath.Join(a.archivePath, filename)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrArchiveNotFound
		}
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	f := &ArchiveFile{
		Filename:  filename,
		Size:      info.Size(),
		CreatedAt: info.ModTime(),
		Month:     strings.TrimSuffix(strings.TrimPrefix(filename, "archive_"), ".db"),
	}

	conn, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := conn.QueryRow("SELECT COUNT(*) FROM print_jobs").Scan(&f.JobCount); err != nil {
		return nil, fmt.Errorf("failed to count archived jobs: %w", err)
	}
	return f, nil
}

// Path returns the on-disk location of an archive file for download.
func (a *Archiver) Path(filename string) (string, error) {
	if _, err := a.GetArchiveInfo(filename); err != nil {
		return "", err
	}
	return filepath.Join(a.archivePath, filename), nil
}
