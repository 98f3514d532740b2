package db

const (
	jobColumns = `id, printer_name, document_label, source, payload_base64, payload_bytes, status, stage,
		last_error, warnings, bytes_written, spooler_job_id, attempts, submitted_by, created_at, printed_at`

	InsertJob = `
		INSERT INTO print_jobs (id, printer_name, document_label, source, payload_base64, payload_bytes, status, attempts, submitted_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetJobByID = `SELECT ` + jobColumns + ` FROM print_jobs WHERE id = ?`

	ListOpenJobs = `
		SELECT ` + jobColumns + ` FROM print_jobs
		WHERE status != 'printed'
		ORDER BY created_at DESC
		LIMIT ?
	`

	ListJobsByStatus = `
		SELECT ` + jobColumns + ` FROM print_jobs
		WHERE status = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	BeginJobAttempt = `
		UPDATE print_jobs SET status = 'pending', printer_name = ?, attempts = attempts + 1
		WHERE id = ? AND status != 'printed'
	`

	RecordJobOutcome = `
		UPDATE print_jobs SET
			status = ?, stage = ?, last_error = ?, warnings = ?,
			bytes_written = ?, spooler_job_id = ?, printed_at = ?
		WHERE id = ?
	`

	CountJobsByStatus = `SELECT status, COUNT(*) FROM print_jobs GROUP BY status`

	DeleteFailedJob = `DELETE FROM print_jobs WHERE id = ? AND status = 'failed'`
)

const (
	GetSetting = `SELECT value, encrypted, updated_at FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value, encrypted, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = ?, encrypted = ?, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)
