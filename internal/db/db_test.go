package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "rawspool.db"))
	require.NoError(t, err)
	SetDB(conn)
	t.Cleanup(func() {
		conn.Close()
		SetDB(nil)
	})
	return conn
}

func newJob(id string, created time.Time) *PrintJob {
	return &PrintJob{
		ID:            id,
		PrinterName:   "POS-80C",
		DocumentLabel: "Raw Print Job",
		Source:        "raw",
		PayloadBase64: "G0BoaQ==",
		PayloadBytes:  4,
		SubmittedBy:   "127.0.0.1",
		CreatedAt:     created,
	}
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rawspool.db")
	conn, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = Open(path)
	require.NoError(t, err)
	defer conn.Close()

	var count int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestRunMigrations_FailureRollsBack(t *testing.T) {
	conn, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "broken.db"))
	require.NoError(t, err)
	defer conn.Close()

	fsys := fstest.MapFS{
		"migrations/001_ok.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"migrations/002_bad.sql": {Data: []byte("CREATE TABLE (;")},
	}
	err = RunMigrations(conn, fsys)
	assert.ErrorContains(t, err, "failed to execute migration 002_bad")

	applied, err := appliedVersions(conn)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"001_ok": true}, applied)
}

func TestJobs_CreateGetAndOutcome(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	require.NoError(t, Jobs.CreateJob(ctx, newJob("job-1", created)))

	j, err := Jobs.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "pending", j.Status)
	assert.Equal(t, "G0BoaQ==", j.PayloadBase64)
	assert.True(t, created.Equal(j.CreatedAt))
	assert.Nil(t, j.PrintedAt)

	printed := created.Add(time.Second)
	require.NoError(t, Jobs.RecordOutcome(ctx, "job-1", JobOutcome{
		Status:       "printed",
		Warnings:     "end_document: boom",
		BytesWritten: 4,
		SpoolerJobID: 17,
		PrintedAt:    &printed,
	}))

	j, err = Jobs.GetJobByID(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "printed", j.Status)
	assert.Equal(t, int64(4), j.BytesWritten)
	assert.Equal(t, int64(17), j.SpoolerJobID)
	assert.Equal(t, "end_document: boom", j.Warnings)
	require.NotNil(t, j.PrintedAt)
	assert.True(t, printed.Equal(*j.PrintedAt))
}

func TestJobs_GetMissing(t *testing.T) {
	setupTestDB(t)
	_, err := Jobs.GetJobByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestJobs_ListOpenAndCounts(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, Jobs.CreateJob(ctx, newJob(id, base.Add(time.Duration(i)*time.Minute))))
	}
	require.NoError(t, Jobs.RecordOutcome(ctx, "a", JobOutcome{Status: "printed"}))
	require.NoError(t, Jobs.RecordOutcome(ctx, "b", JobOutcome{Status: "failed", Stage: "write", LastError: "offline"}))

	open, err := Jobs.ListOpenJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "c", open[0].ID)
	assert.Equal(t, "b", open[1].ID)
	assert.Equal(t, "offline", open[1].LastError)

	failed, err := Jobs.ListJobsByStatus(ctx, "failed", 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "b", failed[0].ID)

	assert.ErrorIs(t, Jobs.DeleteFailedJob(ctx, "a"), ErrNoChange)
	require.NoError(t, Jobs.DeleteFailedJob(ctx, "b"))
	assert.ErrorIs(t, Jobs.DeleteFailedJob(ctx, "b"), ErrNoChange)

	counts, err := Jobs.CountJobsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"printed": 1, "pending": 1}, counts)
}

func TestJobs_BeginAttempt(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()
	require.NoError(t, Jobs.CreateJob(ctx, newJob("r", time.Now().UTC())))
	require.NoError(t, Jobs.RecordOutcome(ctx, "r", JobOutcome{Status: "failed"}))

	require.NoError(t, Jobs.BeginAttempt(ctx, "r", "Kitchen"))
	j, err := Jobs.GetJobByID(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, "pending", j.Status)
	assert.Equal(t, "Kitchen", j.PrinterName)
	assert.Equal(t, 1, j.Attempts)

	require.NoError(t, Jobs.RecordOutcome(ctx, "r", JobOutcome{Status: "printed"}))
	assert.ErrorIs(t, Jobs.BeginAttempt(ctx, "r", "Kitchen"), ErrNoChange)
}

func TestSettings_RoundTrip(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	_, err := Settings.GetSetting(ctx, "printer_name")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	require.NoError(t, Settings.SetSetting(ctx, "printer_name", "POS-80C", false))
	require.NoError(t, Settings.SetSetting(ctx, "printer_name", "Kitchen", false))

	s, err := Settings.GetSetting(ctx, "printer_name")
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", s.Value)
	assert.False(t, s.Encrypted)

	require.NoError(t, Settings.DeleteSetting(ctx, "printer_name"))
	_, err = Settings.GetSetting(ctx, "printer_name")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestJobs_DatabaseErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	SetDB(conn)
	t.Cleanup(func() {
		conn.Close()
		SetDB(nil)
	})
	ctx := context.Background()
	boom := errors.New("disk I/O error")

	mock.ExpectExec("INSERT INTO print_jobs").WillReturnError(boom)
	err = Jobs.CreateJob(ctx, newJob("x", time.Now()))
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "failed to create job")

	mock.ExpectExec("UPDATE print_jobs SET status = 'pending'").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, Jobs.BeginAttempt(ctx, "x", "POS-80C"), ErrNoChange)

	mock.ExpectQuery("SELECT status, COUNT").WillReturnError(boom)
	_, err = Jobs.CountJobsByStatus(ctx)
	assert.ErrorContains(t, err, "failed to count jobs")

	mock.ExpectQuery("SELECT value, encrypted").WillReturnError(boom)
	_, err = Settings.GetSetting(ctx, "printer_name")
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, mock.ExpectationsWereMet())
}
