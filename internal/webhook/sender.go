package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/orrn/rawspool/internal/db"
	"github.com/orrn/rawspool/internal/logging"
)

type Event string

const (
	EventJobPrinted Event = "job_printed"
	EventJobFailed  Event = "job_failed"
)

type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	Signature string      `json:"signature,omitempty"`
}

type JobEventData struct {
	JobID        string `json:"job_id"`
	PrinterName  string `json:"printer_name"`
	Status       string `json:"status"`
	Stage        string `json:"stage,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	Warnings     string `json:"warnings,omitempty"`
	BytesWritten int64  `json:"bytes_written"`
	Attempts     int    `json:"attempts"`
}

type Config struct {
	URLs        []string
	Secret      string
	RetryCount  int
	RetryDelay  time.Duration
	Timeout     time.Duration
	WorkerCount int
	QueueSize   int
}

type task struct {
	url     string
	event   Event
	payload *Payload
	attempt int
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("http error: %d", e.code)
}

// Sender posts job events to every configured URL from a bounded queue.
// Events are dropped, with a warning, when the queue is full.
type Sender struct {
	urls        []string
	secret      string
	httpClient  *http.Client
	retryCount  int
	retryDelay  time.Duration
	workerCount int
	queue       chan *task
	stopCh      chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewSender(cfg Config) *Sender {
	if cfg.RetryCount <= 0 {
		cfg.RetryCount = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}

	return &Sender{
		urls:   append([]string(nil), cfg.URLs...),
		secret: cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		retryCount:  cfg.RetryCount,
		retryDelay:  cfg.RetryDelay,
		workerCount: cfg.WorkerCount,
		queue:       make(chan *task, cfg.QueueSize),
		stopCh:      make(chan struct{}),
	}
}

func (s *Sender) Enabled() bool {
	return len(s.urls) > 0
}

func (s *Sender) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
}

// Stop ends the workers. Queued events that were not picked up are discarded.
func (s *Sender) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Sender) SendJobPrinted(job *db.PrintJob) {
	s.enqueue(EventJobPrinted, jobData(job))
}

func (s *Sender) SendJobFailed(job *db.PrintJob) {
	s.enqueue(EventJobFailed, jobData(job))
}

func jobData(job *db.PrintJob) *JobEventData {
	return &JobEventData{
		JobID:        job.ID,
		PrinterName:  job.PrinterName,
		Status:       job.Status,
		Stage:        job.Stage,
		ErrorMessage: job.LastError,
		Warnings:     job.Warnings,
		BytesWritten: job.BytesWritten,
		Attempts:     job.Attempts,
	}
}

func (s *Sender) enqueue(event Event, data interface{}) {
	for _, url := range s.urls {
		t := &task{
			url:   url,
			event: event,
			payload: &Payload{
				Event:     string(event),
				Timestamp: time.Now().UTC(),
				Data:      data,
			},
		}

		select {
		case s.queue <- t:
		default:
			logging.Warn("webhook queue full, dropping event", "event", event, "url", url)
		}
	}
}

func (s *Sender) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		case t := <-s.queue:
			if err := s.sendWithRetry(t); err != nil {
				logging.Error("webhook delivery failed",
					"worker", id, "url", t.url, "event", t.event, "attempts", t.attempt, "error", err)
			}
		}
	}
}

func (s *Sender) sendWithRetry(t *task) error {
	var lastErr error
	for t.attempt < s.retryCount {
		t.attempt++

		err := s.sendRequest(t.url, t.payload)
		if err == nil {
			return nil
		}
		lastErr = err

		if isClientError(err) {
			return err
		}

		if t.attempt < s.retryCount {
			backoff := s.retryDelay * time.Duration(1<<(t.attempt-1))
			logging.Debug("retrying webhook",
				"url", t.url, "attempt", t.attempt, "max", s.retryCount, "backoff", backoff.String(), "error", err)

			select {
			case <-s.stopCh:
				return fmt.Errorf("shutdown requested: %w", lastErr)
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) sendRequest(url string, payload *Payload) error {
	return s.sendRequestContext(context.Background(), url, payload)
}

func (s *Sender) sendRequestContext(ctx context.Context, url string, payload *Payload) error {
	dataBytes, err := json.Marshal(payload.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	if s.secret != "" {
		payload.Signature = Sign(dataBytes, s.secret)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", payload.Event)
	if payload.Signature != "" {
		req.Header.Set("X-Webhook-Signature", payload.Signature)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode}
	}
	return nil
}

// Sign is the hex HMAC-SHA256 of the event's data object.
func Sign(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500
}

type TestResult struct {
	URL        string `json:"url"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

// URLs returns the configured endpoints.
func (s *Sender) URLs() []string {
	return append([]string(nil), s.urls...)
}

func (s *Sender) HasSecret() bool {
	return s.secret != ""
}

// Test posts a signed "test" event to every endpoint once, bypassing the queue.
func (s *Sender) Test(ctx context.Context) []TestResult {
	results := make([]TestResult, 0, len(s.urls))
	for _, url := range s.urls {
		payload := &Payload{
			Event:     "test",
			Timestamp: time.Now().UTC(),
			Data:      map[string]interface{}{"test": true, "message": "Test webhook from rawspool"},
		}
		r := TestResult{URL: url}
		err := s.sendRequestContext(ctx, url, payload)
		var se *statusError
		switch {
		case err == nil:
			r.Success = true
			r.Message = "Webhook test successful"
		case errors.As(err, &se):
			r.StatusCode = se.code
			r.Message = fmt.Sprintf("Webhook returned status %d", se.code)
		default:
			r.Message = fmt.Sprintf("Failed to send webhook: %v", err)
		}
		results = append(results, r)
	}
	return results
}
