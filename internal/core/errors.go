package core

import (
	"errors"
	"fmt"

	"github.com/orrn/rawspool/internal/spooler"
)

var (
	ErrUnsupportedPlatform = errors.New("raw printing is not supported on this platform")
	ErrPayloadDecode       = errors.New("payload decode failed")
	ErrHandleOpen          = errors.New("open printer failed")
	ErrDocumentOpen        = errors.New("start document failed")
	ErrPageOpen            = errors.New("start page failed")
	ErrWrite               = errors.New("write to printer failed")

	ErrPayloadTooLarge     = errors.New("payload exceeds the spooler transfer limit")
	ErrPrinterNameRequired = errors.New("printer name is required")
	ErrShortWrite          = errors.New("short write")
	ErrPrinterNotFound     = spooler.ErrPrinterNotFound
	ErrTextEncode          = errors.New("receipt text could not be encoded")

	ErrJobNotFound    = errors.New("job not found")
	ErrAlreadyPrinted = errors.New("job was already printed")
	ErrJobNotFailed   = errors.New("only failed jobs can be deleted")
)

// Stage names the protocol step at which a submission failed.
type Stage string

const (
	StageUnsupported   Stage = "unsupported_platform"
	StageDecode        Stage = "payload_decode"
	StageOpenPrinter   Stage = "handle_open"
	StageStartDocument Stage = "document_open"
	StageStartPage     Stage = "page_open"
	StageWrite         Stage = "write"
)

var stageErrors = map[Stage]error{
	StageUnsupported:   ErrUnsupportedPlatform,
	StageDecode:        ErrPayloadDecode,
	StageOpenPrinter:   ErrHandleOpen,
	StageStartDocument: ErrDocumentOpen,
	StageStartPage:     ErrPageOpen,
	StageWrite:         ErrWrite,
}

// PrintFailure is the primary error of a failed submission. errors.Is matches
// the sentinel of its stage as well as the wrapped cause.
type PrintFailure struct {
	Stage   Stage
	Printer string
	// Written and Expected are only meaningful for StageWrite.
	Written  uint32
	Expected int
	Err      error
	// Contacted is false when the failure happened before any spooler call.
	Contacted bool
}

// NotFound reports whether the failure means the named printer does not exist.
func (f *PrintFailure) NotFound() bool {
	return f.Stage == StageOpenPrinter && errors.Is(f.Err, ErrPrinterNotFound)
}

func (f *PrintFailure) Error() string {
	base := stageErrors[f.Stage]
	if base == nil {
		base = errors.New(string(f.Stage))
	}
	msg := base.Error()
	if f.Printer != "" && f.Stage != StageUnsupported && f.Stage != StageDecode {
		msg = fmt.Sprintf("%s (printer %q)", msg, f.Printer)
	}
	if f.Stage == StageWrite {
		msg = fmt.Sprintf("%s: %d of %d bytes written", msg, f.Written, f.Expected)
	}
	if f.Err != nil && f.Err != base {
		msg = fmt.Sprintf("%s: %v", msg, f.Err)
	}
	return msg
}

func (f *PrintFailure) Unwrap() error {
	return f.Err
}

func (f *PrintFailure) Is(target error) bool {
	return stageErrors[f.Stage] == target
}

// StageOf reports the stage of a PrintFailure anywhere in err's chain.
func StageOf(err error) (Stage, bool) {
	var f *PrintFailure
	if errors.As(err, &f) {
		return f.Stage, true
	}
	return "", false
}

// CleanupWarning records a release step that failed after its resource was
// acquired. It never replaces the primary result of a submission.
type CleanupWarning struct {
	Step string
	Err  error
}

func (w CleanupWarning) String() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}
