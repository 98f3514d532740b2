package core

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/orrn/rawspool/internal/spooler"
)

const (
	DefaultDocumentLabel = "Raw Print Job"

	// WritePrinter takes a 32-bit byte count.
	maxTransferBytes int64 = math.MaxUint32
)

type SubmitterConfig struct {
	DocumentLabel   string
	MaxPayloadBytes int64
}

// Receipt describes a finished submission. It is returned on failure as well,
// so that cleanup warnings of a failed job are not lost.
type Receipt struct {
	Printer      string
	JobID        uint32
	BytesWritten uint32
	Warnings     []CleanupWarning
}

// Submitter sends one RAW job per call to the spooler. It holds no lock;
// concurrent jobs to one printer are arbitrated by the spooler itself.
type Submitter struct {
	spooler    spooler.Spooler
	label      string
	maxPayload int64
}

// NewSubmitter returns a submitter bound to sp. A nil sp yields a submitter
// that rejects every call with ErrUnsupportedPlatform.
func NewSubmitter(sp spooler.Spooler, cfg SubmitterConfig) *Submitter {
	if cfg.DocumentLabel == "" {
		cfg.DocumentLabel = DefaultDocumentLabel
	}
	if cfg.MaxPayloadBytes <= 0 || cfg.MaxPayloadBytes > maxTransferBytes {
		cfg.MaxPayloadBytes = maxTransferBytes
	}
	return &Submitter{
		spooler:    sp,
		label:      cfg.DocumentLabel,
		maxPayload: cfg.MaxPayloadBytes,
	}
}

func (s *Submitter) Supported() bool {
	return s.spooler != nil
}

func (s *Submitter) DocumentLabel() string {
	return s.label
}

// Submit decodes a standard base64 payload and prints it. Nothing reaches the
// spooler when decoding fails.
func (s *Submitter) Submit(printerName, encodedPayload string) (*Receipt, error) {
	if !s.Supported() {
		return &Receipt{Printer: printerName}, &PrintFailure{Stage: StageUnsupported, Printer: printerName}
	}
	payload, err := base64.StdEncoding.DecodeString(encodedPayload)
	if err != nil {
		return &Receipt{Printer: printerName}, &PrintFailure{Stage: StageDecode, Printer: printerName, Err: err}
	}
	return s.SubmitBytes(printerName, payload)
}

func (s *Submitter) SubmitBytes(printerName string, payload []byte) (*Receipt, error) {
	receipt := &Receipt{Printer: printerName}
	if !s.Supported() {
		return receipt, &PrintFailure{Stage: StageUnsupported, Printer: printerName}
	}
	if int64(len(payload)) > s.maxPayload {
		return receipt, &PrintFailure{Stage: StageDecode, Printer: printerName, Err: ErrPayloadTooLarge}
	}
	if strings.TrimSpace(printerName) == "" {
		return receipt, &PrintFailure{Stage: StageOpenPrinter, Err: ErrPrinterNameRequired}
	}
	err := s.transfer(receipt, payload)
	return receipt, err
}

// transfer runs the acquisition chain. Each acquired resource pushes its
// release; the single deferred unwind releases them innermost first.
func (s *Submitter) transfer(receipt *Receipt, payload []byte) error {
	name := receipt.Printer
	var releases releaseStack
	defer func() { receipt.Warnings = releases.unwind() }()

	h, err := s.spooler.OpenPrinter(name)
	if err == nil && h == 0 {
		err = fmt.Errorf("%w: spooler returned a null handle", ErrPrinterNotFound)
	}
	if err != nil {
		return &PrintFailure{Stage: StageOpenPrinter, Printer: name, Err: err, Contacted: true}
	}
	releases.push("close_printer", func() error { return s.spooler.ClosePrinter(h) })

	jobID, err := s.spooler.StartDocument(h, spooler.DocInfo{Name: s.label, DataType: spooler.DataTypeRaw})
	if err == nil && jobID == 0 {
		err = errors.New("spooler returned job id 0")
	}
	if err != nil {
		return &PrintFailure{Stage: StageStartDocument, Printer: name, Err: err, Contacted: true}
	}
	receipt.JobID = jobID
	releases.push("end_document", func() error { return s.spooler.EndDocument(h) })

	if err := s.spooler.StartPage(h); err != nil {
		return &PrintFailure{Stage: StageStartPage, Printer: name, Err: err, Contacted: true}
	}
	releases.push("end_page", func() error { return s.spooler.EndPage(h) })

	written, err := s.spooler.Write(h, payload)
	receipt.BytesWritten = written
	if err == nil && int64(written) != int64(len(payload)) {
		err = ErrShortWrite
	}
	if err != nil {
		return &PrintFailure{
			Stage:     StageWrite,
			Printer:   name,
			Written:   written,
			Expected:  len(payload),
			Err:       err,
			Contacted: true,
		}
	}
	return nil
}

type release struct {
	step string
	fn   func() error
}

type releaseStack []release

func (s *releaseStack) push(step string, fn func() error) {
	*s = append(*s, release{step: step, fn: fn})
}

// unwind runs every release in reverse push order, collecting failures.
func (s *releaseStack) unwind() []CleanupWarning {
	var warnings []CleanupWarning
	for i := len(*s) - 1; i >= 0; i-- {
		r := (*s)[i]
		if err := r.fn(); err != nil {
			warnings = append(warnings, CleanupWarning{Step: r.step, Err: err})
		}
	}
	*s = nil
	return warnings
}
