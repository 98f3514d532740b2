// Package spooler describes the operating system print spooler calls used to
// submit a RAW job, and binds them to the native spooler where one exists.
package spooler

import "errors"

// ErrPrinterNotFound is returned by OpenPrinter when no printer of that name
// is installed.
var ErrPrinterNotFound = errors.New("printer not found")

// DataTypeRaw tells the spooler the document is device-ready and must not be
// translated by the printer driver.
const DataTypeRaw = "RAW"

// Handle is an open printer handle. The zero value is never a valid handle.
type Handle uintptr

// DocInfo is the document description passed to StartDocument.
type DocInfo struct {
	Name     string
	DataType string
}

// Spooler is the set of blocking spooler calls a RAW job needs. Every method
// may suspend the caller for the duration of physical or queued I/O.
type Spooler interface {
	OpenPrinter(name string) (Handle, error)
	// StartDocument returns the spooler job id; zero means the document was not opened.
	StartDocument(h Handle, doc DocInfo) (uint32, error)
	StartPage(h Handle) error
	// Write returns the number of bytes the spooler accepted.
	Write(h Handle, data []byte) (uint32, error)
	EndPage(h Handle) error
	EndDocument(h Handle) error
	ClosePrinter(h Handle) error
}
