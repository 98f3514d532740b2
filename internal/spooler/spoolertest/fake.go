// Package spoolertest provides a recording in-memory spooler for tests.
package spoolertest

import (
	"sync"

	"github.com/orrn/rawspool/internal/spooler"
)

var _ spooler.Spooler = (*Fake)(nil)

// Call is one recorded spooler invocation.
type Call struct {
	Method  string
	Handle  spooler.Handle
	Printer string
	Doc     spooler.DocInfo
	Data    []byte
}

// Fake records every call and fails on demand. The zero value accepts any
// printer name and completes every step.
type Fake struct {
	// Printers restricts OpenPrinter to these names when non-nil; unknown
	// names get a null handle without an error.
	Printers map[string]bool

	OpenErr      error
	StartDocErr  error
	StartPageErr error
	WriteErr     error
	EndPageErr   error
	EndDocErr    error
	CloseErr     error

	// ZeroJobID makes StartDocument return job id 0 without an error.
	ZeroJobID bool
	// ShortBy makes Write report that many bytes fewer than it was given.
	ShortBy int

	mu         sync.Mutex
	calls      []Call
	nextHandle spooler.Handle
	nextJob    uint32
	open       map[spooler.Handle]bool
}

func (f *Fake) record(c Call) {
	f.calls = append(f.calls, c)
}

func (f *Fake) OpenPrinter(name string) (spooler.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "OpenPrinter", Printer: name})
	if f.OpenErr != nil {
		return 0, f.OpenErr
	}
	if f.Printers != nil && !f.Printers[name] {
		return 0, nil
	}
	f.nextHandle++
	if f.open == nil {
		f.open = make(map[spooler.Handle]bool)
	}
	f.open[f.nextHandle] = true
	return f.nextHandle, nil
}

func (f *Fake) StartDocument(h spooler.Handle, doc spooler.DocInfo) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "StartDocument", Handle: h, Doc: doc})
	if f.StartDocErr != nil {
		return 0, f.StartDocErr
	}
	if f.ZeroJobID {
		return 0, nil
	}
	f.nextJob++
	return f.nextJob, nil
}

func (f *Fake) StartPage(h spooler.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "StartPage", Handle: h})
	return f.StartPageErr
}

func (f *Fake) Write(h spooler.Handle, data []byte) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "Write", Handle: h, Data: append([]byte(nil), data...)})
	if f.WriteErr != nil {
		return 0, f.WriteErr
	}
	n := len(data) - f.ShortBy
	if n < 0 {
		n = 0
	}
	return uint32(n), nil
}

func (f *Fake) EndPage(h spooler.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "EndPage", Handle: h})
	return f.EndPageErr
}

func (f *Fake) EndDocument(h spooler.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "EndDocument", Handle: h})
	return f.EndDocErr
}

func (f *Fake) ClosePrinter(h spooler.Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(Call{Method: "ClosePrinter", Handle: h})
	delete(f.open, h)
	return f.CloseErr
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Methods returns the recorded method names in order.
func (f *Fake) Methods() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	methods := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		methods = append(methods, c.Method)
	}
	return methods
}

// Written returns the concatenated payload of every Write call.
func (f *Fake) Written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []byte
	for _, c := range f.calls {
		if c.Method == "Write" {
			out = append(out, c.Data...)
		}
	}
	return out
}

// OpenHandles reports handles opened and not yet closed.
func (f *Fake) OpenHandles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}
