//go:build windows

package spooler

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/windows"
)

const Available = true

var (
	modWinspool = windows.NewLazySystemDLL("winspool.drv")

	procOpenPrinterW     = modWinspool.NewProc("OpenPrinterW")
	procStartDocPrinterW = modWinspool.NewProc("StartDocPrinterW")
	procStartPagePrinter = modWinspool.NewProc("StartPagePrinter")
	procWritePrinter     = modWinspool.NewProc("WritePrinter")
	procEndPagePrinter   = modWinspool.NewProc("EndPagePrinter")
	procEndDocPrinter    = modWinspool.NewProc("EndDocPrinter")
	procClosePrinter     = modWinspool.NewProc("ClosePrinter")
)

// docInfo1 mirrors DOC_INFO_1W.
type docInfo1 struct {
	docName    *uint16
	outputFile *uint16
	datatype   *uint16
}

type winspool struct{}

// Native returns the winspool.drv binding.
func Native() Spooler {
	return winspool{}
}

func (winspool) OpenPrinter(name string) (Handle, error) {
	pn, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, fmt.Errorf("invalid printer name: %w", err)
	}
	var h windows.Handle
	r1, _, e1 := procOpenPrinterW.Call(uintptr(unsafe.Pointer(pn)), uintptr(unsafe.Pointer(&h)), 0)
	if r1 == 0 {
		if errors.Is(e1, windows.ERROR_INVALID_PRINTER_NAME) {
			return 0, fmt.Errorf("OpenPrinterW failed: %w: %w", ErrPrinterNotFound, e1)
		}
		return 0, callError("OpenPrinterW", e1)
	}
	return Handle(h), nil
}

func (winspool) StartDocument(h Handle, doc DocInfo) (uint32, error) {
	name, err := windows.UTF16PtrFromString(doc.Name)
	if err != nil {
		return 0, fmt.Errorf("invalid document name: %w", err)
	}
	dataType, err := windows.UTF16PtrFromString(doc.DataType)
	if err != nil {
		return 0, fmt.Errorf("invalid data type: %w", err)
	}
	info := docInfo1{docName: name, datatype: dataType}
	r1, _, e1 := procStartDocPrinterW.Call(uintptr(h), 1, uintptr(unsafe.Pointer(&info)))
	runtime.KeepAlive(name)
	runtime.KeepAlive(dataType)
	if r1 == 0 {
		return 0, callError("StartDocPrinterW", e1)
	}
	return uint32(r1), nil
}

func (winspool) StartPage(h Handle) error {
	return boolCall(procStartPagePrinter, "StartPagePrinter", h)
}

func (winspool) Write(h Handle, data []byte) (uint32, error) {
	var buf unsafe.Pointer
	if len(data) > 0 {
		buf = unsafe.Pointer(&data[0])
	}
	var written uint32
	r1, _, e1 := procWritePrinter.Call(uintptr(h), uintptr(buf), uintptr(uint32(len(data))), uintptr(unsafe.Pointer(&written)))
	runtime.KeepAlive(data)
	if r1 == 0 {
		return written, callError("WritePrinter", e1)
	}
	return written, nil
}

func (winspool) EndPage(h Handle) error {
	return boolCall(procEndPagePrinter, "EndPagePrinter", h)
}

func (winspool) EndDocument(h Handle) error {
	return boolCall(procEndDocPrinter, "EndDocPrinter", h)
}

func (winspool) ClosePrinter(h Handle) error {
	return boolCall(procClosePrinter, "ClosePrinter", h)
}

func boolCall(proc *windows.LazyProc, name string, h Handle) error {
	r1, _, e1 := proc.Call(uintptr(h))
	if r1 == 0 {
		return callError(name, e1)
	}
	return nil
}

// callError keeps the last-error code when the call set one.
func callError(name string, err error) error {
	var errno windows.Errno
	if errors.As(err, &errno) && errno != 0 {
		return fmt.Errorf("%s failed: %w", name, errno)
	}
	return fmt.Errorf("%s failed", name)
}
