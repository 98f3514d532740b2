package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orrn/rawspool/internal/core"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&core.PrintFailure{Stage: core.StageUnsupported}, http.StatusNotImplemented, "unsupported_platform"},
		{&core.PrintFailure{Stage: core.StageDecode, Err: errors.New("illegal base64")}, http.StatusBadRequest, "payload_decode"},
		{&core.PrintFailure{Stage: core.StageDecode, Err: core.ErrPayloadTooLarge}, http.StatusRequestEntityTooLarge, "payload_decode"},
		{&core.PrintFailure{Stage: core.StageOpenPrinter, Err: core.ErrPrinterNameRequired}, http.StatusBadRequest, "printer_name_required"},
		{&core.PrintFailure{Stage: core.StageOpenPrinter, Printer: "X", Err: core.ErrPrinterNotFound, Contacted: true}, http.StatusNotFound, "handle_open"},
		{&core.PrintFailure{Stage: core.StageOpenPrinter, Printer: "X", Err: errors.New("Access is denied."), Contacted: true}, http.StatusBadGateway, "handle_open"},
		{&core.PrintFailure{Stage: core.StageStartDocument}, http.StatusBadGateway, "document_open"},
		{&core.PrintFailure{Stage: core.StageStartPage}, http.StatusBadGateway, "page_open"},
		{&core.PrintFailure{Stage: core.StageWrite, Err: core.ErrShortWrite}, http.StatusBadGateway, "write"},
		{fmt.Errorf("%w: bad rune", core.ErrTextEncode), http.StatusBadRequest, "text_encode"},
		{core.ErrJobNotFound, http.StatusNotFound, "job_not_found"},
		{core.ErrAlreadyPrinted, http.StatusConflict, "already_printed"},
		{core.ErrJobNotFailed, http.StatusConflict, "job_not_failed"},
		{errors.New("database is locked"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			status, code := statusForError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
