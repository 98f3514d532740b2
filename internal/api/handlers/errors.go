package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/core"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	JobID   string `json:"job_id,omitempty"`
}

// statusForError maps a print failure to an HTTP status and a stable error code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrPrinterNameRequired):
		return http.StatusBadRequest, "printer_name_required"
	case errors.Is(err, core.ErrTextEncode):
		return http.StatusBadRequest, "text_encode"
	case errors.Is(err, core.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, string(core.StageDecode)
	case errors.Is(err, core.ErrPayloadDecode):
		return http.StatusBadRequest, string(core.StageDecode)
	case errors.Is(err, core.ErrUnsupportedPlatform):
		return http.StatusNotImplemented, string(core.StageUnsupported)
	case errors.Is(err, core.ErrHandleOpen):
		var f *core.PrintFailure
		if errors.As(err, &f) && f.NotFound() {
			return http.StatusNotFound, string(core.StageOpenPrinter)
		}
		return http.StatusBadGateway, string(core.StageOpenPrinter)
	case errors.Is(err, core.ErrDocumentOpen):
		return http.StatusBadGateway, string(core.StageStartDocument)
	case errors.Is(err, core.ErrPageOpen):
		return http.StatusBadGateway, string(core.StageStartPage)
	case errors.Is(err, core.ErrWrite):
		return http.StatusBadGateway, string(core.StageWrite)
	case errors.Is(err, core.ErrJobNotFound):
		return http.StatusNotFound, "job_not_found"
	case errors.Is(err, core.ErrAlreadyPrinted):
		return http.StatusConflict, "already_printed"
	case errors.Is(err, core.ErrJobNotFailed):
		return http.StatusConflict, "job_not_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func respondError(c *gin.Context, err error, jobID string) {
	status, code := statusForError(err)
	c.JSON(status, ErrorResponse{Error: code, Message: err.Error(), JobID: jobID})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
}
