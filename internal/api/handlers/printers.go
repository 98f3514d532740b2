package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/core"
)

type TestPrintRequest struct {
	PrinterName string `json:"printer_name"`
	CodePage    string `json:"code_page"`
}

type PrinterHandler struct {
	jobs *core.JobManager
}

func NewPrinterHandler(jobs *core.JobManager) *PrinterHandler {
	return &PrinterHandler{jobs: jobs}
}

// TestPrinter prints a short ESC/POS test receipt. The body is optional.
func (h *PrinterHandler) TestPrinter(c *gin.Context) {
	var req TestPrintRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	ctx := c.Request.Context()
	printer := strings.TrimSpace(req.PrinterName)
	if printer == "" {
		printer = h.jobs.DefaultPrinter(ctx)
	}

	job, err := h.jobs.PrintText(ctx, core.TextRequest{
		PrinterName: printer,
		Text:        testReceipt(printer, time.Now()),
		CodePage:    req.CodePage,
		SubmittedBy: c.ClientIP(),
	})
	if err != nil {
		var jobID string
		if job != nil {
			jobID = job.ID
		}
		respondError(c, err, jobID)
		return
	}
	c.JSON(http.StatusOK, PrintResponse{Success: true, Job: job})
}

func testReceipt(printer string, now time.Time) string {
	var b strings.Builder
	b.WriteString("RAWSPOOL TEST PRINT\n")
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "Printer: %s\n", printer)
	fmt.Fprintf(&b, "Time:    %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("--------------------------------\n")
	b.WriteString("If you can read this, RAW\nprinting works.\n")
	return b.String()
}
