package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/core"
	"github.com/orrn/rawspool/internal/db"
	"github.com/orrn/rawspool/internal/escpos"
)

type PrintRawRequest struct {
	PrinterName string `json:"printer_name"`
	DataBase64  string `json:"data_base64" binding:"required"`
}

type PrintTextRequest struct {
	PrinterName string `json:"printer_name"`
	Text        string `json:"text" binding:"required"`
	CodePage    string `json:"code_page"`
}

type PrintResponse struct {
	Success bool         `json:"success"`
	Job     *db.PrintJob `json:"job"`
}

type PrintHandler struct {
	jobs *core.JobManager
}

func NewPrintHandler(jobs *core.JobManager) *PrintHandler {
	return &PrintHandler{jobs: jobs}
}

func (h *PrintHandler) PrintRaw(c *gin.Context) {
	var req PrintRawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	job, err := h.jobs.PrintRaw(c.Request.Context(), core.PrintRequest{
		PrinterName: req.PrinterName,
		DataBase64:  req.DataBase64,
		SubmittedBy: c.ClientIP(),
	})
	h.respond(c, job, err)
}

func (h *PrintHandler) PrintText(c *gin.Context) {
	var req PrintTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !escpos.ValidCodePage(req.CodePage) {
		badRequest(c, "unsupported code page: "+req.CodePage)
		return
	}

	job, err := h.jobs.PrintText(c.Request.Context(), core.TextRequest{
		PrinterName: req.PrinterName,
		Text:        req.Text,
		CodePage:    req.CodePage,
		SubmittedBy: c.ClientIP(),
	})
	h.respond(c, job, err)
}

func (h *PrintHandler) respond(c *gin.Context, job *db.PrintJob, err error) {
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
