package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/config"
	"github.com/orrn/rawspool/internal/core"
)

type SettingsResponse struct {
	PrinterName      string `json:"printer_name"`
	DocumentLabel    string `json:"document_label"`
	CodePage         string `json:"code_page"`
	SpoolerAvailable bool   `json:"spooler_available"`
}

type UpdatePrinterRequest struct {
	PrinterName string `json:"printer_name" binding:"required"`
}

type ServerConfigResponse struct {
	Host            string `json:"host"`
	Port            int    `json:"port"`
	ReadTimeout     string `json:"read_timeout"`
	WriteTimeout    string `json:"write_timeout"`
	MaxBodyBytes    int64  `json:"max_body_bytes"`
	DatabasePath    string `json:"database_path"`
	DefaultPrinter  string `json:"default_printer"`
	MaxPayloadBytes int64  `json:"max_payload_bytes"`
	AuthEnabled     bool   `json:"auth_enabled"`
	WebhookCount    int    `json:"webhook_count"`
	LogLevel        string `json:"log_level"`
	LogFormat       string `json:"log_format"`
}

type SettingsHandler struct {
	jobs   *core.JobManager
	config *config.Config
}

func NewSettingsHandler(jobs *core.JobManager, cfg *config.Config) *SettingsHandler {
	return &SettingsHandler{
		jobs:   jobs,
		config: cfg,
	}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, SettingsResponse{
		PrinterName:      h.jobs.DefaultPrinter(c.Request.Context()),
		DocumentLabel:    h.jobs.Submitter().DocumentLabel(),
		CodePage:         h.config.Printing.CodePage,
		SpoolerAvailable: h.jobs.Submitter().Supported(),
	})
}

func (h *SettingsHandler) UpdatePrinter(c *gin.Context) {
	var req UpdatePrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if err := h.jobs.SetDefaultPrinter(ctx, req.PrinterName); err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "printer_name": strings.TrimSpace(req.PrinterName)})
}

// ResetPrinter falls back to the configured default printer.
func (h *SettingsHandler) ResetPrinter(c *gin.Context) {
	name, err := h.jobs.ClearDefaultPrinter(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "printer_name": name})
}

func (h *SettingsHandler) GetServerConfig(c *gin.Context) {
	cfg := h.config
	c.JSON(http.StatusOK, ServerConfigResponse{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout.String(),
		WriteTimeout:    cfg.Server.WriteTimeout.String(),
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		DatabasePath:    cfg.Database.Path,
		DefaultPrinter:  cfg.Printing.DefaultPrinter,
		MaxPayloadBytes: cfg.Printing.MaxPayloadBytes,
		AuthEnabled:     cfg.Auth.Enabled,
		WebhookCount:    len(cfg.Webhooks.URLs),
		LogLevel:        cfg.Logging.Level,
		LogFormat:       cfg.Logging.Format,
	})
}
