package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/core"
)

type HealthResponse struct {
	Status           string `json:"status"`
	SpoolerAvailable bool   `json:"spooler_available"`
	Uptime           string `json:"uptime"`
}

type HealthHandler struct {
	submitter *core.Submitter
	started   time.Time
}

func NewHealthHandler(submitter *core.Submitter) *HealthHandler {
	return &HealthHandler{submitter: submitter, started: time.Now()}
}

func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:           "ok",
		SpoolerAvailable: h.submitter.Supported(),
		Uptime:           time.Since(h.started).Round(time.Second).String(),
	})
}
