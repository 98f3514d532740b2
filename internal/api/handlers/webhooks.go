package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/webhook"
)

type WebhookListResponse struct {
	URLs   []string `json:"urls"`
	Events []string `json:"events"`
	Signed bool     `json:"signed"`
	Count  int      `json:"count"`
}

type TestWebhookResponse struct {
	Success bool                 `json:"success"`
	Results []webhook.TestResult `json:"results"`
}

type WebhookHandler struct {
	sender *webhook.Sender
}

func NewWebhookHandler(sender *webhook.Sender) *WebhookHandler {
	return &WebhookHandler{sender: sender}
}

// ListWebhooks reports the configured endpoints. The secret is never returned.
func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	urls := h.sender.URLs()
	c.JSON(http.StatusOK, WebhookListResponse{
		URLs:   urls,
		Events: []string{string(webhook.EventJobPrinted), string(webhook.EventJobFailed)},
		Signed: h.sender.HasSecret(),
		Count:  len(urls),
	})
}

func (h *WebhookHandler) TestWebhooks(c *gin.Context) {
	if !h.sender.Enabled() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no_webhooks", Message: "No webhook URLs are configured"})
		return
	}

	results := h.sender.Test(c.Request.Context())
	success := true
	for _, r := range results {
		success = success && r.Success
	}
	c.JSON(http.StatusOK, TestWebhookResponse{Success: success, Results: results})
}
