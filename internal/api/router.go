package api

import (
	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/api/handlers"
	"github.com/orrn/rawspool/internal/api/middleware"
	"github.com/orrn/rawspool/internal/archive"
	"github.com/orrn/rawspool/internal/config"
	"github.com/orrn/rawspool/internal/core"
	"github.com/orrn/rawspool/internal/webhook"
)

// Deps are the router's collaborators. Archiver and Webhooks may be nil, in
// which case their routes are not registered.
type Deps struct {
	Config   *config.Config
	Jobs     *core.JobManager
	Auth     *middleware.AuthMiddleware
	Archiver *archive.Archiver
	Webhooks *webhook.Sender
}

func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.BodyLimit(deps.Config.Server.MaxBodyBytes),
	)

	health := handlers.NewHealthHandler(deps.Jobs.Submitter())
	r.GET("/health", health.Health)

	apiGroup := r.Group("/api")

	auth := apiGroup.Group("/auth")
	{
		auth.POST("/setup", deps.Auth.SetupHandler)
		auth.POST("/login", deps.Auth.LoginHandler)
		auth.POST("/logout", deps.Auth.LogoutHandler)
		auth.GET("/status", deps.Auth.StatusHandler)
	}

	protected := apiGroup.Group("")
	protected.Use(deps.Auth.RequireAuth())

	printing := handlers.NewPrintHandler(deps.Jobs)
	protected.POST("/print/raw", printing.PrintRaw)
	protected.POST("/print/text", printing.PrintText)

	printers := handlers.NewPrinterHandler(deps.Jobs)
	protected.POST("/printers/test", printers.TestPrinter)

	jobs := handlers.NewJobHandler(deps.Jobs)
	protected.GET("/jobs", jobs.ListJobs)
	protected.GET("/jobs/stats", jobs.GetStats)
	protected.GET("/jobs/:id", jobs.GetJob)
	protected.POST("/jobs/:id/reprint", jobs.Reprint)
	protected.DELETE("/jobs/:id", jobs.DeleteJob)

	settings := handlers.NewSettingsHandler(deps.Jobs, deps.Config)
	protected.GET("/settings", settings.GetSettings)
	protected.PUT("/settings/printer", settings.UpdatePrinter)
	protected.DELETE("/settings/printer", settings.ResetPrinter)
	protected.GET("/settings/server", settings.GetServerConfig)
	protected.PUT("/settings/password", deps.Auth.ChangePasswordHandler)

	if deps.Webhooks != nil {
		webhooks := handlers.NewWebhookHandler(deps.Webhooks)
		protected.GET("/webhooks", webhooks.ListWebhooks)
		protected.POST("/webhooks/test", webhooks.TestWebhooks)
	}

	if deps.Archiver != nil {
		archives := handlers.NewArchiveHandler(deps.Archiver)
		protected.GET("/archives", archives.ListArchives)
		protected.POST("/archives/run", archives.RunArchive)
		protected.GET("/archives/:filename", archives.GetArchiveInfo)
		protected.GET("/archives/:filename/download", archives.DownloadArchive)
	}

	return r
}
