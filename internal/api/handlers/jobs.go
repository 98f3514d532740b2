package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/core"
	"github.com/orrn/rawspool/internal/db"
)

type ListJobsQuery struct {
	Limit  int    `form:"limit" binding:"min=0,max=200"`
	Status string `form:"status" binding:"omitempty,oneof=pending printed failed"`
}

type ListJobsResponse struct {
	Jobs  []*db.PrintJob `json:"jobs"`
	Count int            `json:"count"`
}

type ReprintRequest struct {
	PrinterName string `json:"printer_name"`
}

type JobHandler struct {
	jobs *core.JobManager
}

func NewJobHandler(jobs *core.JobManager) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// ListJobs returns jobs that have not printed, or only those in ?status=.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err.Error())
		return
	}

	var (
		jobs []*db.PrintJob
		err  error
	)
	if q.Status != "" {
		jobs, err = h.jobs.ListByStatus(c.Request.Context(), core.JobStatus(q.Status), q.Limit)
	} else {
		jobs, err = h.jobs.ListOpen(c.Request.Context(), q.Limit)
	}
	if err != nil {
		respondError(c, err, "")
		return
	}
	if jobs == nil {
		jobs = []*db.PrintJob{}
	}
	c.JSON(http.StatusOK, ListJobsResponse{Jobs: jobs, Count: len(jobs)})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.GetJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) GetStats(c *gin.Context) {
	stats, err := h.jobs.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Reprint accepts an empty body; printer_name overrides the job's printer.
func (h *JobHandler) Reprint(c *gin.Context) {
	var req ReprintRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	id := c.Param("id")
	job, err := h.jobs.Reprint(c.Request.Context(), id, req.PrinterName)
	if err != nil {
		respondError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, PrintResponse{Success: true, Job: job})
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	id := c.Param("id")
	if err := h.jobs.DeleteFailed(c.Request.Context(), id); err != nil {
		respondError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job_id": id})
}
