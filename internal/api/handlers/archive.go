package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/rawspool/internal/archive"
	"github.com/orrn/rawspool/internal/logging"
)

type ArchiveHandler struct {
	archiver *archive.Archiver
}

func NewArchiveHandler(archiver *archive.Archiver) *ArchiveHandler {
	return &ArchiveHandler{archiver: archiver}
}

type ArchiveListResponse struct {
	Archives []*archive.ArchiveFile `json:"archives"`
	Count    int                    `json:"count"`
}

func (h *ArchiveHandler) ListArchives(c *gin.Context) {
	archives, err := h.archiver.ListArchives()
	if err != nil {
		logging.Error("failed to list archives", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "failed to list archives"})
		return
	}
	c.JSON(http.StatusOK, ArchiveListResponse{Archives: archives, Count: len(archives)})
}

func (h *ArchiveHandler) GetArchiveInfo(c *gin.Context) {
	info, err := h.archiver.GetArchiveInfo(c.Param("filename"))
	if err != nil {
		h.archiveError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *ArchiveHandler) DownloadArchive(c *gin.Context) {
	filename := c.Param("filename")
	path, err := h.archiver.Path(filename)
	if err != nil {
		h.archiveError(c, err)
		return
	}
	c.FileAttachment(path, filename)
}

// RunArchive archives eligible printed jobs now instead of waiting for the ticker.
func (h *ArchiveHandler) RunArchive(c *gin.Context) {
	n, err := h.archiver.RunArchive(c.Request.Context())
	if err != nil {
		logging.Error("manual archive failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "archived": n})
}

func (h *ArchiveHandler) archiveError(c *gin.Context, err error) {
	if errors.Is(err, archive.ErrArchiveNotFound) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "archive_not_found", Message: err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: err.Error()})
}
