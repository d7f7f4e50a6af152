// export.go implements the CSV export endpoints: a streamed download of the filtered
// trail and archived exports kept in object storage.
package activity

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
	"github.com/Rodrigo270695/portalAD-sub001/internal/storage"
)

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", export.ContentType)
}

// @Summary      Export activity
// @Description  Stream the filtered audit trail as CSV. Accepts the same filters as the listing. Requires activity:read scope.
// @Tags         Activity
// @Security     Bearer
// @Produce      text/csv
// @Success      200  {file}    file
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Router       /api/v1/activity/export [get]
// ExportHandler streams a CSV export. Once the first byte is sent the status cannot
// change, so a failure midway is only logged and the client sees a truncated file.
func (h *Handlers) ExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters, err := h.parseFilters(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filename := "activity-" + time.Now().In(h.loc).Format("20060102-150405") + ".csv"
		attachment(c, filename)
		c.Status(http.StatusOK)

		rows, err := export.WriteCSV(c.Request.Context(), c.Writer, h.repo, filters, h.batchSize)
		if err != nil {
			slog.Error("activity export interrupted", "error", err, "rows", rows)
			return
		}
		slog.Debug("activity export completed", "rows", rows)
	}
}

// @Summary      Archive activity export
// @Description  Render the filtered audit trail to CSV and store it in the export storage backend.
// @Tags         Activity
// @Security     Bearer
// @Produce      json
// @Success      201  {object}  export.Archive
// @Failure      503  {object}  map[string]interface{}  "Export storage not configured"
// @Router       /api/v1/activity/exports [post]
// CreateArchiveHandler stores a new export
func (h *Handlers) CreateArchiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.archiver == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export storage is not configured"})
			return
		}

		filters, err := h.parseFilters(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		archive, err := h.archiver.Create(c.Request.Context(), filters)
		if err != nil {
			slog.Error("failed to archive activity export", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export"})
			return
		}

		c.JSON(http.StatusCreated, archive)
	}
}

// @Summary      List archived exports
// @Tags         Activity
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "exports: []export.Archive"
// @Router       /api/v1/activity/exports [get]
// ListArchivesHandler lists stored exports
func (h *Handlers) ListArchivesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.archiver == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export storage is not configured"})
			return
		}

		archives, err := h.archiver.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list exports"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"exports": archives})
	}
}

// @Summary      Download archived export
// @Description  Downloads are proxied through the API so they are recorded as file_download activity.
// @Tags         Activity
// @Security     Bearer
// @Produce      text/csv
// @Param        path  path  string  true  "Export name as returned by the listing"
// @Success      200  {file}    file
// @Failure      404  {object}  map[string]interface{}  "Export not found"
// @Router       /api/v1/activity/exports/{path} [get]
// DownloadArchiveHandler streams a stored export
func (h *Handlers) DownloadArchiveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.archiver == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Export storage is not configured"})
			return
		}

		rc, archive, err := h.archiver.Open(c.Request.Context(), c.Param("path"))
		switch {
		case errors.Is(err, export.ErrInvalidName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid export name"})
			return
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
			return
		case err != nil:
			slog.Error("failed to open activity export", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open export"})
			return
		}
		defer rc.Close()

		attachment(c, path.Base(archive.Name))
		c.Header("Content-Length", strconv.FormatInt(archive.Size, 10))
		if archive.Checksum != "" {
			c.Header("X-Checksum-SHA256", archive.Checksum)
		}
		c.Status(http.StatusOK)

		if _, err := io.Copy(c.Writer, rc); err != nil {
			slog.Error("activity export download interrupted", "error", err, "name", archive.Name)
		}
	}
}
