// Package activity implements the /api/v1/activity endpoints: client-submitted activity
// records, the filtered audit trail listing, CSV exports and the dashboard statistics.
package activity

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/audit"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/export"
	"github.com/Rodrigo270695/portalAD-sub001/internal/middleware"
)

// Handlers serves the activity endpoints
type Handlers struct {
	logger    audit.Logger
	repo      *repositories.ActivityLogRepository
	reports   *audit.Reports
	archiver  *export.Archiver
	loc       *time.Location
	batchSize int
}

// NewHandlers creates the activity handlers. archiver may be nil when no export storage
// is configured; the archive endpoints then answer 503.
func NewHandlers(logger audit.Logger, repo *repositories.ActivityLogRepository, reports *audit.Reports,
	archiver *export.Archiver, loc *time.Location, batchSize int) *Handlers {
	if loc == nil {
		loc = time.UTC
	}
	return &Handlers{
		logger:    logger,
		repo:      repo,
		reports:   reports,
		archiver:  archiver,
		loc:       loc,
		batchSize: batchSize,
	}
}

// RecordRequest is the body of POST /api/v1/activity
type RecordRequest struct {
	Action         string          `json:"action" binding:"required"`
	Description    string          `json:"description"`
	AdditionalData models.Metadata `json:"additional_data"`
}

// @Summary      Record activity
// @Description  Record a client-side activity for the authenticated user. Requires activity:write scope.
// @Tags         Activity
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  RecordRequest  true  "Activity"
// @Success      200  {object}  map[string]interface{}  "status: ok"
// @Failure      400  {object}  map[string]interface{}  "Invalid request body"
// @Failure      429  {object}  map[string]interface{}  "Rate limit exceeded"
// @Router       /api/v1/activity [post]
// @Router       /api/v1/public/activity [post]
// RecordHandler forwards a client activity to the enricher. Persistence problems never
// reach the client.
func (h *Handlers) RecordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RecordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}

		h.logger.Log(c.Request.Context(), req.Action, req.Description, req.AdditionalData)

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// @Summary      List activity
// @Description  Paged audit trail, newest first. Requires activity:read scope.
// @Tags         Activity
// @Security     Bearer
// @Produce      json
// @Param        user_id      query  string  false  "Filter by user"
// @Param        action       query  string  false  "Filter by action"
// @Param        device_type  query  string  false  "phone, tablet, desktop or unknown"
// @Param        from         query  string  false  "RFC3339 timestamp or YYYY-MM-DD"
// @Param        to           query  string  false  "RFC3339 timestamp or YYYY-MM-DD (inclusive)"
// @Param        q            query  string  false  "Search description and route"
// @Param        page         query  int     false  "Page number (default 1)"
// @Param        per_page     query  int     false  "Items per page, max 100 (default 20)"
// @Success      200  {object}  map[string]interface{}  "activities: []models.ActivityLog, pagination: map"
// @Failure      400  {object}  map[string]interface{}  "Invalid filter"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/activity [get]
// ListHandler lists activity records
// GET /api/v1/activity?page=1&per_page=20
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		filters, err := h.parseFilters(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

		if page < 1 {
			page = 1
		}
		if perPage < 1 || perPage > 100 {
			perPage = 20
		}

		offset := (page - 1) * perPage

		logs, total, err := h.repo.Query(c.Request.Context(), filters, perPage, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to list activity",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"activities": logs,
			"pagination": gin.H{
				"page":     page,
				"per_page": perPage,
				"total":    total,
			},
		})
	}
}

// @Summary      Get activity
// @Description  A single audit trail record. Requires activity:read scope.
// @Tags         Activity
// @Security     Bearer
// @Produce      json
// @Param        id  path  int  true  "Record id"
// @Success      200  {object}  models.ActivityLog
// @Failure      400  {object}  map[string]interface{}  "Invalid id"
// @Failure      404  {object}  map[string]interface{}  "Not found"
// @Router       /api/v1/activity/{id} [get]
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || id < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid activity id"})
			return
		}

		log, err := h.repo.Get(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get activity"})
			return
		}
		if log == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Activity not found"})
			return
		}

		c.JSON(http.StatusOK, log)
	}
}

// parseFilters reads the shared listing and export filters from the query string.
func (h *Handlers) parseFilters(c *gin.Context) (repositories.ActivityFilters, error) {
	return export.ParseFilters(export.FilterParams{
		UserID:     c.Query("user_id"),
		Action:     c.Query("action"),
		DeviceType: c.Query("device_type"),
		Search:     c.Query("q"),
		From:       c.Query("from"),
		To:         c.Query("to"),
	}, h.loc)
}

// @Summary      Activity statistics
// @Description  Average response time of the last 24 hours and the caller's session duration.
// @Tags         Activity
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "average_response_time_ms, session_duration_minutes"
// @Router       /api/v1/activity/stats [get]
// StatsHandler returns the dashboard statistics
func (h *Handlers) StatsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionStart *time.Time
		if v, ok := c.Get(middleware.SessionStartKey); ok {
			if t, ok := v.(time.Time); ok {
				sessionStart = &t
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"average_response_time_ms": h.reports.AverageResponseTime(c.Request.Context()),
			"session_duration_minutes": h.reports.SessionDurationMinutes(sessionStart),
		})
	}
}
