package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// ShareRequest is the body of share create and update requests
type ShareRequest struct {
	CircuitID int64   `json:"circuit_id" binding:"required,gt=0"`
	Period    string  `json:"period" binding:"required,datetime=2006-01"`
	Product   string  `json:"product" binding:"required,max=100"`
	Target    float64 `json:"target" binding:"gte=0"`
}

func (r *ShareRequest) apply(s *models.Share) {
	s.CircuitID = r.CircuitID
	s.Period = r.Period
	s.Product = r.Product
	s.Target = r.Target
}

// ListSharesHandler lists the shares of a period
// GET /api/v1/shares?period=2026-03
func (h *Handlers) ListSharesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period := c.Query("period")
		if period == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "period is required (YYYY-MM)"})
			return
		}
		shares, err := h.shares.ListByPeriod(c.Request.Context(), period)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list shares"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"shares": shares})
	}
}

// CreateShareHandler creates a share
// POST /api/v1/shares
func (h *Handlers) CreateShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ShareRequest
		if !bindJSON(c, &req) {
			return
		}

		share := &models.Share{}
		req.apply(share)
		if err := h.shares.Create(c.Request.Context(), share); err != nil {
			mutationFailed(c, err, "share")
			return
		}
		c.JSON(http.StatusCreated, share)
	}
}

// UpdateShareHandler replaces a share's fields
// PUT /api/v1/shares/:id
func (h *Handlers) UpdateShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req ShareRequest
		if !bindJSON(c, &req) {
			return
		}

		share := &models.Share{ID: id}
		req.apply(share)
		if err := h.shares.Update(c.Request.Context(), share); err != nil {
			mutationFailed(c, err, "share")
			return
		}
		c.JSON(http.StatusOK, share)
	}
}

// DeleteShareHandler deletes a share
// DELETE /api/v1/shares/:id
func (h *Handlers) DeleteShareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.shares.Delete(c.Request.Context(), id); err != nil {
			mutationFailed(c, err, "share")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "share deleted"})
	}
}
