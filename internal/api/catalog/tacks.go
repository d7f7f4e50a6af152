package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// TackRequest is the body of tack create and update requests
type TackRequest struct {
	CircuitID int64  `json:"circuit_id" binding:"required,gt=0"`
	Name      string `json:"name" binding:"required,max=255"`
	Active    *bool  `json:"active"`
}

func (r *TackRequest) apply(t *models.Tack) {
	t.CircuitID = r.CircuitID
	t.Name = r.Name
	t.Active = r.Active == nil || *r.Active
}

// ListTacksHandler lists the tacks of a circuit
// GET /api/v1/circuits/:id/tacks
func (h *Handlers) ListTacksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		tacks, err := h.tacks.ListByCircuit(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list tacks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tacks": tacks})
	}
}

// CreateTackHandler creates a tack
// POST /api/v1/tacks
func (h *Handlers) CreateTackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TackRequest
		if !bindJSON(c, &req) {
			return
		}

		tack := &models.Tack{}
		req.apply(tack)
		if err := h.tacks.Create(c.Request.Context(), tack); err != nil {
			mutationFailed(c, err, "tack")
			return
		}
		c.JSON(http.StatusCreated, tack)
	}
}

// UpdateTackHandler replaces a tack's mutable fields
// PUT /api/v1/tacks/:id
func (h *Handlers) UpdateTackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req TackRequest
		if !bindJSON(c, &req) {
			return
		}

		tack := &models.Tack{ID: id}
		req.apply(tack)
		if err := h.tacks.Update(c.Request.Context(), tack); err != nil {
			mutationFailed(c, err, "tack")
			return
		}
		c.JSON(http.StatusOK, tack)
	}
}

// DeleteTackHandler deletes a tack
// DELETE /api/v1/tacks/:id
func (h *Handlers) DeleteTackHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.tacks.Delete(c.Request.Context(), id); err != nil {
			mutationFailed(c, err, "tack")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "tack deleted"})
	}
}
