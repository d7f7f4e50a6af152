package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// CircuitRequest is the body of circuit create and update requests
type CircuitRequest struct {
	ZonalID *int64  `json:"zonal_id"`
	Code    string  `json:"code" binding:"required,max=20"`
	Name    string  `json:"name" binding:"required,max=255"`
	Address *string `json:"address"`
	Active  *bool   `json:"active"`
}

func (r *CircuitRequest) apply(c *models.Circuit) {
	c.ZonalID = r.ZonalID
	c.Code = r.Code
	c.Name = r.Name
	c.Address = r.Address
	c.Active = r.Active == nil || *r.Active
}

// ListCircuitsHandler lists every circuit
// GET /api/v1/circuits
func (h *Handlers) ListCircuitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		circuits, err := h.circuits.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list circuits"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"circuits": circuits})
	}
}

// GetCircuitHandler returns one circuit
// GET /api/v1/circuits/:id
func (h *Handlers) GetCircuitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		circuit, err := h.circuits.Get(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve circuit"})
			return
		}
		if circuit == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "circuit not found"})
			return
		}
		c.JSON(http.StatusOK, circuit)
	}
}

// CreateCircuitHandler creates a circuit
// POST /api/v1/circuits
func (h *Handlers) CreateCircuitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CircuitRequest
		if !bindJSON(c, &req) {
			return
		}

		circuit := &models.Circuit{}
		req.apply(circuit)
		if err := h.circuits.Create(c.Request.Context(), circuit); err != nil {
			mutationFailed(c, err, "circuit")
			return
		}
		c.JSON(http.StatusCreated, circuit)
	}
}

// UpdateCircuitHandler replaces a circuit's mutable fields
// PUT /api/v1/circuits/:id
func (h *Handlers) UpdateCircuitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req CircuitRequest
		if !bindJSON(c, &req) {
			return
		}

		circuit := &models.Circuit{ID: id}
		req.apply(circuit)
		if err := h.circuits.Update(c.Request.Context(), circuit); err != nil {
			mutationFailed(c, err, "circuit")
			return
		}
		c.JSON(http.StatusOK, circuit)
	}
}

// DeleteCircuitHandler deletes a circuit
// DELETE /api/v1/circuits/:id
func (h *Handlers) DeleteCircuitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.circuits.Delete(c.Request.Context(), id); err != nil {
			mutationFailed(c, err, "circuit")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "circuit deleted"})
	}
}
