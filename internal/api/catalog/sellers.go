package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/models"
)

// SellerRequest is the body of seller create and update requests
type SellerRequest struct {
	CircuitID *int64  `json:"circuit_id"`
	DNI       string  `json:"dni" binding:"required,len=8,numeric"`
	Name      string  `json:"name" binding:"required,max=255"`
	Phone     *string `json:"phone" binding:"omitempty,max=20"`
	Active    *bool   `json:"active"`
}

func (r *SellerRequest) apply(s *models.Seller) {
	s.CircuitID = r.CircuitID
	s.DNI = r.DNI
	s.Name = r.Name
	s.Phone = r.Phone
	s.Active = r.Active == nil || *r.Active
}

// GetSellerByDNIHandler looks a seller up by national id
// GET /api/v1/sellers/dni/:dni
func (h *Handlers) GetSellerByDNIHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		seller, err := h.sellers.GetByDNI(c.Request.Context(), c.Param("dni"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve seller"})
			return
		}
		if seller == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "seller not found"})
			return
		}
		c.JSON(http.StatusOK, seller)
	}
}

// CreateSellerHandler creates a seller
// POST /api/v1/sellers
func (h *Handlers) CreateSellerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SellerRequest
		if !bindJSON(c, &req) {
			return
		}

		seller := &models.Seller{}
		req.apply(seller)
		if err := h.sellers.Create(c.Request.Context(), seller); err != nil {
			mutationFailed(c, err, "seller")
			return
		}
		c.JSON(http.StatusCreated, seller)
	}
}

// UpdateSellerHandler replaces a seller's mutable fields
// PUT /api/v1/sellers/:id
func (h *Handlers) UpdateSellerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		var req SellerRequest
		if !bindJSON(c, &req) {
			return
		}

		seller := &models.Seller{ID: id}
		req.apply(seller)
		if err := h.sellers.Update(c.Request.Context(), seller); err != nil {
			mutationFailed(c, err, "seller")
			return
		}
		c.JSON(http.StatusOK, seller)
	}
}

// DeleteSellerHandler deletes a seller
// DELETE /api/v1/sellers/:id
func (h *Handlers) DeleteSellerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := h.sellers.Delete(c.Request.Context(), id); err != nil {
			mutationFailed(c, err, "seller")
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "seller deleted"})
	}
}
