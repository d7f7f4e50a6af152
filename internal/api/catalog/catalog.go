// Package catalog implements the sales catalog endpoints (circuits, tacks, sellers and
// shares). Every committed change is published by the repositories and ends up in the
// activity trail as model_created, model_updated or model_deleted.
package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/Rodrigo270695/portalAD-sub001/internal/db/repositories"
	"github.com/Rodrigo270695/portalAD-sub001/internal/lifecycle"
)

// Handlers serves the catalog endpoints
type Handlers struct {
	circuits *repositories.CircuitRepository
	tacks    *repositories.TackRepository
	sellers  *repositories.SellerRepository
	shares   *repositories.ShareRepository
}

// NewHandlers creates catalog handlers whose repositories publish on events
func NewHandlers(db *sqlx.DB, events lifecycle.Publisher) *Handlers {
	return &Handlers{
		circuits: repositories.NewCircuitRepository(db, events),
		tacks:    repositories.NewTackRepository(db, events),
		sellers:  repositories.NewSellerRepository(db, events),
		shares:   repositories.NewShareRepository(db, events),
	}
}

// RegisterRoutes mounts the catalog endpoints on group
func (h *Handlers) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/circuits", h.ListCircuitsHandler())
	group.GET("/circuits/:id", h.GetCircuitHandler())
	group.GET("/circuits/:id/tacks", h.ListTacksHandler())
	group.POST("/circuits", h.CreateCircuitHandler())
	group.PUT("/circuits/:id", h.UpdateCircuitHandler())
	group.DELETE("/circuits/:id", h.DeleteCircuitHandler())

	group.POST("/tacks", h.CreateTackHandler())
	group.PUT("/tacks/:id", h.UpdateTackHandler())
	group.DELETE("/tacks/:id", h.DeleteTackHandler())

	group.GET("/sellers/dni/:dni", h.GetSellerByDNIHandler())
	group.POST("/sellers", h.CreateSellerHandler())
	group.PUT("/sellers/:id", h.UpdateSellerHandler())
	group.DELETE("/sellers/:id", h.DeleteSellerHandler())

	group.GET("/shares", h.ListSharesHandler())
	group.POST("/shares", h.CreateShareHandler())
	group.PUT("/shares/:id", h.UpdateShareHandler())
	group.DELETE("/shares/:id", h.DeleteShareHandler())
}

// pathID parses the :id parameter, answering 400 itself when it is not a positive integer
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// mutationFailed maps a repository error to a response
func mutationFailed(c *gin.Context, err error, entity string) {
	if errors.Is(err, repositories.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save " + entity})
}
