package delivery

import (
	"errors"
	"net/http"

	"github.com/jalemieux/hermes/internal/newsletter/dto"
	"github.com/jalemieux/hermes/internal/newsletter/usecase"

	"github.com/gin-gonic/gin"
)

// NewsletterHandler exposes the per-user newsletter registry
type NewsletterHandler struct {
	registry usecase.RegistryUsecase
}

func NewNewsletterHandler(registry usecase.RegistryUsecase) *NewsletterHandler {
	return &NewsletterHandler{registry: registry}
}

// List returns the user's newsletters, most recently seen first
// GET /api/newsletters
func (h *NewsletterHandler) List(c *gin.Context) {
	userID := c.GetString("userID")

	subs, err := h.registry.List(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletters": subs, "total": len(subs)})
}

// Search fuzzy-matches newsletter names
// GET /api/newsletters/search?q=brew
func (h *NewsletterHandler) Search(c *gin.Context) {
	userID := c.GetString("userID")

	subs, err := h.registry.Search(userID, c.Query("q"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletters": subs, "total": len(subs)})
}

// SetActive includes or excludes a newsletter from future digests
// PUT /api/newsletters/active
func (h *NewsletterHandler) SetActive(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.registry.SetActive(userID, req.Name, *req.Active)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// Backfill registers newsletters found in already stored emails
// POST /api/newsletters/backfill
func (h *NewsletterHandler) Backfill(c *gin.Context) {
	userID := c.GetString("userID")

	created, err := h.registry.Backfill(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"created": created})
}
