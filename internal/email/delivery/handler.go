package delivery

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	authdomain "github.com/jalemieux/hermes/internal/auth/domain"
	emaildto "github.com/jalemieux/hermes/internal/email/dto"
	"github.com/jalemieux/hermes/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

// Ingestor runs one inbox ingestion on demand
type Ingestor interface {
	RunForUser(ctx context.Context, userID string) (*usecase.IngestReport, error)
}

type EmailHandler struct {
	emailUsecase usecase.EmailUsecase
	ingestor     Ingestor
}

func NewEmailHandler(emailUsecase usecase.EmailUsecase, ingestor Ingestor) *EmailHandler {
	return &EmailHandler{
		emailUsecase: emailUsecase,
		ingestor:     ingestor,
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrEmailNotFound), errors.Is(err, usecase.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrSearchUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, authdomain.ErrInboxNotConfigured):
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

// GET /api/emails?limit=50&offset=0
func (h *EmailHandler) List(c *gin.Context) {
	limit := 50
	offset := 0

	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	emails, total, err := h.emailUsecase.List(c.GetString("userID"), limit, offset)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails,
		Limit:  limit,
		Offset: offset,
		Total:  total,
	})
}

// GET /api/emails/:id
func (h *EmailHandler) Get(c *gin.Context) {
	email, err := h.emailUsecase.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, email)
}

// Text returns the rendered email, the same text synthesis reads
// GET /api/emails/:id/text
func (h *EmailHandler) Text(c *gin.Context) {
	text, err := h.emailUsecase.Text(c.GetString("userID"), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.String(http.StatusOK, text)
}

// POST /api/emails/:id/audio
func (h *EmailHandler) SetAudio(c *gin.Context) {
	var req emaildto.AudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.emailUsecase.SetHasAudio(c.GetString("userID"), c.Param("id"), *req.HasAudio); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_audio": *req.HasAudio})
}

// Ingest processes the caller's inbox now instead of waiting for the scheduler
// POST /api/emails/ingest
func (h *EmailHandler) Ingest(c *gin.Context) {
	report, err := h.ingestor.RunForUser(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/emails/search
func (h *EmailHandler) Search(c *gin.Context) {
	var req emaildto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	emails, err := h.emailUsecase.Search(c.Request.Context(), c.GetString("userID"), req.Query, req.Limit)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails, "total": len(emails)})
}

// POST /api/emails/reindex
func (h *EmailHandler) Reindex(c *gin.Context) {
	n, err := h.emailUsecase.Reindex(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": n})
}
