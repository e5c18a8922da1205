package delivery

import (
	"errors"
	"net/http"
	"strconv"

	summarydomain "github.com/jalemieux/hermes/internal/summary/domain"
	"github.com/jalemieux/hermes/internal/summary/dto"
	"github.com/jalemieux/hermes/internal/summary/usecase"

	"github.com/gin-gonic/gin"
)

// Queue is the async side of digest generation
type Queue interface {
	Enqueue(userID string) (*summarydomain.Summary, error)
}

type SummaryHandler struct {
	summaries usecase.SummaryUsecase
	queue     Queue
}

func NewSummaryHandler(summaries usecase.SummaryUsecase, queue Queue) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, queue: queue}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, summarydomain.ErrSummaryInProgress):
		return http.StatusConflict
	case errors.Is(err, summarydomain.ErrNothingToSummarize),
		errors.Is(err, summarydomain.ErrUnknownSourceEmail),
		errors.Is(err, summarydomain.ErrSummaryNotCompleted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, summarydomain.ErrGenerationFailed):
		return http.StatusBadGateway
	case errors.Is(err, summarydomain.ErrSummaryNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrQueueFull):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// Generate runs a digest synchronously
// POST /api/summaries
func (h *SummaryHandler) Generate(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var (
		summary *summarydomain.Summary
		err     error
	)
	if len(req.EmailIDs) > 0 {
		summary, err = h.summaries.GenerateFromEmails(c.Request.Context(), userID, req.EmailIDs)
	} else {
		summary, err = h.summaries.GenerateDigest(c.Request.Context(), userID)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

// Queue creates a pending digest; the result arrives as an SSE event
// POST /api/summaries/queue
func (h *SummaryHandler) Queue(c *gin.Context) {
	summary, err := h.queue.Enqueue(c.GetString("userID"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, summary)
}

// GET /api/summaries?limit=20&offset=0
func (h *SummaryHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	summaries, total, err := h.summaries.List(c.GetString("userID"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summaries": summaries, "total": total, "limit": limit, "offset": offset})
}

// GET /api/summaries/:id
func (h *SummaryHandler) Get(c *gin.Context) {
	summary, err := h.summaries.Get(c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Script returns the plain text read by the voice pipeline
// GET /api/summaries/:id/script
func (h *SummaryHandler) Script(c *gin.Context) {
	script, err := h.summaries.SpokenScript(c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.String(http.StatusOK, script)
}

// POST /api/summaries/:id/regenerate
func (h *SummaryHandler) Regenerate(c *gin.Context) {
	summary, err := h.summaries.Regenerate(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SetAudio is called back by the voice pipeline
// POST /api/summaries/:id/audio
func (h *SummaryHandler) SetAudio(c *gin.Context) {
	var req dto.AudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.summaries.SetHasAudio(c.GetString("userID"), c.Param("id"), *req.HasAudio); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has_audio": *req.HasAudio})
}
