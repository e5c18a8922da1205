package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// RuntimeSettings holds the Ollama endpoint, editable without a restart.
// The Ollama provider reads it on every call.
type RuntimeSettings struct {
	mu            sync.RWMutex
	ollamaBaseURL string
	ollamaModel   string
	client        *http.Client
}

func NewRuntimeSettings(ollamaBaseURL, ollamaModel string) *RuntimeSettings {
	return &RuntimeSettings{
		ollamaBaseURL: ollamaBaseURL,
		ollamaModel:   ollamaModel,
		client:        &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *RuntimeSettings) OllamaBaseURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaBaseURL
}

func (s *RuntimeSettings) OllamaModel() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ollamaModel
}

type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required,url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GET /api/settings/ollama
func (s *RuntimeSettings) GetOllama(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ollama_base_url": s.OllamaBaseURL(),
		"ollama_model":    s.OllamaModel(),
	})
}

// PUT /api/settings/ollama
func (s *RuntimeSettings) UpdateOllama(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.ollamaBaseURL = strings.TrimRight(req.OllamaBaseURL, "/")
	if req.OllamaModel != "" {
		s.ollamaModel = req.OllamaModel
	}
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"ollama_base_url": s.OllamaBaseURL(),
		"ollama_model":    s.OllamaModel(),
		"user_id":         c.GetString("userID"),
	}).Info("[Settings] Ollama endpoint updated")

	s.GetOllama(c)
}

// TestOllama checks that an Ollama server answers /api/tags. Without a body
// the current endpoint is tested.
// POST /api/settings/ollama/test
func (s *RuntimeSettings) TestOllama(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	_ = c.ShouldBindJSON(&req)
	baseURL := req.OllamaBaseURL
	if baseURL == "" {
		baseURL = s.OllamaBaseURL()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(baseURL, "/")+"/api/tags", nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": err.Error()})
		return
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "error": err.Error()})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.JSON(http.StatusServiceUnavailable, gin.H{"connected": false, "status_code": resp.StatusCode})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "ollama_base_url": baseURL})
}
