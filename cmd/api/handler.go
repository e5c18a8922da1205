package api

import (
	"net/http"
	"time"

	authDelivery "github.com/jalemieux/hermes/internal/auth/delivery"
	authUsecase "github.com/jalemieux/hermes/internal/auth/usecase"
	emailDelivery "github.com/jalemieux/hermes/internal/email/delivery"
	newsletterDelivery "github.com/jalemieux/hermes/internal/newsletter/delivery"
	summaryDelivery "github.com/jalemieux/hermes/internal/summary/delivery"
	taskDelivery "github.com/jalemieux/hermes/internal/task/delivery"
	"github.com/jalemieux/hermes/pkg/sse"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler bundles every HTTP handler behind the /api router
type Handler struct {
	AuthUsecase authUsecase.AuthUsecase
	SSEManager  *sse.Manager
	Settings    *RuntimeSettings

	Auth        *authDelivery.AuthHandler
	Emails      *emailDelivery.EmailHandler
	Newsletters *newsletterDelivery.NewsletterHandler
	Summaries   *summaryDelivery.SummaryHandler
	Tasks       *taskDelivery.TaskHandler
}

// Engine builds the gin engine with CORS, request logging and all routes
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())
	SetupRoutes(r, h)
	return r
}

// Server wraps the engine for graceful shutdown. WriteTimeout stays zero so
// the SSE stream and synchronous digest generation are not cut off.
func (h *Handler) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
		if userID := c.GetString("userID"); userID != "" {
			entry = entry.WithField("user_id", userID)
		}
		if len(c.Errors) > 0 {
			entry.Warn(c.Errors.String())
			return
		}
		entry.Debug("[HTTP] Request")
	}
}
