package api

import (
	"net/http"

	"github.com/jalemieux/hermes/internal/auth/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	requireAuth := delivery.AuthMiddleware(h.AuthUsecase)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// EventSource cannot set headers, the middleware also accepts ?token=
		api.GET("/events", requireAuth, func(c *gin.Context) {
			h.SSEManager.ServeHTTP(c, c.GetString("userID"))
		})

		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
			auth.POST("/logout", h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.Me)
			auth.PUT("/inbox", requireAuth, h.Auth.ConnectInbox)
		}

		fcm := api.Group("/fcm")
		fcm.Use(requireAuth)
		{
			fcm.POST("/register", h.Auth.RegisterFCMToken)
			fcm.DELETE("/:token", h.Auth.UnregisterFCMToken)
		}

		emails := api.Group("/emails")
		emails.Use(requireAuth)
		{
			emails.GET("", h.Emails.List)
			emails.POST("/ingest", h.Emails.Ingest)
			emails.POST("/search", h.Emails.Search)
			emails.POST("/reindex", h.Emails.Reindex)
			emails.GET("/:id", h.Emails.Get)
			emails.GET("/:id/text", h.Emails.Text)
			emails.POST("/:id/audio", h.Emails.SetAudio)
		}

		newsletters := api.Group("/newsletters")
		newsletters.Use(requireAuth)
		{
			newsletters.GET("", h.Newsletters.List)
			newsletters.GET("/search", h.Newsletters.Search)
			newsletters.PUT("/active", h.Newsletters.SetActive)
			newsletters.POST("/backfill", h.Newsletters.Backfill)
		}

		summaries := api.Group("/summaries")
		summaries.Use(requireAuth)
		{
			summaries.POST("", h.Summaries.Generate)
			summaries.POST("/queue", h.Summaries.Queue)
			summaries.GET("", h.Summaries.List)
			summaries.GET("/:id", h.Summaries.Get)
			summaries.GET("/:id/script", h.Summaries.Script)
			summaries.POST("/:id/regenerate", h.Summaries.Regenerate)
			summaries.POST("/:id/audio", h.Summaries.SetAudio)
		}

		tasks := api.Group("/tasks")
		tasks.Use(requireAuth)
		{
			tasks.GET("", h.Tasks.List)
			tasks.POST("/:name/run", h.Tasks.Run)
		}

		settings := api.Group("/settings")
		settings.Use(requireAuth)
		{
			settings.GET("/ollama", h.Settings.GetOllama)
			settings.PUT("/ollama", h.Settings.UpdateOllama)
			settings.POST("/ollama/test", h.Settings.TestOllama)
		}
	}
}
