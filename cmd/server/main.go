package main

import (
	"log"

	"crm-intelligence/internal/api"
	"crm-intelligence/internal/config"
	"crm-intelligence/internal/database"
	"crm-intelligence/internal/engine"
	"crm-intelligence/internal/metrics"
	"crm-intelligence/internal/ws"
	"crm-intelligence/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.Init(cfg)
	if err != nil {
		logger.Fatal("database init", zap.Error(err))
	}

	metrics.Register()

	params := engine.DefaultParams()
	params.DecayK = cfg.DecayK
	params.FuzzyThreshold = cfg.FuzzyThreshold
	params.PotentialThreshold = cfg.PotentialThreshold
	eng := engine.New(db, params)

	hub := ws.NewHub()
	go hub.Run()

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Owner-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	contactHandler := api.NewContactHandler(eng)
	interactionHandler := api.NewInteractionHandler(eng, hub)
	followupHandler := api.NewFollowUpHandler(eng)
	recommendationHandler := api.NewRecommendationHandler(eng, hub)
	timelineHandler := api.NewTimelineHandler(eng)
	noteHandler := api.NewNoteHandler(eng)
	statsHandler := api.NewStatsHandler(eng)
	signalHandler := api.NewSignalHandler(eng)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", func(c *gin.Context) { hub.ServeWs(c.Writer, c.Request) })

	apiGroup := r.Group("/api")
	apiGroup.Use(api.OwnerRequired())
	{
		// Contact Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.GET("/contacts/check-duplicate", contactHandler.CheckDuplicate)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)
		apiGroup.GET("/contacts/:id", contactHandler.GetContact)
		apiGroup.PUT("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)
		apiGroup.GET("/contacts/:id/interactions", interactionHandler.GetInteractions)
		apiGroup.GET("/contacts/:id/notes", noteHandler.GetNotes)

		// Interaction Routes
		apiGroup.POST("/interactions", interactionHandler.RecordInteraction)
		apiGroup.DELETE("/interactions/:id", interactionHandler.DeleteInteraction)

		// Note Routes
		apiGroup.POST("/notes", noteHandler.CreateNote)
		apiGroup.DELETE("/notes/:id", noteHandler.DeleteNote)

		// Follow-up Routes
		apiGroup.GET("/followups", followupHandler.GetPendingFollowups)
		apiGroup.POST("/followups/:contactId/done", followupHandler.MarkDone)
		apiGroup.POST("/followups/:contactId/snooze", followupHandler.Snooze)

		// Recommendation Routes
		apiGroup.GET("/recommendations", recommendationHandler.GetRecommendations)
		apiGroup.POST("/recommendations/:id/dismiss", recommendationHandler.Dismiss)
		apiGroup.POST("/recommendations/:id/snooze", recommendationHandler.Snooze)
		apiGroup.POST("/recommendations/:id/feedback", recommendationHandler.Feedback)

		// Enrichment + Timeline + Stats
		apiGroup.POST("/signals", signalHandler.IngestSignal)
		apiGroup.GET("/timeline", timelineHandler.GetTimeline)
		apiGroup.GET("/stats", statsHandler.GetStats)
	}

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
