package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/questforge/roadmap-engine/internal/http/handlers"
)

type RouterConfig struct {
	ServiceName     string
	AllowedOrigins  []string
	HealthHandler   *handlers.HealthHandler
	RoadmapHandler  *handlers.RoadmapHandler
	CheckInHandler  *handlers.CheckInHandler
	RealtimeHandler *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(otelgin.Middleware(cfg.ServiceName))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", cfg.HealthHandler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/stream", cfg.RealtimeHandler.Stream)

		roadmaps := api.Group("/roadmaps")
		{
			roadmaps.POST("/generate", cfg.RoadmapHandler.Generate)
			roadmaps.GET("/active", cfg.RoadmapHandler.GetActive)
			roadmaps.GET("", cfg.RoadmapHandler.List)
			roadmaps.POST("/refresh", cfg.RoadmapHandler.RefreshHistory)
			roadmaps.POST("/select", cfg.RoadmapHandler.SelectNode)
			roadmaps.GET("/:id", cfg.RoadmapHandler.Get)
			roadmaps.POST("/:id/load", cfg.RoadmapHandler.Load)
			roadmaps.GET("/:id/hierarchy", cfg.RoadmapHandler.GetHierarchy)
			roadmaps.POST("/:id/sync", cfg.RoadmapHandler.Sync)
			roadmaps.DELETE("/:id", cfg.RoadmapHandler.Delete)
		}

		checkins := api.Group("/checkins")
		{
			checkins.POST("/analyze", cfg.CheckInHandler.Analyze)
			checkins.POST("/:id/confirm", cfg.CheckInHandler.Confirm)
			checkins.POST("/:id/reject", cfg.CheckInHandler.Reject)
		}
	}

	return router
}
