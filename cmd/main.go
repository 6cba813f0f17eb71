package main

import (
	"context"
	"fmt"
	"os"

	"github.com/questforge/roadmap-engine/internal/app"
	"github.com/questforge/roadmap-engine/internal/clients/questforge"
	"github.com/questforge/roadmap-engine/internal/clients/redis"
	"github.com/questforge/roadmap-engine/internal/db"
	"github.com/questforge/roadmap-engine/internal/http/handlers"
	"github.com/questforge/roadmap-engine/internal/layout"
	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/observability"
	"github.com/questforge/roadmap-engine/internal/repos"
	"github.com/questforge/roadmap-engine/internal/server"
	"github.com/questforge/roadmap-engine/internal/services"
	"github.com/questforge/roadmap-engine/internal/sse"
	"github.com/questforge/roadmap-engine/internal/store"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	cfg := app.LoadConfig(log)

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "roadmap-engine",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})
	if shutdownOtel != nil {
		defer func() { _ = shutdownOtel(context.Background()) }()
	}

	// Database
	dbService, err := db.New(log)
	if err != nil {
		log.Error("Database init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Warn("Auto migration failed", "error", err)
	}
	theDB := dbService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	roadmapRepo := repos.NewRoadmapRepo(theDB, log)
	checkInRepo := repos.NewCheckInRepo(theDB, log)

	// Upstream client
	upstream, err := questforge.NewFromEnv()
	if err != nil {
		log.Error("Could not init upstream client", "error", err)
		os.Exit(1)
	}

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)

	var emitter services.SSEEmitter = &services.HubEmitter{Hub: sseHub}
	if cfg.RedisEnabled {
		bus, busErr := redis.NewEventBus(log)
		if busErr != nil {
			log.Warn("Redis event bus unavailable, falling back to in-process hub", "error", busErr)
		} else {
			if fwdErr := bus.StartForwarder(context.Background(), func(m sse.SSEMessage) {
				sseHub.Broadcast(m)
			}); fwdErr != nil {
				log.Warn("Redis forwarder failed to start, falling back to in-process hub", "error", fwdErr)
			} else {
				emitter = &services.RedisEmitter{Bus: bus}
				defer bus.Close()
			}
		}
	}
	notifier := services.NewRoadmapNotifier(emitter)

	// Layout
	layoutOpts, err := layout.LoadOptions(cfg.LayoutOptionsPath)
	if err != nil {
		log.Warn("Could not read layout options, using defaults", "path", cfg.LayoutOptionsPath, "error", err)
		layoutOpts = layout.DefaultOptions()
	}

	// State
	roadmapStore := store.New(log)

	// Services
	log.Info("Setting up Services from main...")
	generationService := services.NewGenerationService(upstream, roadmapStore, roadmapRepo, notifier, cfg.LayoutEngine, layoutOpts, log)
	roadmapService := services.NewRoadmapService(upstream, roadmapStore, roadmapRepo, notifier, cfg.LayoutEngine, layoutOpts, log)
	checkInService := services.NewCheckInService(upstream, roadmapStore, checkInRepo, roadmapRepo, notifier, log)

	// Warm the history list; failures are not fatal.
	if err := roadmapService.RefreshHistory(context.Background()); err != nil {
		log.Warn("Initial history refresh failed", "error", err)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	healthHandler := handlers.NewHealthHandler()
	roadmapHandler := handlers.NewRoadmapHandler(log, roadmapService, generationService)
	checkInHandler := handlers.NewCheckInHandler(log, checkInService)
	realtimeHandler := handlers.NewRealtimeHandler(log, sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:     "roadmap-engine",
		AllowedOrigins:  cfg.AllowedOrigins,
		HealthHandler:   healthHandler,
		RoadmapHandler:  roadmapHandler,
		CheckInHandler:  checkInHandler,
		RealtimeHandler: realtimeHandler,
	})

	fmt.Printf("Server listening on :%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
