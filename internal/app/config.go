package app

import (
	"strings"

	"github.com/questforge/roadmap-engine/internal/logger"
	"github.com/questforge/roadmap-engine/internal/utils"
)

type Config struct {
	Port              string
	Environment       string
	Version           string
	LayoutEngine      string
	LayoutOptionsPath string
	AllowedOrigins    []string
	RedisEnabled      bool
}

func LoadConfig(log *logger.Logger) Config {
	origins := strings.Split(utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173", log), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return Config{
		Port:              utils.GetEnv("PORT", "8080", log),
		Environment:       utils.GetEnv("APP_ENV", "development", log),
		Version:           utils.GetEnv("APP_VERSION", "dev", log),
		LayoutEngine:      utils.GetEnv("LAYOUT_ENGINE", "ranked", log),
		LayoutOptionsPath: utils.GetEnv("LAYOUT_OPTIONS_PATH", "", log),
		AllowedOrigins:    origins,
		RedisEnabled:      utils.GetEnvAsBool("REDIS_ENABLED", false, log),
	}
}
