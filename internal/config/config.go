// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const (
	defaultPort  = "3000"
	defaultModel = "gemini-1.5-flash"
)

// Config holds everything the server needs at startup.
type Config struct {
	Port         string
	GeminiAPIKey string
	GeminiModel  string
}

// Load reads configuration from a .env file (if present) and the environment.
// The Gemini API key is required; the server must not start without it.
func Load() (Config, error) {
	// A missing .env file is fine, real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := Config{
		Port:         getEnv("PORT", defaultPort),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", defaultModel),
	}

	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is not set in environment variables")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
