package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/collab-whiteboard/backend/api/handlers"
	"github.com/collab-whiteboard/backend/internal/config"
	"github.com/collab-whiteboard/backend/internal/genai"
	"github.com/collab-whiteboard/backend/internal/room"
	"github.com/collab-whiteboard/backend/internal/ws"
)

func main() {
	// The server refuses to start without the model API credential.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Room state lives for the process lifetime only.
	registry := room.NewRegistry()
	gateway := ws.NewHandler(registry)
	analyzer := genai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)

	r := gin.Default()
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	handlers.NewAnalyzeHandler(analyzer).RegisterRoutes(r)
	handlers.NewWebSocketHandler(gateway).RegisterRoutes(r)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down server...")
		gateway.Hubs().Close()
		os.Exit(0)
	}()

	log.Printf("Server running on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// corsMiddleware returns a CORS middleware for the browser frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
