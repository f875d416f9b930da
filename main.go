package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classquiz-service/config"
	"classquiz-service/internal/client"
	"classquiz-service/internal/handlers"
	"classquiz-service/internal/repository"
	"classquiz-service/internal/service"
	ws "classquiz-service/internal/websocket"
	"classquiz-service/pkg/cache"
	"classquiz-service/pkg/database"
	"classquiz-service/pkg/messaging"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()
	log.Println("Configuration loaded")

	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API environment variable is required")
	}

	dbClient, err := database.Open(&cfg.DB)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Connected to %s database", cfg.DB.Driver)
	defer dbClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := dbClient.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize database schema: %v", err)
	}
	cancel()
	log.Println("Database schema initialized")

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		redisClient = nil
	} else {
		log.Println("Connected to Redis")
		defer redisClient.Close()
	}

	mqClient, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
	if err != nil {
		log.Printf("Warning: Failed to connect to RabbitMQ: %v", err)
		mqClient = nil
	} else {
		log.Println("Connected to RabbitMQ")
		defer mqClient.Close()
	}

	hub := ws.NewHub()
	go hub.Run()
	log.Println("WebSocket hub started")

	quizRepo := repository.NewQuizRepository(dbClient.GetDB())
	responseRepo := repository.NewResponseRepository(dbClient.GetDB())

	var quizCache service.Cache
	if redisClient != nil {
		quizCache = redisClient
	}
	var publisher service.EventPublisher
	if mqClient != nil {
		publisher = mqClient
	}

	quizService := service.NewQuizService(quizRepo, responseRepo, hub, quizCache, publisher)

	promptText := ""
	if cfg.Gemini.PromptPath != "" {
		data, err := os.ReadFile(cfg.Gemini.PromptPath)
		if err != nil {
			log.Fatalf("Failed to read cluster prompt file: %v", err)
		}
		promptText = string(data)
	}

	geminiClient := client.NewGeminiClient(&cfg.Gemini)
	clusterService, err := service.NewClusterService(geminiClient, promptText)
	if err != nil {
		log.Fatalf("Failed to build cluster service: %v", err)
	}

	quizHandler := handlers.NewQuizHandler(quizService, clusterService, cfg.Server.PublicBaseURL)
	wsHandler := handlers.NewWebSocketHandler(hub, quizService)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handlers.NewRouter(quizHandler, wsHandler, dbClient)

	httpAddr := ":" + cfg.Server.HTTPPort
	log.Printf("Quiz service HTTP server starting on port %s...", cfg.Server.HTTPPort)

	go func() {
		if err := router.Run(httpAddr); err != nil {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Quiz service stopped")
}
