// main.go
package main

import (
	"context"
	"log"

	"shop-account/cmd"
	"shop-account/internal/data/repository"
	"shop-account/internal/data/secretstore"
	"shop-account/internal/wire"
	"shop-account/pkg/database"
	"shop-account/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
	)

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	// Connect to Redis (secret store for pending OTPs)
	redisClient, err := database.InitRedis(context.Background(), config.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	logger.Info("Redis connected successfully")

	// Initialize repositories and the secret store
	repos := repository.NewRepository(db, logger)
	store := secretstore.NewRedisStore(redisClient, logger)

	// Drop sessions that expired long ago
	if err := repos.Session.CleanExpiredSessions(context.Background()); err != nil {
		logger.Warn("Failed to clean expired sessions", zap.Error(err))
	}

	// Wire all dependencies
	app, err := wire.Wiring(repos, store, config, logger)
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	// Start server
	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))

	cmd.APIServer(app.Router, config.App.Port)
}
