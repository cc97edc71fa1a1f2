// main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cleaning-booking/cmd"
	"cleaning-booking/internal/data/repository"
	"cleaning-booking/internal/provider/paypal"
	"cleaning-booking/internal/usecase"
	"cleaning-booking/internal/wire"
	"cleaning-booking/pkg/database"
	"cleaning-booking/pkg/metrics"
	"cleaning-booking/pkg/mq"
	"cleaning-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
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

	if config.JWT.Secret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	metrics.Register()

	// Optional catalog cache
	var cache repository.CacheStore
	if config.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		defer client.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
		} else {
			cache = client
			logger.Info("Catalog cache enabled", zap.String("addr", config.Redis.Addr))
		}
		cancel()
	}

	// Optional event publisher
	var publisher usecase.EventPublisher
	if config.Rabbit.URL != "" {
		pub, err := mq.NewPublisher(config.Rabbit.URL, config.Rabbit.Exchange)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, domain events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			publisher = pub
			logger.Info("Publishing domain events", zap.String("exchange", config.Rabbit.Exchange))
		}
	}

	// PayPal is enabled only with credentials
	var provider usecase.PaymentProvider
	if config.PayPal.ClientID != "" && config.PayPal.ClientSecret != "" {
		provider = paypal.NewClient(config.PayPal, logger)
		logger.Info("PayPal enabled", zap.String("base_url", config.PayPal.BaseURL))
	} else {
		logger.Warn("PayPal credentials missing, paypal payments disabled")
	}

	// Initialize all repositories
	repos := repository.NewRepository(db, logger, cache, config.Redis.CacheTTL)

	// Wire all dependencies
	app := wire.Wiring(wire.Deps{
		Repo:      repos,
		Tx:        db,
		Provider:  provider,
		Publisher: publisher,
		DB:        db,
		Config:    config,
		Log:       logger,
	})

	// Start server
	if err := cmd.APIServer(ctx, app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
