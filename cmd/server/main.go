package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"keyclue/internal/bus"
	"keyclue/internal/cache"
	"keyclue/internal/config"
	"keyclue/internal/logger"
	"keyclue/internal/presence"
	"keyclue/internal/repository"
	"keyclue/internal/service"
	"keyclue/internal/session"
	"keyclue/internal/transport/rest"
	"keyclue/internal/transport/ws"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat == "json")

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		logger.Fatal("failed to ping MongoDB", "error", err)
	}
	logger.Info("connected to MongoDB")

	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer rdb.Close()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Fatal("failed to ping Redis", "error", err)
	}
	logger.Info("connected to Redis")

	// Initialize repositories
	gameRepo := repository.NewGameRepo(db)
	roundRepo := repository.NewRoundRepo(db)
	pickRepo := repository.NewPickRepo(db)
	playerRepo := repository.NewPlayerRepo(db)
	wordRepo := repository.NewWordRepo(db)

	if err := pickRepo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("failed to ensure pick indexes", "error", err)
	}

	// Initialize caches
	gameCache := cache.NewGameCache(rdb)
	leaderboard := cache.NewLeaderboardCache(rdb)

	// Event bus and session registry
	eventBus := bus.New()
	sessions := session.NewRegistry(roundRepo, eventBus)

	// Initialize services
	authSvc := service.NewAuthService(cfg.HostUsername, cfg.HostPassword, cfg.JWTSecret)
	wordSvc := service.NewWordService(wordRepo)
	gameSvc := service.NewGameService(gameRepo, roundRepo, playerRepo, wordSvc, gameCache, leaderboard, sessions, eventBus, cfg.LobbyTimeout)
	playerSvc := service.NewPlayerService(playerRepo, gameCache, authSvc, eventBus)
	pickSvc := service.NewPickService(pickRepo, roundRepo, playerRepo, wordSvc, gameCache, leaderboard, sessions, gameSvc, eventBus)

	// WebSocket hub and presence monitor
	wsHub := ws.NewHub(eventBus)
	monitor := presence.NewMonitor(eventBus, wsHub, gameSvc, gameSvc, cfg.PresenceDebounce)
	defer monitor.Stop()
	logger.Info("presence monitor started", "debounce", cfg.PresenceDebounce)

	// Create router with container
	container := &rest.Container{
		AuthService:   authSvc,
		GameService:   gameSvc,
		PlayerService: playerSvc,
		PickService:   pickSvc,
		WSHub:         wsHub,
		HostWatcher:   monitor,
	}

	router := rest.NewRouter(container)

	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.Info("server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen and serve", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
