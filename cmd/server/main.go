package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/itt1233/augeo/internal/config"
	"github.com/itt1233/augeo/internal/coordination"
	"github.com/itt1233/augeo/internal/database"
	"github.com/itt1233/augeo/internal/ledger"
	"github.com/itt1233/augeo/internal/logging"
	"github.com/itt1233/augeo/internal/processor"
	"github.com/itt1233/augeo/internal/queue"
	"github.com/itt1233/augeo/internal/rank"
	"github.com/itt1233/augeo/internal/redis"
	"github.com/itt1233/augeo/internal/server"
	"github.com/itt1233/augeo/internal/stream"
	"github.com/itt1233/augeo/internal/websocket"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func setupRedis(cfg *config.Config) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func instanceID(cfg *config.Config) string {
	if cfg.InstanceID != "" {
		return cfg.InstanceID
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		return hostname
	}
	return uuid.NewString()
}

type shutdownTargets struct {
	srv          *server.Server
	actionQueue  *queue.Queue
	manager      *stream.Manager
	hub          *websocket.Hub
	stopRegistry context.CancelFunc
}

func runGracefulShutdown(targets shutdownTargets) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := targets.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		// Streams first so no new actions arrive, then drain the queue,
		// then drop the feed clients and registry entries.
		targets.manager.Shutdown()
		targets.actionQueue.Stop()
		targets.hub.Stop()
		targets.stopRegistry()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	pool := setupDB(cfg)
	defer pool.Close()

	redisClient := setupRedis(cfg)
	defer func() { _ = redisClient.Close() }()

	// Repositories and the experience ledger
	tweetRepo := database.NewTweetRepo(pool)
	mentionRepo := database.NewMentionRepo(pool)
	userRepo := database.NewUserRepo(pool)
	skillRepo := database.NewSkillRepo(pool)
	experienceLedger := ledger.New(skillRepo)

	proc := processor.New(tweetRepo, mentionRepo, userRepo, experienceLedger)

	hub := websocket.NewHub(cfg.MaxFeedClients)
	proc.SetPublisher(hub)

	// Stream registry with heartbeat loop
	registry := coordination.NewStreamRegistry(redisClient, instanceID(cfg), cfg.StreamHeartbeat, clock)
	registryCtx, stopRegistry := context.WithCancel(context.Background())
	go registry.Start(registryCtx)

	// Queue and stream manager reference each other: the queue dispatches
	// Open actions to the manager, the manager feeds stream events back in.
	actionQueue := queue.New(proc, nil)
	adapter := stream.NewGatewayAdapter(cfg.StreamGatewayURL)
	manager := stream.NewManager(adapter, actionQueue, registry)
	actionQueue.SetOpener(manager)
	actionQueue.Start()

	srv := server.NewServer(cfg, server.Deps{
		Rank:     rank.NewService(skillRepo),
		Tweets:   tweetRepo,
		Users:    userRepo,
		Hub:      hub,
		Queue:    actionQueue,
		Streams:  manager,
		Registry: registry,
		Postgres: pool,
		Redis:    redisClient,
	})

	done := runGracefulShutdown(shutdownTargets{
		srv:          srv,
		actionQueue:  actionQueue,
		manager:      manager,
		hub:          hub,
		stopRegistry: stopRegistry,
	})

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
