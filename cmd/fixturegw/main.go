package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fixturelab/fixture-gateway/internal/cache"
	"github.com/fixturelab/fixture-gateway/internal/config"
	"github.com/fixturelab/fixture-gateway/internal/gateway"
	"github.com/fixturelab/fixture-gateway/internal/server"
	"github.com/fixturelab/fixture-gateway/internal/upstream"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional)")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration (.env first so the API key can live there)
	_ = godotenv.Load()
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	timeout, _ := cfg.Upstream.UpstreamTimeout()
	delay, _ := cfg.Upstream.Delay()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Initialize Cache Store
	var store cache.Store
	switch cfg.Cache.Backend {
	case "redis":
		redisStore := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisStore.Close()
		store = redisStore
	default:
		memStore := cache.NewMemoryStore()
		go memStore.Start(ctx, time.Minute)
		store = memStore
	}
	cacheGW := cache.NewGateway(store, 5*time.Second)

	// 3. Initialize Upstream Client
	client := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, timeout)

	// 4. Initialize Dispatcher
	dispatcher := gateway.NewDispatcher(client, cacheGW, gateway.Options{
		Mode:           cfg.Gateway.Mode,
		DefaultDays:    cfg.Gateway.DefaultDays,
		MaxVarietyDays: cfg.Gateway.MaxVarietyDays,
		Sports:         cfg.Gateway.Sports,
		RateLimitDelay: delay,
		DirectoryTTL:   time.Duration(cfg.Cache.DirectoryTTL) * time.Second,
		SingleDayTTL:   time.Duration(cfg.Cache.SingleDayTTL) * time.Second,
		DateRangeTTL:   time.Duration(cfg.Cache.DateRangeTTL) * time.Second,
		LeagueTTL:      time.Duration(cfg.Cache.LeagueTTL) * time.Second,
	})

	slog.Info("Dispatcher initialized",
		"mode", cfg.Gateway.Mode,
		"cache_backend", cfg.Cache.Backend,
		"default_days", cfg.Gateway.DefaultDays,
		"sports", cfg.Gateway.Sports,
	)

	// 5. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cacheGW, cfg.Server.Mode)
	dispatcher.RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		slog.Info("Shutdown signal received")
		cancel()
	}()

	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}

	// Drain tracked background cache writes before exiting, so replies that
	// already went out do not lose their cache entries.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := cacheGW.Wait(drainCtx); err != nil {
		slog.Warn("Timed out draining cache writes", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
