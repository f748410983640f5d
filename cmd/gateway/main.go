package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/coregate/gateway/internal/admission"
	"github.com/coregate/gateway/internal/config"
	"github.com/coregate/gateway/internal/metrics"
	"github.com/coregate/gateway/internal/proxy"
	"github.com/coregate/gateway/internal/server"
	"github.com/coregate/gateway/internal/store"
	"github.com/coregate/gateway/internal/telemetry"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	shutdownTracer, err := telemetry.InitTracer("gateway", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	kv, err := store.NewRedis(store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Timeout:  cfg.Redis.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer func() {
		if err := kv.Close(); err != nil {
			logger.Error("failed to close redis client", slog.String("error", err.Error()))
		}
	}()

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	pipeline := admission.NewPipeline(
		admission.NewLimiter(kv, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger, m),
		admission.NewVerifier(cfg.Auth.Secret),
		admission.NewChecker(kv, logger, m),
		cfg.Auth.PublicPaths,
		logger,
		m,
	)

	routes := make([]proxy.Route, 0, len(cfg.Routes))
	for _, rt := range cfg.Routes {
		routes = append(routes, proxy.Route{
			Prefix:      rt.Prefix,
			Upstream:    rt.Upstream,
			StripPrefix: rt.StripPrefix,
		})
	}
	backend, err := proxy.New(routes, logger)
	if err != nil {
		log.Fatalf("Failed to build route table: %v", err)
	}

	srv := server.New(cfg, logger, pipeline, backend, m, registry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("gateway shutdown complete")
}
