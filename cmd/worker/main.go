package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"caretaker.app/relay/common/id"
	"caretaker.app/relay/common/logger"
	"caretaker.app/relay/common/otel"
	"caretaker.app/relay/core/config"
	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/ratelimit"
	"caretaker.app/relay/internal/store"
	"caretaker.app/relay/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)
	logger.Setup(cfg)

	slog.InfoContext(ctx, "relay dispatcher starting",
		"env", cfg.Env,
		"interval", cfg.Dispatch.Interval,
		"aggregate_interval", cfg.Dispatch.AggregateInterval)

	// Different node ID than the server
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected")

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	stores := store.NewStores(redisClient)
	reservoir := ratelimit.NewReservoir(cfg.Dispatch.ReservoirSize, cfg.Dispatch.ReservoirWindow, nil)

	runner := worker.NewRunner(
		worker.NewDispatcher(queue.NewRedisConsumer(redisClient), reservoir, stores.Reviews(), stores.DeadLetters(), m),
		worker.NewAggregator(stores.Reviews(), m),
		worker.RunnerConfig{
			DispatchInterval:  cfg.Dispatch.Interval,
			AggregateInterval: cfg.Dispatch.AggregateInterval,
		},
	)
	runner.Start(ctx)

	// Metrics only; the worker has no API surface.
	metricsServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "metrics server error", "error", err)
		}
	}()

	slog.InfoContext(ctx, "dispatcher initialized and running", "metrics_port", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down dispatcher...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	runner.Stop()

	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "metrics server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "dispatcher shutdown complete")
}

const banner = `
 ██████╗ █████╗ ██████╗ ███████╗████████╗ █████╗ ██╗  ██╗███████╗██████╗     ██████╗ ██╗███████╗██████╗  █████╗ ████████╗ ██████╗██╗  ██╗
██╔════╝██╔══██╗██╔══██╗██╔════╝╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝██╔══██╗    ██╔══██╗██║██╔════╝██╔══██╗██╔══██╗╚══██╔══╝██╔════╝██║  ██║
██║     ███████║██████╔╝█████╗     ██║   ███████║█████╔╝ █████╗  ██████╔╝    ██║  ██║██║███████╗██████╔╝███████║   ██║   ██║     ███████║
██║     ██╔══██║██╔══██╗██╔══╝     ██║   ██╔══██║██╔═██╗ ██╔══╝  ██╔══██╗    ██║  ██║██║╚════██║██╔═══╝ ██╔══██║   ██║   ██║     ██╔══██║
╚██████╗██║  ██║██║  ██║███████╗   ██║   ██║  ██║██║  ██╗███████╗██║  ██║    ██████╔╝██║███████║██║     ██║  ██║   ██║   ╚██████╗██║  ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝    ╚═════╝ ╚═╝╚══════╝╚═╝     ╚═╝  ╚═╝   ╚═╝    ╚═════╝╚═╝  ╚═╝
`
