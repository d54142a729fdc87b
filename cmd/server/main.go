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

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"caretaker.app/relay/common/id"
	"caretaker.app/relay/common/logger"
	"caretaker.app/relay/common/otel"
	"caretaker.app/relay/core/config"
	"caretaker.app/relay/internal/http/middleware"
	httprouter "caretaker.app/relay/internal/http/router"
	"caretaker.app/relay/internal/metrics"
	"caretaker.app/relay/internal/queue"
	"caretaker.app/relay/internal/ratelimit"
	"caretaker.app/relay/internal/security"
	"caretaker.app/relay/internal/service"
	"caretaker.app/relay/internal/service/issue_tracker"
	"caretaker.app/relay/internal/store"
	"caretaker.app/relay/internal/worker"
)

func main() {
	fmt.Printf("%s\n", banner)
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "relay starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
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
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	stores := store.NewStores(redisClient)
	ring := security.NewRedisSecretRing(redisClient)
	audit := security.NewAuditLog(logger.NewAudit(cfg, nil), redisClient, cfg.Security.AuditStream)
	gate := security.NewGate(ring, security.NewRedisReplayGuard(redisClient), audit, m)
	consumer := queue.NewRedisConsumer(redisClient)

	services := service.NewServices(
		stores,
		queue.NewRedisProducer(redisClient, slog.Default()),
		consumer,
		ring,
		newIssueCreator(cfg),
		m,
	)

	seeded, err := services.Security().SeedSecret(ctx, cfg.Security.InitialSecret)
	if err != nil {
		slog.ErrorContext(ctx, "failed to seed webhook secret", "error", err)
		os.Exit(1)
	}
	if seeded {
		slog.InfoContext(ctx, "webhook secret ring seeded from configuration")
	} else if expired, err := ring.IsExpired(ctx); err == nil && expired {
		slog.WarnContext(ctx, "webhook secret ring is empty; signed webhooks will be rejected until a secret is rotated in")
	}

	var runner *worker.Runner
	if cfg.Dispatch.Enabled {
		reservoir := ratelimit.NewReservoir(cfg.Dispatch.ReservoirSize, cfg.Dispatch.ReservoirWindow, nil)
		runner = worker.NewRunner(
			worker.NewDispatcher(consumer, reservoir, stores.Reviews(), stores.DeadLetters(), m),
			worker.NewAggregator(stores.Reviews(), m),
			worker.RunnerConfig{
				DispatchInterval:  cfg.Dispatch.Interval,
				AggregateInterval: cfg.Dispatch.AggregateInterval,
			},
		)
		runner.Start(ctx)
		slog.InfoContext(ctx, "dispatch loops started",
			"interval", cfg.Dispatch.Interval,
			"reservoir", cfg.Dispatch.ReservoirSize,
			"reservoir_window", cfg.Dispatch.ReservoirWindow)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, gate, registry)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if runner != nil {
		runner.Stop()
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func newIssueCreator(cfg config.Config) issue_tracker.IssueCreator {
	if !cfg.GitHub.Enabled() {
		return issue_tracker.NewLoggingIssueCreator(slog.Default())
	}
	return issue_tracker.NewGitHubIssueCreator(issue_tracker.GitHubConfig{
		Token:      cfg.GitHub.Token,
		MaxRetries: 3,
	}, slog.Default())
}

func setupRouter(cfg config.Config, services *service.Services, gate *security.Gate, registry *prometheus.Registry) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, services, gate, httprouter.RouterConfig{
		SignatureHeader: cfg.Security.SignatureHeader,
		AdminAPIKey:     cfg.AdminAPIKey,
		Gatherer:        registry,
	})

	return router
}

const banner = `
 ██████╗ █████╗ ██████╗ ███████╗████████╗ █████╗ ██╗  ██╗███████╗██████╗
██╔════╝██╔══██╗██╔══██╗██╔════╝╚══██╔══╝██╔══██╗██║ ██╔╝██╔════╝██╔══██╗
██║     ███████║██████╔╝█████╗     ██║   ███████║█████╔╝ █████╗  ██████╔╝
██║     ██╔══██║██╔══██╗██╔══╝     ██║   ██╔══██║██╔═██╗ ██╔══╝  ██╔══██╗
╚██████╗██║  ██║██║  ██║███████╗   ██║   ██║  ██║██║  ██╗███████╗██║  ██║
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚═╝
`
