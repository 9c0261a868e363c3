package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streampulse/internal/core/domain"
	"streampulse/internal/core/ports"
	"streampulse/internal/core/services"
	httphandlers "streampulse/internal/handlers/http"
	"streampulse/internal/infrastructure/distributed"
	"streampulse/internal/infrastructure/middleware"
	"streampulse/internal/infrastructure/monitoring"
	"streampulse/internal/infrastructure/reports"
	repositories "streampulse/internal/infrastructure/repositories"
	feed "streampulse/internal/infrastructure/signal"
	"streampulse/pkg/config"
	"streampulse/pkg/logger"
	"streampulse/pkg/retry"
	"streampulse/pkg/tracing"
	"streampulse/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	issueToken := flag.String("issue-token", "", "print an operator token for the given subject and exit")
	flag.Parse()

	startTime := time.Now()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	var authService services.AuthService
	if cfg.Auth.Enabled || *issueToken != "" {
		authService = services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	}
	if *issueToken != "" {
		token, err := authService.GenerateToken(*issueToken, domain.RoleOperator)
		if err != nil {
			log.Fatalw("failed to issue token", "error", err)
		}
		fmt.Println(token)
		return
	}
	if !cfg.Auth.Enabled {
		authService = nil
	}

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "streampulse",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repoFactory, err := repositories.NewRepositoryFactory(cfg, log)
	if err != nil {
		log.Fatalw("failed to create repository factory", "error", err)
	}
	reportRepo := repoFactory.CreateReportRepository()

	// Monitor
	var recorder ports.MetricsRecorder = ports.NopMetricsRecorder{}
	if cfg.Monitoring.PrometheusEnabled {
		recorder = monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)
	}
	opts := []services.MonitorOption{services.WithMetricsRecorder(recorder)}
	if cfg.Monitor.Seed != 0 {
		opts = append(opts, services.WithRandomSource(rand.New(rand.NewSource(cfg.Monitor.Seed))))
	}
	monitor, err := services.NewHealthMonitorService(services.MonitorConfig{
		TickInterval:   cfg.Monitor.TickInterval,
		HistorySize:    cfg.Monitor.HistorySize,
		InitialBitrate: float64(cfg.Monitor.InitialBitrate),
		Optimization: domain.OptimizationSettings{
			AutoOptimize:          cfg.Monitor.AutoOptimize,
			AutoBitrateAdjustment: cfg.Monitor.AutoBitrateAdjustment,
		},
	}, log.Named("monitor"), opts...)
	if err != nil {
		log.Fatalw("failed to create health monitor", "error", err)
	}
	if cfg.Monitor.AutoStart {
		monitor.StartMonitoring(ctx)
	}

	// Reports
	reportService := services.NewHealthReportService(monitor, reportRepo, retry.DefaultConfig(), log.Named("reports"))
	scheduler := reports.NewScheduler(reportService, monitor, cfg.Reports.PersistInterval, log.Named("scheduler"))
	go scheduler.Start(ctx)

	// Cross-instance events
	var eventClient *redis.Client
	if cfg.Events.Enabled {
		client, err := repoFactory.RedisClient()
		if err != nil {
			log.Warnw("event bus disabled, redis unavailable", "error", err)
		} else {
			eventClient = client
			bus := distributed.NewEventBus(client, utils.GenerateID("instance"), cfg.Events.Channel, log.Named("events"))
			bus.SetTickSampling(cfg.Events.TickEvery)
			go bus.Forward(ctx, monitor, cfg.Feed.BufferSize)
			go func() {
				err := bus.Subscribe(ctx, distributed.LogRemoteEvents(log.Named("remote")))
				if err != nil && ctx.Err() == nil {
					log.Warnw("event bus subscription ended", "error", err)
				}
			}()
			log.Infow("event bus enabled", "channel", cfg.Events.Channel)
		}
	}

	feedServer := feed.NewFeedServer(monitor, feed.FeedConfig{
		PingInterval: cfg.Feed.PingInterval,
		WriteTimeout: cfg.Feed.WriteTimeout,
		BufferSize:   cfg.Feed.BufferSize,
	}, log.Named("feed"))

	checker := monitoring.NewHealthChecker()
	checker.AddCheck("storage", func(ctx context.Context) (bool, error) {
		err := repoFactory.HealthCheck(ctx)
		return err == nil, err
	}, 2*time.Second)
	checker.AddRepositoryCheck(reportRepo, 2*time.Second)
	if eventClient != nil {
		checker.AddRedisCheck(eventClient, 2*time.Second)
	}

	// HTTP
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		log.Fatalw("invalid trusted proxies", "error", err)
	}
	router.Use(middleware.RecoveryMiddleware(log))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}
	contextLogger := logger.NewContextLogger(zapLogger)
	router.Use(middleware.RequestLoggingMiddleware(contextLogger))
	router.Use(middleware.ErrorHandlerMiddleware(contextLogger))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))

	control := middleware.AuthMiddleware(authService, domain.RoleOperator)
	httphandlers.NewHealthHandler(ctx, monitor).SetupRoutes(router, control)
	httphandlers.NewReportHandler(reportService).SetupRoutes(router, control)

	router.GET("/ws", gin.WrapF(feedServer.HandleWebSocket))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":       monitoring.StatusHealthy,
			"timestamp":    time.Now(),
			"uptime":       time.Since(startTime).String(),
			"isMonitoring": monitor.IsMonitoring(),
			"feedClients":  feedServer.ConnectionCount(),
			"storage":      repoFactory.Driver(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := checker.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting streampulse server",
			"address", cfg.Server.Address,
			"storage", repoFactory.Driver(),
			"auth", cfg.Auth.Enabled,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down streampulse server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	scheduler.Stop()
	feedServer.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	}

	monitor.StopMonitoring()
	cancel()

	if err := repoFactory.Close(); err != nil {
		log.Errorw("error closing repository factory", "error", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer", "error", err)
	}

	log.Info("streampulse server stopped")
}
