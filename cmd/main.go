package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"monitoring-service/internal/config"
	"monitoring-service/internal/database/minio"
	"monitoring-service/internal/database/postgres"
	"monitoring-service/internal/database/redis"
	"monitoring-service/internal/event"
	"monitoring-service/internal/handlers"
	"monitoring-service/internal/repository"
	"monitoring-service/internal/services"
	"monitoring-service/internal/worker"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// setupLogging sends JSON logs to stdout and, when a log directory is configured,
// to a daily file inside it.
func setupLogging(cfg config.LogConfig) (*os.File, error) {
	var out io.Writer = os.Stdout
	var file *os.File

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}

		logFileName := fmt.Sprintf("log_%s.log", time.Now().Format("2006-01-02"))
		logFile := filepath.Join(cfg.Dir, logFileName)

		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level:     cfg.SlogLevel(),
		AddSource: true,
	}))
	slog.SetDefault(logger)

	return file, nil
}

func main() {
	cfg := config.New()

	logFile, err := setupLogging(cfg.LogCfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ============================================================================
	// INFRASTRUCTURE
	// ============================================================================

	slog.Info("Connecting to PostgreSQL",
		"host", cfg.PostgresCfg.Host,
		"port", cfg.PostgresCfg.Port,
		"user", cfg.PostgresCfg.Username,
		"dbname", cfg.PostgresCfg.DBname)
	db, err := postgres.ConnectAndCreateDB(cfg.PostgresCfg)
	if err != nil {
		slog.Error("error connect to database, retrying", "error", err)
		var retryDB *sqlx.DB
		postgres.RetryConnectOnFailed(ctx, 30*time.Second, &retryDB, cfg.PostgresCfg)
		if retryDB == nil {
			slog.Error("Database unavailable, exiting")
			os.Exit(1)
		}
		db = retryDB
	}
	defer db.Close()

	var cache services.Cache
	redisClient, err := redis.NewRedisClient(cfg.RedisCfg.Host, cfg.RedisCfg.Port, cfg.RedisCfg.Password, cfg.RedisCfg.DB)
	if err != nil {
		slog.Warn("Redis unavailable, statistics will not be cached", "error", err)
	} else {
		cache = redisClient
		defer redisClient.Close()
	}

	minioClient, err := minio.NewMinioClient(cfg.MinioCfg)
	if err != nil {
		slog.Error("Failed to initialize MinIO", "error", err)
		os.Exit(1)
	}

	pool := worker.NewWorkingPool("monitoring", cfg.WorkerCfg.NumWorkers, cfg.WorkerCfg.QueueSize)

	// ============================================================================
	// REPOSITORIES AND SERVICES
	// ============================================================================

	regionRepo := repository.NewRegionRepository(db)
	observationRepo := repository.NewObservationRepository(db)
	predictionRepo := repository.NewRiskPredictionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	userRepo := repository.NewUserRepository(db)

	aggregationService := services.NewAggregationService(observationRepo, regionRepo, cache, cfg.RedisCfg.StatsTTL)
	observationService := services.NewObservationService(observationRepo, regionRepo, aggregationService)
	regionService := services.NewRegionService(regionRepo, aggregationService)
	predictionService := services.NewRiskPredictionService(predictionRepo, regionRepo, aggregationService)
	dashboardService := services.NewDashboardService(regionRepo, observationRepo, aggregationService, cache, cfg.RedisCfg.StatsTTL)
	jwtService := services.NewJWTService(cfg.JWTCfg.Secret, cfg.JWTCfg.Expiry)
	authService := services.NewAuthService(userRepo, jwtService, cfg.JWTCfg.BootstrapAdminEmail)

	var publisher services.EventPublisher
	var rabbitPublisher *event.Publisher
	rabbitConn, err := event.ConnectRabbitMQ(cfg.RabbitMQCfg)
	if err == nil {
		err = rabbitConn.DeclareQueues()
	}
	if err != nil {
		slog.Warn("RabbitMQ unavailable, processing uploads in-process", "error", err)
		publisher = event.NewLocalPublisher(pool)
	} else {
		defer rabbitConn.Close()
		rabbitPublisher = event.NewPublisher(rabbitConn)
		publisher = rabbitPublisher

		consumer := event.NewUploadConsumer(rabbitConn, pool)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("Failed to start upload consumer", "error", err)
			os.Exit(1)
		}
	}

	uploadService := services.NewUploadService(uploadRepo, regionRepo, observationService, aggregationService,
		minioClient, publisher, minio.Storage.DataUploads)
	reportService := services.NewReportService(reportRepo, regionRepo, observationRepo, predictionRepo,
		minioClient, publisher, minio.Storage.Reports, cfg.MinioCfg.PresignExpiry)

	// ============================================================================
	// BACKGROUND JOBS
	// ============================================================================

	pool.RegisterJob(worker.JobTypeProcessUpload, func(ctx context.Context, params map[string]any) error {
		raw, _ := params["upload_id"].(string)
		uploadID, err := uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid upload_id %q: %w", raw, err)
		}
		return uploadService.Process(ctx, uploadID)
	})
	pool.RegisterJob(worker.JobTypeRefreshPredictions, func(ctx context.Context, _ map[string]any) error {
		created, err := predictionService.RefreshDailyPredictions(ctx)
		if err != nil {
			return err
		}
		slog.Info("Daily predictions refreshed", "created", created)
		return nil
	})

	var poolWg sync.WaitGroup
	poolWg.Add(1)
	go pool.Start(ctx, &poolWg)

	scheduler := worker.NewJobScheduler("daily-predictions", cfg.WorkerCfg.PredictionInterval, pool)
	scheduler.AddJob(worker.JobPayload{
		Type:       worker.JobTypeRefreshPredictions,
		MaxRetries: 1,
	})
	go scheduler.Run(ctx, true)

	// ============================================================================
	// HTTP
	// ============================================================================

	app := fiber.New(fiber.Config{
		BodyLimit: services.MaxUploadSize + 1<<20,
	})
	app.Get("/checkhealth", func(c fiber.Ctx) error {
		status := fiber.Map{"status": "healthy", "queue": "local", "cache": "disabled"}
		if redisClient != nil {
			status["cache"] = "ok"
			if err := redisClient.Ping(c.Context()); err != nil {
				status["cache"] = "unreachable"
			}
		}
		if rabbitPublisher != nil {
			published, failed := rabbitPublisher.Stats()
			status["queue"] = "rabbitmq"
			status["events_published"] = published
			status["events_failed"] = failed
		}
		return c.Status(fiber.StatusOK).JSON(status)
	})

	authHandler := handlers.NewAuthHandler(authService)
	authHandler.RegisterPublic(app.Group("/monitoring/public/api/v1"))

	protected := app.Group("/monitoring/protected/api/v1", handlers.NewAuthMiddleware(authService).RequireAuth())
	authHandler.RegisterRoutes(protected)
	handlers.NewRegionHandler(regionService, aggregationService).RegisterRoutes(protected)
	handlers.NewObservationHandler(observationService, cfg.PageSize).RegisterRoutes(protected)
	handlers.NewUploadHandler(uploadService, cfg.PageSize).RegisterRoutes(protected)
	handlers.NewPredictionHandler(predictionService, cfg.PageSize).RegisterRoutes(protected)
	handlers.NewReportHandler(reportService, cfg.PageSize).RegisterRoutes(protected)
	handlers.NewDashboardHandler(dashboardService).RegisterRoutes(protected)

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := app.Listen(fmt.Sprintf("0.0.0.0:%s", cfg.Port)); err != nil {
			slog.Error("Error starting server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	poolWg.Wait()
	slog.Info("Monitoring service stopped")
}
