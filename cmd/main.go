package main

import (
	"context"
	_ "emi-engine/docs"
	"emi-engine/internal/api"
	"emi-engine/internal/api/middleware"
	"emi-engine/internal/batch"
	"emi-engine/internal/config"
	"emi-engine/internal/domain/loan"
	"emi-engine/internal/event"
	"emi-engine/internal/infrastructure/database/postgres"
	"emi-engine/internal/infrastructure/idempotency"
	"emi-engine/internal/infrastructure/logging"
	"emi-engine/internal/infrastructure/tracing"
	"emi-engine/internal/pkg/clock"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// @title EMI Engine API
// @version 1.0
// @description Reducing-balance EMI loans: schedule generation, interest-first payment allocation, closure detection and ledger reporting.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, logger := initializeApp()

	shutdownTracing := initializeTracing(cfg, logger)

	dbPool := initializeDatabase(cfg, logger)
	defer closeDatabase(dbPool, logger)

	rabbitMQConn, err := setupRabbitMQ(cfg, logger)
	if err != nil {
		logger.Warn("Continuing without RabbitMQ; events will only be logged", slog.Any("error", err))
	}
	redisClient := initializeRedisClient(cfg, logger)
	rateLimiter := initializeRateLimiter(cfg, redisClient, logger)

	clk := clock.SystemClock{}
	policy := initializePolicy(cfg, logger)
	publisher := initializePublisher(cfg, rabbitMQConn, logger)
	loanService, loanRepo := initializeServices(cfg, dbPool, publisher, redisClient, policy, clk, logger)

	overdueJob := batch.NewOverdueReportJob(loanRepo, publisher, policy, clk, cfg.Batch.Concurrency, logger)

	cronScheduler := startBatchJobs(cfg, logger, overdueJob)
	router := api.SetupRouter(loanService, rateLimiter, clk, cfg, logger)

	srv, serverErrors, shutdownChan := startServer(cfg, router, logger)
	handleShutdown(srv, cronScheduler, rabbitMQConn, redisClient, shutdownTracing, shutdownChan, serverErrors, logger)
}

func initializeApp() (*config.Config, *slog.Logger) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := setupLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("Application starting...", "config_source", viper.ConfigFileUsed())

	return cfg, logger
}

func initializeTracing(cfg *config.Config, logger *slog.Logger) tracing.ShutdownFunc {
	shutdown, err := tracing.Init(context.Background(), cfg.Tracing, logger)
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	return shutdown
}

func initializeDatabase(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	if cfg.Database.Migrate {
		logger.Info("Applying database migrations...")
		if err := postgres.RunMigrations(cfg.Database.URL, logger); err != nil {
			logger.Error("Failed to apply database migrations", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Initializing database connection pool...")
	dbPool, err := postgres.NewConnectionPool(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	return dbPool
}

func closeDatabase(dbPool *pgxpool.Pool, logger *slog.Logger) {
	logger.Info("Closing database connection pool...")
	dbPool.Close()
}

func initializeRateLimiter(cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) *middleware.RateLimiterMiddleware {
	return middleware.NewRateLimiterMiddleware(cfg.Server.RateLimit, redisClient, logger)
}

func initializePolicy(cfg *config.Config, logger *slog.Logger) loan.Policy {
	policy, err := loan.NewPolicy(cfg.Loan.RoundingTolerance)
	if err != nil {
		logger.Error("Invalid loan policy configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("Loan policy loaded", "rounding_tolerance", policy.RoundingTolerance.StringFixed(2))
	return policy
}

func initializePublisher(cfg *config.Config, rabbitConn *amqp.Connection, logger *slog.Logger) event.EventPublisher {
	if rabbitConn == nil {
		return event.NewLogEventPublisher(logger)
	}
	publisher, err := event.NewRabbitMQEventPublisher(rabbitConn, cfg.RabbitMQ.ExchangeName, logger)
	if err != nil {
		logger.Warn("Failed to create RabbitMQ publisher, falling back to log publisher", "error", err)
		return event.NewLogEventPublisher(logger)
	}
	return publisher
}

func initializeServices(
	cfg *config.Config,
	dbPool *pgxpool.Pool,
	publisher event.EventPublisher,
	redisClient *redis.Client,
	policy loan.Policy,
	clk clock.Clock,
	logger *slog.Logger,
) (loan.LoanService, loan.Repository) {
	logger.Info("Initializing application components...")
	loanRepo := postgres.NewLoanRepository(dbPool, logger)

	var guard loan.InFlightGuard
	if redisClient != nil {
		guard = idempotency.NewRedisGuard(redisClient, cfg.Payment.InFlightTTL, logger)
	}

	loanService := loan.NewLoanService(loanRepo, publisher, loan.ServiceOptions{
		Policy:          policy,
		MaxRetries:      cfg.Payment.MaxRetries,
		MaxTenureMonths: cfg.Loan.MaxTenureMonths,
		Guard:           guard,
		Clock:           clk,
	}, logger)
	return loanService, loanRepo
}

func startServer(cfg *config.Config, router http.Handler, logger *slog.Logger) (*http.Server, <-chan error, <-chan os.Signal) {
	logger.Info("Setting up HTTP server...", "port", cfg.Server.Port)
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Server listening on port %d", cfg.Server.Port))
		err := srv.ListenAndServe()
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			serverErrors <- err
		} else {
			logger.Info("Server closed gracefully.")
			serverErrors <- nil
		}
	}()
	return srv, serverErrors, shutdownChan
}

func handleShutdown(srv *http.Server, cronScheduler *cron.Cron, rabbitConn *amqp.Connection, redisClient *redis.Client,
	shutdownTracing tracing.ShutdownFunc, shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) {
	logger.Info("Shutdown handler started. Waiting for signal or server error...")

	triggerReason := waitForShutdownTrigger(shutdownChan, serverErrors, logger)

	logger.Info("Starting graceful shutdown...", "trigger", triggerReason)

	stopCronScheduler(cronScheduler, logger)
	shutdownHTTPServer(srv, serverErrors, logger)
	closeRabbitMQConnection(rabbitConn, logger)
	closeRedisClient(redisClient, logger)
	flushTracing(shutdownTracing, logger)

	logger.Info("Application shutdown process complete.")
}

func waitForShutdownTrigger(shutdownChan <-chan os.Signal, serverErrors <-chan error, logger *slog.Logger) string {
	select {
	case sig := <-shutdownChan:
		logger.Info("Shutdown signal received.", "signal", sig.String())
		return "signal: " + sig.String()
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server exited unexpectedly before signal", "error", err)
			os.Exit(1)
		}
		logger.Info("Server goroutine finished before signal.", "error", err)
		return "server exited"
	}
}

func stopCronScheduler(cronScheduler *cron.Cron, logger *slog.Logger) {
	logger.Info("Stopping cron scheduler...")
	cronCtx := cronScheduler.Stop()
	select {
	case <-cronCtx.Done():
		logger.Info("Cron scheduler stopped gracefully.")
	case <-time.After(15 * time.Second):
		logger.Warn("Cron scheduler shutdown timed out.")
	}
}

func closeRabbitMQConnection(rabbitConn *amqp.Connection, logger *slog.Logger) {
	if rabbitConn != nil && !rabbitConn.IsClosed() {
		logger.Info("Closing RabbitMQ connection...")
		if err := rabbitConn.Close(); err != nil {
			logger.Error("Failed to close RabbitMQ connection gracefully", slog.Any("error", err))
		} else {
			logger.Info("RabbitMQ connection closed.")
		}
	} else if rabbitConn == nil {
		logger.Info("RabbitMQ connection was not established, skipping close.")
	} else {
		logger.Info("RabbitMQ connection already closed, skipping close.")
	}
}

func shutdownHTTPServer(srv *http.Server, serverErrors <-chan error, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server graceful shutdown failed", "error", err)
		} else {
			logger.Info("HTTP server shutdown initiated.")
		}
		if err := srv.Close(); err != nil {
			logger.Error("HTTP server forced close failed", "error", err)
		}
	} else {
		logger.Info("HTTP server gracefully stopped.")
	}

	logger.Info("Waiting for server goroutine to confirm exit...")
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Server goroutine exited with unexpected error after shutdown", "error", err)
		} else {
			logger.Info("Server goroutine confirmed exit.")
		}
	case <-time.After(5 * time.Second):
		logger.Warn("Timed out waiting for server goroutine confirmation.")
	}
}

func flushTracing(shutdownTracing tracing.ShutdownFunc, logger *slog.Logger) {
	if shutdownTracing == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(ctx); err != nil {
		logger.Warn("Failed to flush traces", "error", err)
	}
}

// initializeRedisClient returns nil when Redis is not configured or not
// reachable. Rate limiting then stays in process and the in-flight guard is
// skipped.
func initializeRedisClient(cfg *config.Config, logger *slog.Logger) *redis.Client {
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis address (addr) is not configured; running without Redis.")
		return nil
	}

	logger.Info("Initializing central Redis client...")
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if status := rdb.Ping(ctx); status.Err() != nil {
		logger.Error("Failed to connect to Redis; running without Redis", "error", status.Err(), "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		return nil
	}

	logger.Info("Central Redis client connected successfully.", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	return rdb
}

func closeRedisClient(redisClient *redis.Client, logger *slog.Logger) {
	if redisClient != nil {
		logger.Info("Closing central Redis client connection...")
		if err := redisClient.Close(); err != nil {
			logger.Error("Failed to close central Redis client connection gracefully", "error", err)
		} else {
			logger.Info("Central Redis client connection closed.")
		}
	} else {
		logger.Info("Redis client was not initialized, skipping close.")
	}
}

func startBatchJobs(cfg *config.Config, logger *slog.Logger, overdueJob *batch.OverdueReportJob) *cron.Cron {
	logger.Info("Initializing batch job scheduler...")
	c := cron.New()

	scheduleSpec := cfg.Batch.OverdueReportSchedule
	if scheduleSpec == "" {
		scheduleSpec = "0 2 * * *"
		logger.Warn("Overdue report schedule not configured, using default", "schedule", scheduleSpec)
	}
	jobTimeout := cfg.Batch.OverdueReportTimeout
	if jobTimeout <= 0 {
		jobTimeout = 1 * time.Hour
	} else {
		jobTimeout = jobTimeout * time.Second
	}

	jobID, err := c.AddJob(scheduleSpec, cron.FuncJob(func() {
		jobLogger := logger.With("job_name", "OverdueReport")
		jobLogger.Info("Cron triggered: Running overdue report job.")

		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		if runErr := overdueJob.Run(ctx); runErr != nil {
			jobLogger.Error("Overdue report job finished with error", slog.Any("error", runErr))
		} else {
			jobLogger.Info("Overdue report job finished successfully.")
		}
	}))

	if err != nil {
		logger.Error("Failed to schedule overdue report job", "schedule", scheduleSpec, slog.Any("error", err))
	} else {
		logger.Info("Scheduled overdue report job", "schedule", scheduleSpec, "job_id", jobID)
	}

	c.Start()
	logger.Info("Cron scheduler started.")
	return c
}

func setupLogger(cfg config.LoggerConfig) *slog.Logger {
	return logging.NewLogger(cfg)
}

func connectRabbitMQ(uri string, logger *slog.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	retryCount := 5
	for i := 1; i <= retryCount; i++ {
		conn, err = amqp.Dial(uri)
		if err == nil {
			logger.Info("Successfully connected to RabbitMQ")

			go func() {
				blockChan := conn.NotifyBlocked(make(chan amqp.Blocking))
				closeChan := conn.NotifyClose(make(chan *amqp.Error))

				select {
				case b := <-blockChan:
					logger.Warn("RabbitMQ Connection Blocked", "reason", b.Reason)
				case e := <-closeChan:
					logger.Error("RabbitMQ Connection Closed", slog.Any("error", e))
				}
			}()

			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying...",
			slog.Int("attempt", i),
			slog.Int("max_attempts", retryCount),
			slog.Any("error", err),
		)
		time.Sleep(time.Duration(i*2) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retryCount, err)
}

// rabbitMQURI builds the AMQP URI from configuration.
func rabbitMQURI(cfg config.RabbitMQConfig) (string, error) {
	if cfg.Host == "" {
		return "", fmt.Errorf("RabbitMQ host is not configured")
	}
	port := cfg.Port
	if port == 0 {
		port = 5672
	}
	if cfg.Username != "" && cfg.Password != "" {
		return fmt.Sprintf("amqp://%s:%s@%s:%d", cfg.Username, cfg.Password, cfg.Host, port), nil
	}
	if cfg.Username != "" || cfg.Password != "" {
		return "", fmt.Errorf("RabbitMQ username and password must be provided together")
	}
	return fmt.Sprintf("amqp://%s:%d", cfg.Host, port), nil
}

func setupRabbitMQ(cfg *config.Config, logger *slog.Logger) (*amqp.Connection, error) {
	uri, err := rabbitMQURI(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}

	conn, err := connectRabbitMQ(uri, logger)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		return nil, err
	}
	return conn, nil
}
