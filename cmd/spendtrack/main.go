package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"spendtrack/internal/amqp"
	"spendtrack/internal/auth"
	"spendtrack/internal/cache"
	"spendtrack/internal/config"
	"spendtrack/internal/filter"
	apphttp "spendtrack/internal/http"
	"spendtrack/internal/ratelimit"
	"spendtrack/internal/services"
	"spendtrack/internal/storage"
	"spendtrack/internal/summary"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Summary cache with periodic expiry sweeps.
	results := cache.NewUserCache[summary.Result](cfg.CacheMaxEntries, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(results)
	cacheManager.StartCleanup(cfg.CacheTTL)
	defer cacheManager.Stop()

	filterOpts := filter.Options{YearlyEnabled: cfg.PeriodYearlyEnabled}
	summaryOpts := summary.Options{
		StreakWindowDays:  cfg.StreakWindowDays,
		StreakMaxDays:     cfg.StreakMaxDays,
		AnomalyMultiplier: cfg.AnomalyMultiplier,
	}
	summaries := summary.NewService(repo, repo, results, filterOpts, summaryOpts)

	// Expense events feed the report worker. The API stays up without the
	// broker; mutations just skip publishing.
	var publisher services.EventPublisher
	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Warn("AMQP unavailable, expense events disabled", "error", err)
	} else {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	expenses := services.NewExpenseService(repo, publisher, summaries, filterOpts)
	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	limiter := ratelimit.NewLimiter(ratelimit.Config{
		Limits: map[string]int{
			ratelimit.ScopeExpenseMutation: cfg.RateLimitMutationsPerMinute,
			ratelimit.ScopeSummaryRead:     cfg.RateLimitSummaryPerMinute,
		},
		CleanupInterval: 5 * time.Minute,
	})

	srv := apphttp.NewServer(":"+cfg.Port, repo, expenses, summaries, tokens, limiter)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting spendtrack server", "port", cfg.Port, "amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
