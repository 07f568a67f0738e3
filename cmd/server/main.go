package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nattapongw/carelink/internal/api"
	"github.com/nattapongw/carelink/internal/config"
	"github.com/nattapongw/carelink/internal/db"
	"github.com/nattapongw/carelink/internal/metrics"
	"github.com/nattapongw/carelink/internal/notify"
	"github.com/nattapongw/carelink/internal/observ"
	"github.com/nattapongw/carelink/internal/redis"
	"github.com/nattapongw/carelink/internal/sweep"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; env vars win over .env
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting carelink sweep service",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
	)

	// Initialize database connection
	ctx := context.Background()
	dbConfig := db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}

	database, err := db.New(ctx, dbConfig, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := db.NewRepository(database, logger)

	// Redis backs the sweep lease and cron rate limiting; the service
	// runs without it, falling back to an in-process guard.
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, using in-process sweep guard",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
		redisClient = nil
	}

	var rateLimiter *redis.RateLimiter
	if redisClient != nil {
		rateLimiter = redis.NewRateLimiter(redisClient, logger, redis.RateLimitConfig{
			Limit:  10,              // the scheduler calls once a day; 10/min absorbs retries
			Window: 1 * time.Minute,
		})
		defer redisClient.Close()
	}

	httpTimeout := time.Duration(cfg.HTTPTimeoutSec) * time.Second

	// Email provider chain: SMTP relay first, hosted template API second
	smtpProvider := notify.NewSMTPProvider(notify.SMTPConfig{
		Host:        cfg.SMTPHost,
		Port:        cfg.SMTPPort,
		User:        cfg.SMTPUser,
		Pass:        cfg.SMTPPass,
		Secure:      cfg.SMTPSecure,
		FromAddr:    cfg.EmailFromAddr,
		FromName:    cfg.EmailFromName,
		DialTimeout: httpTimeout,
	}, logger)

	apiProvider := notify.NewTemplateAPIProvider(notify.TemplateAPIConfig{
		BaseURL:    cfg.EmailAPIURL,
		Key:        cfg.EmailAPIKey,
		Secret:     cfg.EmailAPISecret,
		TemplateID: cfg.EmailTemplateID,
		FromAddr:   cfg.EmailFromAddr,
		FromName:   cfg.EmailFromName,
		Timeout:    httpTimeout,
	}, logger)

	emailChain := notify.NewEmailChain(logger, smtpProvider, apiProvider)

	smsSender := notify.NewSMSSender(notify.SMSConfig{
		BaseURL:     cfg.SMSAPIURL,
		Key:         cfg.SMSAPIKey,
		Secret:      cfg.SMSAPISecret,
		Sender:      cfg.SMSSender,
		CountryCode: cfg.SMSCountryCode,
		Timeout:     httpTimeout,
	}, logger)

	logger.Info("delivery channels initialized",
		zap.Bool("email_configured", emailChain.Configured()),
		zap.Bool("smtp_configured", smtpProvider.Configured()),
		zap.Bool("email_api_configured", apiProvider.Configured()),
		zap.Bool("sms_configured", smsSender.Configured()),
	)

	collector := sweep.NewCollector(repo, cfg.LogStaleDays, logger)
	dispatcher := sweep.NewDispatcher(repo, emailChain, smsSender, cfg.DedupeSameDay, logger)
	sweepLock := redis.NewSweepLock(redisClient, logger)
	runner := sweep.NewRunner(collector, dispatcher, sweepLock, logger)

	handler := api.NewHandler(logger, runner, repo, api.Channels{
		Email: emailChain.Configured(),
		SMS:   smsSender.Configured(),
	}, cfg.CronSecret)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute)) // a full sweep can outlast a normal request
	r.Use(metrics.Middleware)

	// Custom logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration_ms", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	})

	r.Route("/cron", func(r chi.Router) {
		r.Use(api.RateLimitMiddleware(rateLimiter, logger, api.IPKeyFunc))

		r.Get("/daily-check", handler.DailyCheck)
		r.Post("/daily-check", handler.DailyCheck)
		r.Get("/alert-logs", handler.ListAlertLogs)
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.Health(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Prometheus metrics endpoint
	r.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 6 * time.Minute, // must exceed the sweep timeout
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))

		// Give an in-flight sweep time to finish its current event
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}

		logger.Info("server stopped gracefully")
	}

	return nil
}
