package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"callbook/internal/config"
	"callbook/internal/database"
	"callbook/internal/extract"
	"callbook/internal/metrics"
	"callbook/internal/notify"
	"callbook/internal/queue"
	"callbook/internal/saver"
	"callbook/internal/server"
	"callbook/internal/sheets"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("CALLBOOK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One queue handle shared by the webhook path and the saver.
	gate := queue.NewGate(logger)
	var pending queue.Queue
	switch cfg.Queue.Backend {
	case "file":
		pending = queue.NewFile(cfg.Queue.FilePath, gate, logger)
	default:
		pending = queue.NewSQL(db, gate, logger)
	}

	resolver := server.NewResolver(db, logger)
	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		resolver.UseRedisCache(rdb, cfg.RedisCacheTTL())
	}

	var store saver.ConfirmedStore = saver.NewSQLStore(db)
	if cfg.Sheets.Enabled {
		mirror, err := sheets.NewService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, cfg.Sheets.RatePerSecond, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create sheets mirror")
		}
		store = saver.NewFanOutStore(store, mirror, logger)
	}

	var notifier saver.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram notifier")
		}
		notifier = tg
	}

	coordinator := saver.New(saver.Config{
		IdleInterval: cfg.SaverIdleInterval(),
		BetweenJobs:  cfg.SaverBetweenJobs(),
	}, pending, store, notifier, logger)
	coordinator.Start(ctx)
	defer coordinator.Stop()

	if cfg.Backup.Enabled {
		storagePath := cfg.Backup.StoragePath
		if storagePath == "" {
			storagePath = "data/backups"
		}
		backup := database.NewBackupService(cfg.Database.Path, storagePath,
			cfg.BackupInterval(), cfg.Backup.RetentionDays, logger)
		backup.Start()
		defer backup.Stop()
	}

	if cfg.Monitoring.HealthCheckPort != 0 {
		go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, &logger)
	}

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	extractor := extract.New(logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: server.New(db, pending, extractor, resolver, logger).Routes(),
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Str("queue_backend", cfg.Queue.Backend).Msg("callbook server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
