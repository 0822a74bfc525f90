// Standalone background saver: drains the pending queue into the
// confirmed store without running the webhook server. Run exactly one
// saver per queue; the queue has no multi-consumer protection.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"callbook/internal/config"
	"callbook/internal/database"
	"callbook/internal/notify"
	"callbook/internal/queue"
	"callbook/internal/saver"
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

	gate := queue.NewGate(logger)
	var pending queue.Queue
	switch cfg.Queue.Backend {
	case "file":
		pending = queue.NewFile(cfg.Queue.FilePath, gate, logger)
	default:
		pending = queue.NewSQL(db, gate, logger)
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
	<-ctx.Done()
	coordinator.Stop()
}
