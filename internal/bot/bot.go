// Package bot implements the core bot functionality, lifecycle management,
// and component orchestration for the slipbot application.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/slipledger/slipbot/internal/config"
	"github.com/slipledger/slipbot/internal/database"
)

const webhookShutdownTimeout = 10 * time.Second

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	tgBot     *tgbot.Bot
	scheduler *Scheduler
}

// NewBot creates a new instance of the bot with all required dependencies.
func NewBot(
	logger *slog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	store database.Store,
	tgBot *tgbot.Bot,
	scheduler *Scheduler,
) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		cfg:       cfg,
		db:        db,
		store:     store,
		tgBot:     tgBot,
		scheduler: scheduler,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on
// context cancellation. Updates arrive via webhook when a listen address is
// configured, otherwise via long polling.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	webhookMode := b.cfg.Telegram.WebhookListenAddr != ""

	g.Go(func() error {
		if webhookMode {
			b.logger.Info("Starting Telegram webhook listener...", "url", b.cfg.Telegram.WebhookURL)
			if _, err := b.tgBot.SetWebhook(gCtx, &tgbot.SetWebhookParams{URL: b.cfg.Telegram.WebhookURL}); err != nil {
				return fmt.Errorf("failed to register webhook: %w", err)
			}
			b.tgBot.StartWebhook(gCtx)
		} else {
			b.logger.Info("Starting Telegram polling listener...")
			b.tgBot.Start(gCtx)
		}
		b.logger.Info("Telegram listener stopped.")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram listener stopped unexpectedly without context cancellation.")
			return fmt.Errorf("telegram listener stopped unexpectedly")
		}
		return nil
	})

	if webhookMode {
		g.Go(func() error {
			mux := http.NewServeMux()
			mux.HandleFunc("/webhook", b.tgBot.WebhookHandler())

			srv := &http.Server{
				Addr:    b.cfg.Telegram.WebhookListenAddr,
				Handler: mux,
			}

			serveErr := make(chan error, 1)
			go func() {
				b.logger.Info("Webhook HTTP server listening", "addr", srv.Addr)
				serveErr <- srv.ListenAndServe()
			}()

			select {
			case err := <-serveErr:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("webhook server failed: %w", err)
				}
				return nil
			case <-gCtx.Done():
				b.logger.Info("Shutting down webhook HTTP server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), webhookShutdownTimeout)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					b.logger.Error("Webhook server shutdown error", "error", err)
				}
				return nil
			}
		})
	}

	g.Go(func() error {
		b.logger.Info("Starting scheduler...")
		if err := b.scheduler.Start(); err != nil {
			b.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	b.logger.Info("Bot orchestrator running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully.")
	return nil
}
