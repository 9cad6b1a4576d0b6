package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"maple-exp-bot/announce"
	"maple-exp-bot/bot"
	"maple-exp-bot/config"
	"maple-exp-bot/scheduler"
	"maple-exp-bot/scraper"
	"maple-exp-bot/server"
	"maple-exp-bot/storage"
)

const (
	queueSize    = 64
	eventTimeout = 2 * time.Minute
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

func runServe(parent context.Context, configPath string) error {
	if parent == nil {
		parent = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}

	logger := newLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)
	slog.Info("starting maple exp bot", "config", configPath)

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init database %s: %w", cfg.DBPath, err)
	}
	defer db.Close()
	slog.Info("database initialized", "path", cfg.DBPath)

	tgBot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("init telegram bot: %w", err)
	}
	slog.Info("telegram bot initialized", "username", tgBot.Self.UserName)

	reports, err := newReports(cfg)
	if err != nil {
		return err
	}
	events := scraper.NewScraper(
		scraper.WithTimeout(cfg.FetchTimeout()),
		scraper.WithListURL(cfg.EventListURL),
	)

	sched, err := scheduler.NewScheduler(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sender := &telegramSender{api: tgBot}
	handler := bot.NewCommandHandler(
		sender,
		reports,
		events,
		&subscriptionStore{db: db},
		bot.WithScouterURL(cfg.ScouterBaseURL),
		bot.WithNextAnnouncement(sched.Next),
	)
	runner := announce.NewRunner(events, db, sender)
	dispatcher := bot.NewDispatcher(handler, runner, queueSize, eventTimeout)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	weekday, err := scheduler.ParseWeekday(cfg.AnnounceWeekday)
	if err != nil {
		return err
	}
	if err := sched.ScheduleWeekly(weekday, cfg.AnnounceTime, func() {
		if err := dispatcher.Submit(ctx, bot.Event{Kind: bot.EventAnnouncement}); err != nil {
			slog.Warn("announcement not queued", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule announcement: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	slog.Info("announcement scheduled",
		"weekday", weekday.String(),
		"time", cfg.AnnounceTime,
		"timezone", cfg.Timezone,
		"next", sched.Next())

	if cfg.MetricsAddr != "" {
		srv := server.New(server.Config{
			Addr:             cfg.MetricsAddr,
			Logger:           logger,
			DB:               db,
			NextAnnouncement: sched.Next,
		})
		go func() {
			if err := srv.Start(); err != nil {
				slog.Error("metrics server failed", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Warn("metrics server shutdown", "error", err)
			}
		}()
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		dispatcher.Run(ctx)
	}()

	slog.Info("starting bot polling")
	poll(ctx, tgBot, dispatcher)
	<-dispatchDone
	slog.Info("bot stopped")
	return nil
}

// poll forwards command updates to the dispatcher until ctx is done.
func poll(ctx context.Context, api *tgbotapi.BotAPI, dispatcher *bot.Dispatcher) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)
	defer api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := commandEvent(update)
			if !ok {
				continue
			}
			if err := dispatcher.Submit(ctx, ev); err != nil {
				if errors.Is(err, bot.ErrQueueClosed) || ctx.Err() != nil {
					return
				}
				slog.Warn("command not queued", "chat_id", ev.ChatID, "error", err)
			}
		}
	}
}
