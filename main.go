package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"maple-exp-bot/bot"
	"maple-exp-bot/chart"
	"maple-exp-bot/config"
	"maple-exp-bot/history"
	"maple-exp-bot/nexon"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "maple-exp-bot",
		Short: "MapleStory character stats bot for Telegram",
		Long: `maple-exp-bot answers character lookups in Telegram chats with
info cards, 7-day exp charts and monthly exp heatmaps, and posts the
Sunday Maple event to subscribed chats every week.

Running without a subcommand starts the bot.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.GetConfigPath(), "path to the YAML config file")

	root.AddCommand(newServeCmd(&configPath), newRenderCmd(&configPath))
	return root
}

// newLogger builds the JSON logger used by every command. Unknown levels
// fall back to info.
func newLogger(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// newReports wires the game API client, history collector and chart
// renderer shared by the bot and the render command.
func newReports(cfg *config.Config) (*bot.Reports, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	client := nexon.NewClient(
		cfg.NexonAPIKey,
		nexon.WithBaseURL(cfg.NexonBaseURL),
		nexon.WithTimeout(cfg.FetchTimeout()),
		nexon.WithRateLimit(cfg.RequestsPerSecond),
		nexon.WithOCIDCache(cfg.OCIDCacheSize, cfg.OCIDCacheTTL()),
	)
	collector := history.NewCollector(
		nexon.NewSnapshotFetcher(client),
		history.WithConcurrency(cfg.FetchConcurrency),
	)
	renderer, err := chart.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("init chart renderer: %w", err)
	}

	now := func() time.Time { return time.Now().In(loc) }
	return bot.NewReports(client, collector, renderer, now), nil
}
