package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"maple-exp-bot/bot"
	"maple-exp-bot/config"
)

type renderOptions struct {
	configPath *string
	output     string
	timeout    time.Duration
}

func newRenderCmd(configPath *string) *cobra.Command {
	opts := &renderOptions{configPath: configPath}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a character chart to a PNG file",
		Long: `Render the charts the bot posts without going through Telegram.
Only the game API key is required.`,
	}
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "output PNG path (default <name>-<kind>.png)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for API calls")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "weekly <name>",
			Short: "Render the 7-day exp chart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runWeekly(cmd.Context(), cmd.OutOrStdout(), args[0])
			},
		},
		&cobra.Command{
			Use:   "monthly <name> [year month]",
			Short: "Render the monthly exp heatmap",
			Args: func(cmd *cobra.Command, args []string) error {
				if len(args) != 1 && len(args) != 3 {
					return fmt.Errorf("expected <name> or <name> <year> <month>, got %d args", len(args))
				}
				return nil
			},
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.runMonthly(cmd.Context(), cmd.OutOrStdout(), args)
			},
		},
	)
	return cmd
}

func (o *renderOptions) reports() (*bot.Reports, error) {
	cfg, err := config.LoadForRender(*o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", *o.configPath, err)
	}
	return newReports(cfg)
}

func (o *renderOptions) runWeekly(ctx context.Context, out io.Writer, name string) error {
	reports, err := o.reports()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	report, err := reports.Weekly(ctx, name)
	if err != nil {
		return fmt.Errorf("%s: %w", bot.UserMessage(err), err)
	}
	if report.Chart == nil {
		return fmt.Errorf("no exp data for %s in the last 7 days", name)
	}

	path := o.path(name, "weekly")
	if err := writePNG(path, report.Chart); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(report.Chart))))
	if summary := bot.FormatWeeklySummary(report.Summary); summary != "" {
		fmt.Fprintln(out, summary)
	}
	return nil
}

func (o *renderOptions) runMonthly(ctx context.Context, out io.Writer, args []string) error {
	reports, err := o.reports()
	if err != nil {
		return err
	}
	name, year, month, ok := bot.ParseMonthlyArgs(strings.Join(args, " "), reports.Now())
	if !ok {
		return fmt.Errorf("invalid year or month: %s", strings.Join(args[1:], " "))
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	report, err := reports.Monthly(ctx, name, year, month)
	if err != nil {
		return fmt.Errorf("%d-%02d: %w", year, int(month), err)
	}

	path := o.path(name, fmt.Sprintf("%d-%02d", year, int(month)))
	if err := writePNG(path, report.Chart); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", path, humanize.Bytes(uint64(len(report.Chart))))
	return nil
}

func (o *renderOptions) path(name, kind string) string {
	if o.output != "" {
		return o.output
	}
	return fmt.Sprintf("%s-%s.png", name, kind)
}

func writePNG(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
