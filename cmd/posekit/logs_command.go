package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"posekit/internal/logging"
	"posekit/internal/logs"
)

const followWait = 2 * time.Second

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		level     string
		component string
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent entries from the posekit log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Paths.LogDir) == "" {
				return errors.New("paths.log_dir is not set; file logging is disabled")
			}
			filter := logs.Filter{MinLevel: slog.LevelDebug, Component: strings.TrimSpace(component)}
			if level != "" {
				if err := filter.MinLevel.UnmarshalText([]byte(level)); err != nil {
					return fmt.Errorf("invalid --level %q: %w", level, err)
				}
			}
			if lines < 0 {
				return errors.New("--lines must not be negative")
			}

			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return streamLogs(runCtx, cmd.OutOrStdout(), path, lines, follow, filter, raw)
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new entries until interrupted")
	cmd.Flags().StringVar(&level, "level", "", "Minimum level to show (debug, info, warn, error)")
	cmd.Flags().StringVar(&component, "component", "", "Only show entries from this component")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the JSON lines unchanged")
	return cmd
}

func streamLogs(ctx context.Context, out io.Writer, path string, lines int, follow bool, filter logs.Filter, raw bool) error {
	chunk, err := logs.Tail(ctx, path, logs.Options{Offset: -1, Limit: lines})
	if err != nil {
		return err
	}
	printLogLines(out, chunk.Lines, filter, raw)

	for follow {
		chunk, err = logs.Tail(ctx, path, logs.Options{Offset: chunk.Offset, Follow: true, Wait: followWait})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		printLogLines(out, chunk.Lines, filter, raw)
	}
	return nil
}

func printLogLines(out io.Writer, lines []string, filter logs.Filter, raw bool) {
	for _, line := range lines {
		rec, ok := logs.ParseRecord(line)
		if !ok {
			fmt.Fprintln(out, line)
			continue
		}
		if !filter.Match(rec) {
			continue
		}
		if raw {
			fmt.Fprintln(out, line)
			continue
		}
		fmt.Fprintln(out, logs.Format(rec, nil))
	}
}
