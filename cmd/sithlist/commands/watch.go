package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/robinvenneman/flux-challenge/internal/watch"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchOnce         bool
	watchTimeout      time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream the list as it loads and changes",
	Long: `Run the list without the interactive view and print it after every change:
each record landing in a slot and each planet update.

Output Formats:
  default - Human-readable table; records born on the current planet marked with *
  jsonl   - One JSON snapshot per line for programmatic processing

Examples:
  sithlist watch
  sithlist watch --output=jsonl | jq '.location.name'
  sithlist watch --once --timeout 30s`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format (default or jsonl)")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "Print the list once it has finished loading, then exit")
	watchCmd.Flags().DurationVar(&watchTimeout, "timeout", 30*time.Second, "With --once, how long to wait for the list to load")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	outputFormat, err := watch.ParseOutputFormat(watchOutputFormat)
	if err != nil {
		return printer.Error(
			"invalid output format",
			fmt.Sprintf("Unknown format: %s", watchOutputFormat),
			[]string{"Valid formats: default, jsonl"},
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(cfg, logger)
	if err != nil {
		return err
	}
	defer rt.close()

	if err := rt.start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appErr := make(chan error, 1)
	go func() {
		err := rt.app.Run(ctx)
		if err != nil {
			cancel()
		}
		appErr <- err
	}()

	out := cmd.OutOrStdout()
	var viewErr error
	if watchOnce {
		snap, err := watch.PollUntilSettled(ctx, rt.app, watchTimeout)
		if err == nil {
			viewErr = watch.Write(out, snap, outputFormat)
		} else if ctx.Err() == nil {
			viewErr = printer.Error(
				"list did not finish loading",
				err.Error(),
				[]string{"Check that the records API is running", "Raise --timeout"},
			)
		}
	} else {
		viewErr = watch.StreamWindow(ctx, rt.app, out, outputFormat)
	}
	cancel()

	if err := <-appErr; err != nil {
		return appError(err)
	}
	return viewErr
}
