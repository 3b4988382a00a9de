package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/robinvenneman/flux-challenge/internal/tui"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Show the interactive dark jedi list",
	Long: `Show five consecutive dark jedi, starting around initial_id, and keep the
list in sync with the planet Obi-Wan is currently on.

Keys:
  ↑ / k   scroll towards masters
  ↓ / j   scroll towards apprentices
  q       quit

Logs are discarded unless --log-file is given, since the list owns the terminal.

Examples:
  sithlist run
  sithlist run --log-file sithlist.log --verbose
  SITHLIST_PUSH_URL=redis://localhost:6379/0 sithlist run`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
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

	uiErr := tui.Run(ctx, rt.app, tea.WithAltScreen())
	cancel()

	if err := <-appErr; err != nil {
		return appError(err)
	}
	return uiErr
}
