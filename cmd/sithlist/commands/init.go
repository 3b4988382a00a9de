package commands

import (
	"fmt"

	"github.com/robinvenneman/flux-challenge/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	forceInit bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default sithlist.yml",
	Long: `Write a commented sithlist.yml holding the default configuration.

The file is written to the --config path. Use --force to overwrite an
existing file (WARNING: destroys the existing configuration).`,
	Args: cobra.NoArgs,
	// Skips config loading: the file may be missing or invalid
	PersistentPreRun: func(cmd *cobra.Command, args []string) {},
	RunE:             runInit,
}

func init() {
	// Note: Cannot use -f shorthand because it conflicts with global --config flag
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if !forceInit {
		if err := scaffold.CheckExisting(configPath); err != nil {
			return err
		}
	}

	if err := scaffold.Initialize(configPath, forceInit); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	scaffold.PrintSuccess(configPath)
	return nil
}
