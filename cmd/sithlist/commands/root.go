package commands

import (
	"fmt"

	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/logging"
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version string
	commit  string
	date    string
)

// Global flags
var (
	configPath string
	verbose    bool
	healthAddr string
	logFile    string
)

// Loaded by PersistentPreRunE for every subcommand
var (
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sithlist",
	Short: "Sithlist - dark jedi list with live planet tracking",
	Long: `Sithlist shows five consecutive dark jedi from the master/apprentice
chain served by the records API, prefetching neighbours as you scroll, and
highlights every dark jedi born on the planet Obi-Wan is currently on.

Records come from the records API (api_url); planet updates arrive on the
push channel (push_url), either a websocket or a Redis Pub/Sub channel.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		cfg = loaded

		// The interactive view owns the terminal, so it only logs to a file
		if cmd.Name() == "run" && logFile == "" {
			logger = zap.NewNop()
			return nil
		}

		opts := logging.Options{Level: cfg.LogLevel, Verbose: verbose}
		if logFile != "" {
			opts.Outputs = []string{logFile}
		}
		logger, err = logging.New(opts)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		loaded *config.Config
		err    error
	)
	if cmd.Flags().Changed("config") {
		loaded, err = config.Load(configPath)
	} else {
		loaded, err = config.LoadOrDefault(configPath)
	}
	if err != nil {
		return nil, printer.ConfigError(configPath, err)
	}

	if healthAddr != "" {
		loaded.HealthAddr = healthAddr
	}
	return loaded, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed by the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to sithlist.yml (defaults apply when the file is missing)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging with the console encoder")
	rootCmd.PersistentFlags().StringVar(&healthAddr, "health-addr", "", "Serve /healthz and /metrics on this address (overrides health_addr)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}
