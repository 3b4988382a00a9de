package commands

import (
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the Redis record cache",
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached record in the configured namespace",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func init() {
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	if !cfg.CacheEnabled() {
		return printer.Error(
			"record cache not configured",
			"There is no Redis cache to purge.",
			[]string{"Set cache.redis_url in sithlist.yml or SITHLIST_REDIS_URL"},
		)
	}

	client, err := newRosterClient(cfg.Cache.RedisURL, cfg.Namespace)
	if err != nil {
		return err
	}
	defer client.Close()

	n, err := client.PurgeRecords(cmd.Context())
	if err != nil {
		return printer.ErrorWithContext(
			"failed to purge cache",
			err.Error(),
			map[string]string{"Redis": cfg.Cache.RedisURL, "Namespace": cfg.Namespace},
			nil,
		)
	}

	printer.Success("Purged %d cached records from namespace '%s'\n", n, cfg.Namespace)
	return nil
}
