package commands

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robinvenneman/flux-challenge/internal/listing"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/spf13/cobra"
)

var getUseCache bool

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a single dark jedi and print it as JSON",
	Long: `Fetch one record from the records API and print it as pretty JSON.

With --cache the record is read through the Redis cache configured by
cache.redis_url (SITHLIST_REDIS_URL), and stored there on a miss.

Examples:
  sithlist get 3616
  sithlist get 3616 --cache | jq '.apprentice.id'`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getUseCache, "cache", false, "Read through the Redis record cache")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return printer.Error(
			"invalid record id",
			fmt.Sprintf("%q is not a positive integer.", args[0]),
			[]string{"Pass the numeric id of a dark jedi, e.g. sithlist get 3616"},
		)
	}

	if getUseCache && !cfg.CacheEnabled() {
		return printer.Error(
			"record cache not configured",
			"--cache needs a Redis URL.",
			[]string{"Set cache.redis_url in sithlist.yml or SITHLIST_REDIS_URL"},
		)
	}

	lookup := *cfg
	if !getUseCache {
		lookup.Cache.RedisURL = ""
	}

	f, cache, err := newFetcher(&lookup, logger, metrics.New(prometheus.NewRegistry()))
	if err != nil {
		return err
	}
	defer closeCache(cache)

	rec, err := f.Fetch(cmd.Context(), id)
	if err != nil {
		return printer.FetchError(id, cfg.APIURL, err)
	}

	return listing.FormatSingleJSON(cmd.OutOrStdout(), rec)
}
