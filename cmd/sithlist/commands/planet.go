package commands

import (
	"fmt"
	"net/url"

	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/spf13/cobra"
)

var (
	planetID   int
	planetName string
)

var planetCmd = &cobra.Command{
	Use:   "planet",
	Short: "Publish Obi-Wan's current planet on the Redis push channel",
	Long: `Publish a location on sithlist:{namespace}:location_events so every
sithlist using a redis:// push_url highlights dark jedi born there.

The Redis server is taken from push_url when it is a redis:// URL, otherwise
from cache.redis_url.

Examples:
  sithlist planet --id 18 --name Naboo
  SITHLIST_PUSH_URL=redis://localhost:6379/0 sithlist planet --id 1 --name Tatooine`,
	Args: cobra.NoArgs,
	RunE: runPlanet,
}

func init() {
	planetCmd.Flags().IntVar(&planetID, "id", 0, "Planet id (required)")
	planetCmd.Flags().StringVar(&planetName, "name", "", "Planet name (required)")
	_ = planetCmd.MarkFlagRequired("id")
	_ = planetCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(planetCmd)
}

func runPlanet(cmd *cobra.Command, args []string) error {
	redisURL, err := publishURL()
	if err != nil {
		return err
	}

	client, err := newRosterClient(redisURL, cfg.Namespace)
	if err != nil {
		return err
	}
	defer client.Close()

	loc := roster.Location{ID: planetID, Name: planetName}
	if err := client.PublishLocation(cmd.Context(), loc); err != nil {
		return printer.ErrorWithContext(
			"failed to publish planet",
			err.Error(),
			map[string]string{"Redis": redisURL, "Namespace": cfg.Namespace},
			[]string{"Check that Redis is running and reachable"},
		)
	}

	printer.Success("Obi-Wan is now on %s (%d)\n", loc.Name, loc.ID)
	return nil
}

// publishURL picks the Redis server the push channel listens on.
func publishURL() (string, error) {
	if u, err := url.Parse(cfg.PushURL); err == nil && (u.Scheme == "redis" || u.Scheme == "rediss") {
		return cfg.PushURL, nil
	}
	if cfg.CacheEnabled() {
		return cfg.Cache.RedisURL, nil
	}
	return "", printer.Error(
		"no Redis push channel configured",
		fmt.Sprintf("push_url is %s, which is not a Redis channel.", cfg.PushURL),
		[]string{
			"Set push_url to a redis:// URL (SITHLIST_PUSH_URL)",
			"Set cache.redis_url (SITHLIST_REDIS_URL)",
		},
	)
}
