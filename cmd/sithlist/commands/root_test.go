package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the real root command with fresh flag values and returns
// stdout (command output plus printer output) and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	configPath, verbose, healthAddr, logFile = config.DefaultPath, false, "", ""
	getUseCache, forceInit = false, false
	planetID, planetName = 0, ""
	watchOutputFormat, watchOnce, watchTimeout = "default", false, 30*time.Second
	for _, c := range []*cobra.Command{rootCmd, getCmd, planetCmd, watchCmd, initCmd} {
		c.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
	}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) { f.Changed = false })

	var stdout, stderr bytes.Buffer
	prevOut, prevErr, prevNoColor := printer.Stdout, printer.Stderr, color.NoColor
	printer.Stdout, printer.Stderr, color.NoColor = &stdout, &stderr, true
	defer func() { printer.Stdout, printer.Stderr, color.NoColor = prevOut, prevErr, prevNoColor }()

	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "sithlist.log")))
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sithlist.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// recordsAPI serves a three-record chain 1 <- 2 <- 3 under /dark-jedis/.
func recordsAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/dark-jedis/%d", &id); err != nil || id < 1 || id > 3 {
			http.NotFound(w, r)
			return
		}
		link := func(n int) string {
			if n < 1 || n > 3 {
				return `{"id":null,"url":null}`
			}
			return fmt.Sprintf(`{"id":%d,"url":"http://%s/dark-jedis/%d"}`, n, r.Host, n)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%d,"name":"Sith %d","homeworld":{"id":%d,"name":"Planet %d"},"master":%s,"apprentice":%s}`,
			id, id, 10+id, 10+id, link(id-1), link(id+1))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := execute(t)
	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:")
	assert.Contains(t, stdout, "sithlist")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := execute(t, "--unknown-flag", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "initial_id: -5\n")

	_, stderr, err := execute(t, "get", "1", "--config", path)
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
	assert.Contains(t, stderr, "initial_id must be > 0")
}

func TestRootCommand_ExplicitConfigMustExist(t *testing.T) {
	_, _, err := execute(t, "get", "1", "--config", filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Equal(t, "invalid configuration", err.Error())
}

func TestGet(t *testing.T) {
	api := recordsAPI(t)
	path := writeConfig(t, fmt.Sprintf("api_url: %s/dark-jedis/\n", api.URL))

	stdout, _, err := execute(t, "get", "2", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"name": "Sith 2"`)
	assert.Contains(t, stdout, `"apprentice": {`)
}

func TestGet_NotFound(t *testing.T) {
	api := recordsAPI(t)
	path := writeConfig(t, fmt.Sprintf("api_url: %s/dark-jedis/\n", api.URL))

	_, stderr, err := execute(t, "get", "99", "--config", path)
	require.Error(t, err)
	assert.Equal(t, "record 99 not found", err.Error())
	assert.Contains(t, stderr, "Record: 99")
}

func TestGet_InvalidID(t *testing.T) {
	_, _, err := execute(t, "get", "darth", "--config", writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Equal(t, "invalid record id", err.Error())
}

func TestGet_CacheRequiresRedis(t *testing.T) {
	_, _, err := execute(t, "get", "1", "--cache", "--config", writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Equal(t, "record cache not configured", err.Error())
}

func TestGet_CacheFillsRedisAndPurge(t *testing.T) {
	api := recordsAPI(t)
	mr := miniredis.RunT(t)
	path := writeConfig(t, fmt.Sprintf("api_url: %s/dark-jedis/\nnamespace: cli\ncache:\n  redis_url: redis://%s/0\n", api.URL, mr.Addr()))

	_, _, err := execute(t, "get", "3", "--cache", "--config", path)
	require.NoError(t, err)
	assert.True(t, mr.Exists(roster.RecordKey("cli", 3)))

	stdout, _, err := execute(t, "cache", "purge", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Purged 1 cached records from namespace 'cli'")
	assert.False(t, mr.Exists(roster.RecordKey("cli", 3)))
}

func TestPlanet_PublishesLocation(t *testing.T) {
	mr := miniredis.RunT(t)
	path := writeConfig(t, fmt.Sprintf("push_url: redis://%s/0\nnamespace: cli\n", mr.Addr()))

	client, err := roster.NewClient(&redis.Options{Addr: mr.Addr()}, "cli")
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	sub, err := client.SubscribeLocationEvents(ctx)
	require.NoError(t, err)
	defer sub.Close()

	stdout, _, err := execute(t, "planet", "--id", "18", "--name", "Naboo", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Obi-Wan is now on Naboo (18)")

	select {
	case loc := <-sub.Events():
		assert.Equal(t, roster.Location{ID: 18, Name: "Naboo"}, loc)
	case <-ctx.Done():
		t.Fatal("location was not published")
	}
}

func TestPlanet_RequiresRedis(t *testing.T) {
	_, stderr, err := execute(t, "planet", "--id", "1", "--name", "Tatooine", "--config", writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Equal(t, "no Redis push channel configured", err.Error())
	assert.Contains(t, stderr, "SITHLIST_PUSH_URL")
}

func TestWatch_InvalidOutput(t *testing.T) {
	_, _, err := execute(t, "watch", "--output", "yaml", "--config", writeConfig(t, "{}\n"))
	require.Error(t, err)
	assert.Equal(t, "invalid output format", err.Error())
}

func TestWatch_Once(t *testing.T) {
	api := recordsAPI(t)
	mr := miniredis.RunT(t)
	path := writeConfig(t, fmt.Sprintf("api_url: %s/dark-jedis/\npush_url: redis://%s/0\ninitial_id: 2\nretry_delay: 20ms\n", api.URL, mr.Addr()))

	stdout, _, err := execute(t, "watch", "--once", "--timeout", "5s", "--output", "jsonl", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Contains(t, stdout, `"name":"Sith 1"`)
	assert.Contains(t, stdout, `"name":"Sith 2"`)
	assert.Contains(t, stdout, `"name":"Sith 3"`)
}

func TestWatch_UnknownInitialRecord(t *testing.T) {
	api := recordsAPI(t)
	mr := miniredis.RunT(t)
	path := writeConfig(t, fmt.Sprintf("api_url: %s/dark-jedis/\npush_url: redis://%s/0\ninitial_id: 42\n", api.URL, mr.Addr()))

	_, _, err := execute(t, "watch", "--once", "--timeout", "5s", "--config", path)
	require.Error(t, err)
	assert.Equal(t, "record 42 not found", err.Error())
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sithlist.yml")

	stdout, _, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Initialized sithlist configuration")

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultInitialID, loaded.InitialID)
}

func TestInit_RefusesToOverwrite(t *testing.T) {
	path := writeConfig(t, "initial_id: 7\n")

	_, _, err := execute(t, "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "initial_id: 7\n", string(content))
}

func TestInit_ForceReplacesInvalidConfig(t *testing.T) {
	path := writeConfig(t, "initial_id: -5\n")

	_, stderr, err := execute(t, "init", "--force", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Removing existing")

	_, err = config.Load(path)
	require.NoError(t, err)
}
