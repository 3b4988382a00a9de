package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/robinvenneman/flux-challenge/internal/app"
	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/fetcher"
	"github.com/robinvenneman/flux-challenge/internal/health"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/internal/printer"
	"github.com/robinvenneman/flux-challenge/internal/push"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// runtime is everything a long-running command needs: the app, its push
// source, the optional record cache and the optional health server.
type runtime struct {
	app    *app.App
	cache  *roster.Client
	health *health.Server
}

func newRuntime(cfg *config.Config, logger *zap.Logger) (*runtime, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	f, cache, err := newFetcher(cfg, logger, m)
	if err != nil {
		return nil, err
	}

	source, err := push.Open(cfg.PushURL, push.Options{
		Namespace: cfg.Namespace,
		Logger:    logger,
		Metrics:   m,
	})
	if err != nil {
		closeCache(cache)
		return nil, fmt.Errorf("failed to open push channel: %w", err)
	}

	rt := &runtime{
		app:   app.New(cfg, f, source, logger, app.WithMetrics(m)),
		cache: cache,
	}

	if cfg.HealthAddr != "" {
		hc := health.Config{
			Addr:     cfg.HealthAddr,
			Push:     source,
			Pending:  rt.app.Pending,
			Gatherer: reg,
			Logger:   logger,
		}
		if cache != nil {
			hc.Redis = cache
		}
		rt.health = health.NewServer(hc)
	}

	return rt, nil
}

// newFetcher returns the HTTP fetcher, wrapped in the Redis cache when
// cache.redis_url is set. The returned client is nil without a cache.
func newFetcher(cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) (fetcher.Fetcher, *roster.Client, error) {
	httpFetcher, err := fetcher.NewHTTP(cfg.APIURL,
		fetcher.WithHTTPClient(&http.Client{Timeout: cfg.Fetch.Timeout}),
		fetcher.WithRateLimit(cfg.Fetch.RateLimit, cfg.Fetch.Burst),
		fetcher.WithMetrics(m),
	)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.CacheEnabled() {
		return httpFetcher, nil, nil
	}

	client, err := newRosterClient(cfg.Cache.RedisURL, cfg.Namespace)
	if err != nil {
		return nil, nil, err
	}
	return fetcher.NewCached(httpFetcher, client, cfg.Cache.TTL, logger, m), client, nil
}

func newRosterClient(redisURL, namespace string) (*roster.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client, err := roster.NewClient(opts, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	return client, nil
}

func (rt *runtime) start() error {
	if rt.health == nil {
		return nil
	}
	if err := rt.health.Start(); err != nil {
		return printer.Error(
			"health server failed to start",
			err.Error(),
			[]string{"Pick a free address with --health-addr or SITHLIST_HEALTH_ADDR"},
		)
	}
	return nil
}

func (rt *runtime) close() {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = rt.health.Shutdown(ctx)
	}
	closeCache(rt.cache)
}

func closeCache(c *roster.Client) {
	if c != nil {
		_ = c.Close()
	}
}

// appError renders an error returned by App.Run.
func appError(err error) error {
	var se *fetcher.StatusError
	if errors.As(err, &se) || errors.Is(err, context.DeadlineExceeded) {
		return printer.FetchError(cfg.InitialID, cfg.APIURL, err)
	}
	return printer.Error("sithlist stopped", err.Error(), nil)
}
