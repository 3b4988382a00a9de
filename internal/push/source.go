// Package push delivers "current location changed" messages from a push
// channel. Two transports are supported: a websocket (the records API's
// planet monitor) and a Redis Pub/Sub channel.
package push

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// Handler receives every location parsed from the channel.
type Handler func(roster.Location)

// Source is a push channel. Run blocks, delivering locations to h until ctx
// is cancelled, and returns nil on cancellation.
type Source interface {
	Run(ctx context.Context, h Handler) error
	Connected() bool
}

// Options configure the sources built by Open.
type Options struct {
	Namespace  string // Redis channel namespace
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
	NewBackOff func() backoff.BackOff // reconnect policy, DefaultBackOff when nil
}

// DefaultBackOff retries forever with exponential delays between 500ms and 30s.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// Open returns the source matching the URL scheme: ws/wss for a websocket,
// redis/rediss for Redis Pub/Sub.
func Open(rawURL string, opts Options) (Source, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid push URL %q: %w", rawURL, err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}

	switch u.Scheme {
	case "ws", "wss":
		return NewWebSocket(rawURL, opts), nil

	case "redis", "rediss":
		redisOpts, err := redis.ParseURL(rawURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		ns := opts.Namespace
		if ns == "" {
			ns = roster.DefaultNamespace
		}
		client, err := roster.NewClient(redisOpts, ns)
		if err != nil {
			return nil, fmt.Errorf("failed to create roster client: %w", err)
		}
		return NewRedis(client, opts), nil

	default:
		return nil, fmt.Errorf("unsupported push URL scheme %q (use ws, wss, redis or rediss)", u.Scheme)
	}
}

// reconnect runs connect until ctx is cancelled, sleeping according to the
// backoff policy between attempts. The policy is reset after every session
// that delivered at least one message.
func reconnect(ctx context.Context, logger *zap.Logger, newBackOff func() backoff.BackOff, connect func(context.Context) (delivered bool, err error)) error {
	b := backoff.WithContext(newBackOff(), ctx)

	for {
		delivered, err := connect(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if delivered {
			b.Reset()
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return fmt.Errorf("push channel gave up reconnecting: %w", err)
		}

		logger.Warn("push channel disconnected, reconnecting",
			zap.Duration("retry_in", wait),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}
