package push

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// errSubscriptionClosed is returned by a session whose event channel closed
// while the context was still live.
var errSubscriptionClosed = errors.New("location subscription closed")

// RedisSource reads locations from sithlist:{ns}:location_events.
// The source owns the client and closes it when Run returns.
type RedisSource struct {
	client     *roster.Client
	logger     *zap.Logger
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
	connected  atomic.Bool
}

// NewRedis creates a source on the namespace of client.
func NewRedis(client *roster.Client, opts Options) *RedisSource {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}
	return &RedisSource{
		client:     client,
		logger:     opts.Logger.Named("push"),
		metrics:    opts.Metrics,
		newBackOff: opts.NewBackOff,
	}
}

// Connected reports whether the subscription is active.
func (s *RedisSource) Connected() bool {
	return s.connected.Load()
}

// Run subscribes and resubscribes until ctx is cancelled.
func (s *RedisSource) Run(ctx context.Context, h Handler) error {
	defer s.client.Close()

	s.logger.Info("push channel starting",
		zap.String("channel", roster.LocationEventsChannel(s.client.Namespace())))

	return reconnect(ctx, s.logger, s.newBackOff, func(ctx context.Context) (bool, error) {
		return s.session(ctx, h)
	})
}

func (s *RedisSource) session(ctx context.Context, h Handler) (bool, error) {
	sub, err := s.client.SubscribeLocationEvents(ctx)
	if err != nil {
		return false, err
	}
	defer sub.Close()

	s.connected.Store(true)
	s.metrics.SetPushConnected(true)
	defer func() {
		s.connected.Store(false)
		s.metrics.SetPushConnected(false)
	}()

	delivered := false
	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return delivered, ctx.Err()

		case loc, ok := <-events:
			if !ok {
				return delivered, errSubscriptionClosed
			}
			s.metrics.ObservePush("ok")
			delivered = true
			h(loc)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.metrics.ObservePush("malformed")
			s.logger.Warn("skipping malformed location", zap.Error(err))
		}
	}
}
