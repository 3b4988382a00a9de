package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// WebSocketSource reads JSON-encoded locations from a websocket.
// Each text message is one Location. The connection is read-only.
type WebSocketSource struct {
	url        string
	dialer     *websocket.Dialer
	logger     *zap.Logger
	metrics    *metrics.Metrics
	newBackOff func() backoff.BackOff
	connected  atomic.Bool
}

// NewWebSocket creates a source for the given ws:// or wss:// address.
func NewWebSocket(url string, opts Options) *WebSocketSource {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewBackOff == nil {
		opts.NewBackOff = DefaultBackOff
	}
	return &WebSocketSource{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger:     opts.Logger.Named("push"),
		metrics:    opts.Metrics,
		newBackOff: opts.NewBackOff,
	}
}

// Connected reports whether a websocket session is currently open.
func (s *WebSocketSource) Connected() bool {
	return s.connected.Load()
}

// Run connects and reconnects until ctx is cancelled.
func (s *WebSocketSource) Run(ctx context.Context, h Handler) error {
	s.logger.Info("push channel starting", zap.String("url", s.url))
	return reconnect(ctx, s.logger, s.newBackOff, func(ctx context.Context) (bool, error) {
		return s.session(ctx, h)
	})
}

// session runs one connection until it fails or ctx is cancelled.
func (s *WebSocketSource) session(ctx context.Context, h Handler) (bool, error) {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to dial %s: %w", s.url, err)
	}

	s.connected.Store(true)
	s.metrics.SetPushConnected(true)
	s.logger.Info("push channel connected", zap.String("url", s.url))

	// Unblock ReadMessage when ctx is cancelled
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		close(done)
		wg.Wait()
		conn.Close()
		s.connected.Store(false)
		s.metrics.SetPushConnected(false)
	}()

	delivered := false
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return delivered, fmt.Errorf("push channel read failed: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		loc, err := parseLocation(data)
		if err != nil {
			s.metrics.ObservePush("malformed")
			s.logger.Warn("skipping malformed location", zap.ByteString("payload", data), zap.Error(err))
			continue
		}

		s.metrics.ObservePush("ok")
		delivered = true
		h(loc)
	}
}

func parseLocation(data []byte) (roster.Location, error) {
	var loc roster.Location
	if err := json.Unmarshal(data, &loc); err != nil {
		return roster.Location{}, fmt.Errorf("failed to unmarshal location: %w", err)
	}
	return loc, nil
}
