// Package health serves /healthz and /metrics for a running sithlist.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger checks a backing store. roster.Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PushStatus reports push channel connectivity. Every push.Source satisfies it.
type PushStatus interface {
	Connected() bool
}

// Server provides HTTP health check and metrics endpoints.
type Server struct {
	addr     string
	redis    Pinger // nil when the record cache is disabled
	push     PushStatus
	pending  func() int
	gatherer prometheus.Gatherer
	logger   *zap.Logger

	server   *http.Server
	listener net.Listener
}

// Config wires the server to the components it reports on.
type Config struct {
	Addr     string
	Redis    Pinger
	Push     PushStatus
	Pending  func() int
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new health check server.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		addr:     cfg.Addr,
		redis:    cfg.Redis,
		push:     cfg.Push,
		pending:  cfg.Pending,
		gatherer: cfg.Gatherer,
		logger:   cfg.Logger.Named("health"),
	}
}

// Handler returns the mux serving /healthz and /metrics.
func (h *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Start binds the listener and serves in the background.
func (h *Server) Start() error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}
	h.listener = ln

	h.server = &http.Server{
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.Error("health server error", zap.Error(err))
		}
	}()

	h.logger.Info("health server listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address, or "" before Start.
func (h *Server) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Shutdown gracefully shuts down the health check server.
func (h *Server) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// Response is the JSON body of /healthz.
type Response struct {
	Status  string `json:"status"`
	Push    string `json:"push"`
	Redis   string `json:"redis,omitempty"`
	Pending int    `json:"pending"`
	Error   string `json:"error,omitempty"`
}

// healthCheckHandler handles GET /healthz requests.
// Returns 503 when the configured Redis cache is unreachable. A disconnected
// push channel reports "degraded" with 200 since the source reconnects on
// its own.
func (h *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := Response{Status: "healthy", Push: "disconnected"}
	code := http.StatusOK

	if h.push != nil && h.push.Connected() {
		response.Push = "connected"
	} else {
		response.Status = "degraded"
	}

	if h.pending != nil {
		response.Pending = h.pending()
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := h.redis.Ping(ctx); err != nil {
			response.Status = "unhealthy"
			response.Redis = "disconnected"
			response.Error = err.Error()
			code = http.StatusServiceUnavailable
		} else {
			response.Redis = "connected"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}
