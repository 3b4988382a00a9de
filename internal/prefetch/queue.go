// Package prefetch walks the master/apprentice chain outward from the anchor
// record, one hop at a time, filling window slots as records arrive.
//
// Requests are served strictly in FIFO order. A request whose source slot is
// still empty stays at the head of the queue and blocks everything behind it
// until the source record has been loaded.
package prefetch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robinvenneman/flux-challenge/internal/eventbus"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/internal/window"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
)

// DefaultRetryDelay is how long a blocked head request waits before the
// queue re-checks its source slot without any other trigger.
const DefaultRetryDelay = 1000 * time.Millisecond

// Outcome is the result of a single Drain step.
type Outcome int

const (
	// Idle means the queue was empty
	Idle Outcome = iota

	// Blocked means the head request's source slot is still empty
	Blocked

	// Dropped means the source record is a chain endpoint for the relation,
	// or the window shifted after the request was queued
	Dropped

	// Issued means a fetch was started for the head request
	Issued
)

func (o Outcome) String() string {
	switch o {
	case Idle:
		return "idle"
	case Blocked:
		return "blocked"
	case Dropped:
		return "dropped"
	case Issued:
		return "issued"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request asks for the record linked from Source by Relation to be loaded
// into Target. Shift is the window's shift count at enqueue time.
type Request struct {
	ID       string
	Relation roster.Relation
	Source   int
	Target   int
	Shift    uint64
}

// Window is the read side of the window store.
type Window interface {
	Slot(i int) roster.Record
	Shifts() uint64
	Subscribe(fn func()) (unsubscribe func())
}

// Dispatcher publishes events to the stores.
type Dispatcher interface {
	Dispatch(e eventbus.Event) error
}

// Fetcher loads a record by id.
type Fetcher interface {
	Fetch(ctx context.Context, id int) (roster.Record, error)
}

// Queue is the serial FIFO of pending prefetch requests.
type Queue struct {
	window     Window
	fetcher    Fetcher
	bus        Dispatcher
	logger     *zap.Logger
	metrics    *metrics.Metrics
	retryDelay time.Duration

	mu      sync.Mutex
	pending []Request

	wake     chan struct{}
	inflight sync.WaitGroup
	running  atomic.Int64
}

// Option configures a Queue.
type Option func(*Queue)

// WithRetryDelay overrides DefaultRetryDelay.
func WithRetryDelay(d time.Duration) Option {
	return func(q *Queue) { q.retryDelay = d }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(q *Queue) { q.logger = l.Named("prefetch") }
}

// WithMetrics records drain outcomes and queue depth.
func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) { q.metrics = m }
}

// NewQueue creates an empty queue reading from w, loading through f and
// publishing results on bus.
func NewQueue(w Window, f Fetcher, bus Dispatcher, opts ...Option) *Queue {
	q := &Queue{
		window:     w,
		fetcher:    f,
		bus:        bus,
		logger:     zap.NewNop(),
		retryDelay: DefaultRetryDelay,
		wake:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue appends a request to the tail of the queue.
func (q *Queue) Enqueue(rel roster.Relation, source, target int) (Request, error) {
	if err := rel.Validate(); err != nil {
		return Request{}, err
	}
	if !window.ValidSlot(source) || !window.ValidSlot(target) {
		return Request{}, fmt.Errorf("prefetch slots out of range: source=%d target=%d (window size %d)", source, target, window.Size)
	}

	req := Request{
		ID:       uuid.New().String(),
		Relation: rel,
		Source:   source,
		Target:   target,
		Shift:    q.window.Shifts(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, req)
	depth := len(q.pending)
	q.mu.Unlock()

	q.metrics.SetQueueDepth(depth)
	q.logger.Debug("request queued",
		zap.String("request_id", req.ID),
		zap.String("relation", string(rel)),
		zap.Int("source", source),
		zap.Int("target", target),
		zap.Int("depth", depth))

	q.Notify()
	return req, nil
}

// Len returns the number of pending requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Pending returns a copy of the pending requests, head first.
func (q *Queue) Pending() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Request, len(q.pending))
	copy(out, q.pending)
	return out
}

// InFlight returns the number of issued fetches that have not finished.
func (q *Queue) InFlight() int {
	return int(q.running.Load())
}

// Notify asks Run to drain. It never blocks.
func (q *Queue) Notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Drain performs one scheduling step on the head of the queue.
//
// The head is only removed once its source slot holds a record; while the
// source is empty the request stays in place and Blocked is returned.
// An issued fetch runs in its own goroutine and, on success, dispatches
// RecordLoaded for the request's target slot.
func (q *Queue) Drain(ctx context.Context) Outcome {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return Idle
	}

	req := q.pending[0]
	if shifts := q.window.Shifts(); req.Shift != shifts {
		q.pending = q.pending[1:]
		depth := len(q.pending)
		q.mu.Unlock()

		q.metrics.ObservePrefetch(Dropped.String(), depth)
		q.logger.Debug("window shifted, dropping request",
			zap.String("request_id", req.ID),
			zap.Uint64("requested_at", req.Shift),
			zap.Uint64("shifts", shifts))
		return Dropped
	}

	source := q.window.Slot(req.Source)
	if source.IsEmpty() {
		depth := len(q.pending)
		q.mu.Unlock()

		q.metrics.ObservePrefetch(Blocked.String(), depth)
		q.logger.Debug("source slot not loaded yet",
			zap.String("request_id", req.ID),
			zap.Int("source", req.Source),
			zap.Int("depth", depth))
		return Blocked
	}

	q.pending = q.pending[1:]
	depth := len(q.pending)
	q.mu.Unlock()

	link := req.Relation.Link(source)
	if link == nil {
		q.metrics.ObservePrefetch(Dropped.String(), depth)
		q.logger.Debug("chain endpoint reached",
			zap.String("request_id", req.ID),
			zap.String("relation", string(req.Relation)),
			zap.Int("record_id", source.ID))
		return Dropped
	}

	q.metrics.ObservePrefetch(Issued.String(), depth)
	q.logger.Debug("fetching",
		zap.String("request_id", req.ID),
		zap.String("relation", string(req.Relation)),
		zap.Int("record_id", link.ID),
		zap.Int("target", req.Target))

	q.inflight.Add(1)
	q.running.Add(1)
	go q.fetch(ctx, req, link.ID)

	return Issued
}

func (q *Queue) fetch(ctx context.Context, req Request, id int) {
	defer q.inflight.Done()
	defer q.running.Add(-1)

	rec, err := q.fetcher.Fetch(ctx, id)
	if ctx.Err() != nil {
		// Torn down while fetching: the stores are no longer listening
		return
	}
	if err != nil {
		q.logger.Warn("fetch failed, slot stays empty",
			zap.String("request_id", req.ID),
			zap.Int("record_id", id),
			zap.Int("target", req.Target),
			zap.Error(err))
		q.Notify()
		return
	}

	if err := q.bus.Dispatch(eventbus.RecordLoaded{Record: rec, Slot: req.Target, Shift: req.Shift}); err != nil {
		q.logger.Warn("dropping loaded record",
			zap.String("request_id", req.ID),
			zap.Int("record_id", id),
			zap.Error(err))
		return
	}

	q.logger.Info("record loaded",
		zap.String("request_id", req.ID),
		zap.Int("record_id", rec.ID),
		zap.String("name", rec.Name),
		zap.Int("slot", req.Target))
}

// Run drains the queue whenever the window changes, a request is enqueued
// or the retry delay of a blocked head has elapsed. It returns nil when ctx
// is cancelled, after in-flight fetches have returned.
func (q *Queue) Run(ctx context.Context) error {
	unsubscribe := q.window.Subscribe(q.Notify)
	defer unsubscribe()
	defer q.inflight.Wait()

	q.logger.Info("prefetch queue started", zap.Duration("retry_delay", q.retryDelay))

	var retry <-chan time.Time
	q.Notify()

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("prefetch queue stopping", zap.Int("pending", q.Len()))
			return nil
		case <-q.wake:
		case <-retry:
			retry = nil
		}

	step:
		for {
			switch q.Drain(ctx) {
			case Dropped:
				continue
			case Blocked:
				if retry == nil {
					retry = time.After(q.retryDelay)
				}
				break step
			default:
				break step
			}
		}
	}
}
