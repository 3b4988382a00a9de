// Package app assembles the event bus, the stores, the prefetch queue and the
// push channel into a running sithlist, and exposes the two user commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/robinvenneman/flux-challenge/internal/config"
	"github.com/robinvenneman/flux-challenge/internal/eventbus"
	"github.com/robinvenneman/flux-challenge/internal/fetcher"
	"github.com/robinvenneman/flux-challenge/internal/location"
	"github.com/robinvenneman/flux-challenge/internal/metrics"
	"github.com/robinvenneman/flux-challenge/internal/prefetch"
	"github.com/robinvenneman/flux-challenge/internal/push"
	"github.com/robinvenneman/flux-challenge/internal/window"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrShiftDisabled is returned when the edge record has no link in the
// requested direction, or has not been loaded yet.
var ErrShiftDisabled = errors.New("shift disabled: no further records in that direction")

// hop is one prefetch request, expressed as source and target slots.
type hop struct{ source, target int }

// Traversal order after seeding or a shift. Each pair walks outward from a
// loaded slot, so the second hop blocks until the first has landed.
var (
	masterHops     = []hop{{window.AnchorSlot, 1}, {1, 0}}
	apprenticeHops = []hop{{window.AnchorSlot, 3}, {3, 4}}
)

// Snapshot is a consistent-enough view for rendering. Slots and Location
// are read from their stores one after the other. Pending counts queued
// requests, InFlight the fetches already issued for them.
type Snapshot struct {
	Slots            window.Slots    `json:"slots"`
	Location         roster.Location `json:"location"`
	Pending          int             `json:"pending"`
	InFlight         int             `json:"in_flight"`
	CanShiftForward  bool            `json:"can_shift_forward"`
	CanShiftBackward bool            `json:"can_shift_backward"`
	Version          uint64          `json:"version"`
}

// Highlighted reports whether slot i holds a record born on the current location.
func (s Snapshot) Highlighted(i int) bool {
	return s.Slots[i].On(s.Location)
}

// App is a running list. Create with New, then call Run.
type App struct {
	initialID int
	bus       *eventbus.Bus
	window    *window.Store
	location  *location.Store
	queue     *prefetch.Queue
	fetcher   prefetch.Fetcher
	source    push.Source
	logger    *zap.Logger

	seedBackOff func() backoff.BackOff
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	metrics     *metrics.Metrics
	seedBackOff func() backoff.BackOff
}

// WithMetrics records queue and push metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *appOptions) { o.metrics = m }
}

// WithSeedBackOff sets the retry policy for loading the initial record.
func WithSeedBackOff(fn func() backoff.BackOff) Option {
	return func(o *appOptions) { o.seedBackOff = fn }
}

func defaultSeedBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// New wires the stores to a fresh bus. source may be nil, in which case the
// location never changes.
func New(cfg *config.Config, f prefetch.Fetcher, source push.Source, logger *zap.Logger, opts ...Option) *App {
	o := appOptions{seedBackOff: defaultSeedBackOff}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	bus := eventbus.New()
	win := window.NewStore()
	loc := location.NewStore()
	bus.Subscribe(win.Handle)
	bus.Subscribe(loc.Handle)

	queue := prefetch.NewQueue(win, f, bus,
		prefetch.WithRetryDelay(cfg.RetryDelay),
		prefetch.WithLogger(logger),
		prefetch.WithMetrics(o.metrics))

	return &App{
		initialID:   cfg.InitialID,
		bus:         bus,
		window:      win,
		location:    loc,
		queue:       queue,
		fetcher:     f,
		source:      source,
		logger:      logger.Named("app"),
		seedBackOff: o.seedBackOff,
	}
}

// Run loads the initial record and keeps the queue and the push channel
// running until ctx is cancelled. It returns nil on cancellation and the
// first fatal error otherwise. The bus is closed when Run returns.
func (a *App) Run(ctx context.Context) error {
	defer a.bus.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.queue.Run(ctx)
	})

	if a.source != nil {
		g.Go(func() error {
			return a.source.Run(ctx, a.setLocation)
		})
	}

	g.Go(func() error {
		return a.seed(ctx)
	})

	a.logger.Info("sithlist started", zap.Int("initial_id", a.initialID))
	err := g.Wait()
	a.logger.Info("sithlist stopped", zap.Int("pending", a.queue.Len()), zap.Error(err))
	return err
}

// seed loads the initial record into the anchor slot and queues the walk in
// both directions, apprentices first.
func (a *App) seed(ctx context.Context) error {
	if err := a.enqueue(roster.RelationApprentice, apprenticeHops); err != nil {
		return err
	}
	if err := a.enqueue(roster.RelationMaster, masterHops); err != nil {
		return err
	}

	var rec roster.Record
	op := func() error {
		r, err := a.fetcher.Fetch(ctx, a.initialID)
		if err != nil {
			if fetcher.IsNotFound(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		rec = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		a.logger.Warn("initial record not loaded, retrying",
			zap.Int("record_id", a.initialID),
			zap.Duration("retry_in", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(a.seedBackOff(), ctx), notify); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to load initial record %d: %w", a.initialID, err)
	}

	if err := a.bus.Dispatch(eventbus.RecordLoaded{Record: rec, Slot: window.AnchorSlot}); err != nil {
		return fmt.Errorf("failed to publish initial record: %w", err)
	}
	a.logger.Info("initial record loaded", zap.Int("record_id", rec.ID), zap.String("name", rec.Name))
	return nil
}

func (a *App) enqueue(rel roster.Relation, hops []hop) error {
	for _, h := range hops {
		if _, err := a.queue.Enqueue(rel, h.source, h.target); err != nil {
			return fmt.Errorf("failed to enqueue %s %d->%d: %w", rel, h.source, h.target, err)
		}
	}
	return nil
}

func (a *App) setLocation(loc roster.Location) {
	if err := a.bus.Dispatch(eventbus.LocationChanged{Location: loc}); err != nil {
		a.logger.Debug("dropping location", zap.Int("location_id", loc.ID), zap.Error(err))
		return
	}
	a.logger.Debug("location changed", zap.Int("location_id", loc.ID), zap.String("name", loc.Name))
}

// ShiftForward reveals older masters: the window moves two slots towards the
// masters side and the two new slots are fetched.
func (a *App) ShiftForward() error {
	if !a.window.CanShiftForward() {
		return ErrShiftDisabled
	}
	if err := a.bus.Dispatch(eventbus.ShiftForward{}); err != nil {
		return err
	}
	return a.enqueue(roster.RelationMaster, masterHops)
}

// ShiftBackward reveals younger apprentices.
func (a *App) ShiftBackward() error {
	if !a.window.CanShiftBackward() {
		return ErrShiftDisabled
	}
	if err := a.bus.Dispatch(eventbus.ShiftBackward{}); err != nil {
		return err
	}
	return a.enqueue(roster.RelationApprentice, apprenticeHops)
}

// Snapshot reads the current state of both stores.
func (a *App) Snapshot() Snapshot {
	return Snapshot{
		Slots:            a.window.GetAll(),
		Location:         a.location.Get(),
		Pending:          a.queue.Len(),
		InFlight:         a.queue.InFlight(),
		CanShiftForward:  a.window.CanShiftForward(),
		CanShiftBackward: a.window.CanShiftBackward(),
		Version:          a.window.Version(),
	}
}

// Pending returns the number of queued prefetch requests.
func (a *App) Pending() int {
	return a.queue.Len()
}

// OnChange registers fn to run after every window or location change. fn runs
// on the dispatching goroutine and must not block or call back into the App's
// commands. The returned function removes it.
func (a *App) OnChange(fn func()) (unsubscribe func()) {
	unsubWindow := a.window.Subscribe(fn)
	unsubLocation := a.location.Subscribe(fn)
	return func() {
		unsubWindow()
		unsubLocation()
	}
}
