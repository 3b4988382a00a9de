// Package watch streams the window to a writer as it changes.
package watch

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/robinvenneman/flux-challenge/internal/app"
	"github.com/robinvenneman/flux-challenge/internal/listing"
	"github.com/robinvenneman/flux-challenge/internal/window"
)

// OutputFormat selects how each snapshot is written.
type OutputFormat string

const (
	OutputDefault OutputFormat = "default"
	OutputJSONL   OutputFormat = "jsonl"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputDefault, OutputJSONL:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("invalid output format %q (must be 'default' or 'jsonl')", s)
	}
}

// Source is the part of app.App the watchers read.
type Source interface {
	Snapshot() app.Snapshot
	OnChange(fn func()) (unsubscribe func())
}

// StreamWindow writes the current snapshot, then one snapshot per change
// until ctx is cancelled. Bursts of changes are coalesced: only the latest
// state is written. Returns nil on cancellation.
func StreamWindow(ctx context.Context, src Source, w io.Writer, format OutputFormat) error {
	changed := make(chan struct{}, 1)
	unsubscribe := src.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	var last app.Snapshot
	first := true

	for {
		snap := src.Snapshot()
		if first || snap.Version != last.Version || snap.Location != last.Location {
			if err := Write(w, snap, format); err != nil {
				return err
			}
			last = snap
			first = false
		}

		select {
		case <-ctx.Done():
			return nil
		case <-changed:
		}
	}
}

// PollUntilSettled polls every 200ms until the anchor record is loaded, the
// prefetch queue is empty, no fetch is running and the window did not change
// since the previous poll. Returns the settled snapshot or an error if timeout occurs.
func PollUntilSettled(ctx context.Context, src Source, timeout time.Duration) (app.Snapshot, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)
	var prev uint64
	seen := false

	for {
		select {
		case <-ctx.Done():
			return app.Snapshot{}, ctx.Err()

		case <-timeoutCh:
			return app.Snapshot{}, fmt.Errorf("timeout waiting for the list to load after %v", timeout)

		case <-ticker.C:
			snap := src.Snapshot()
			if snap.Slots[window.AnchorSlot].IsEmpty() || snap.Pending > 0 || snap.InFlight > 0 {
				seen = false
				continue
			}
			if seen && snap.Version == prev {
				return snap, nil
			}
			prev = snap.Version
			seen = true
		}
	}
}

// Write renders one snapshot in the given format.
func Write(w io.Writer, snap app.Snapshot, format OutputFormat) error {
	if format == OutputJSONL {
		return listing.FormatJSONL(w, snap)
	}
	listing.FormatTable(w, snap)
	_, err := fmt.Fprintln(w)
	return err
}
