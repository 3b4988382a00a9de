// Package listing renders the window for non-interactive output.
package listing

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/robinvenneman/flux-challenge/internal/app"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
)

// FormatTable writes the window as a table to the provided writer.
// Records born on the current location are marked with "*" in the first column.
// Returns the number of loaded records.
func FormatTable(w io.Writer, snap app.Snapshot) int {
	fmt.Fprintf(w, "Obi-Wan currently on %s\n\n", formatLocation(snap.Location))

	fmt.Fprintf(w, "%-1s %-4s %-6s %-24s %s\n", "", "SLOT", "ID", "NAME", "HOMEWORLD")
	fmt.Fprintf(w, "%-1s %-4s %-6s %-24s %s\n", "", "----", "------", "------------------------", "--------------------")

	loaded := 0
	for i, r := range snap.Slots {
		if r.IsEmpty() {
			fmt.Fprintf(w, "%-1s %-4d %-6s %-24s %s\n", "", i, "-", "-", "-")
			continue
		}
		loaded++

		mark := ""
		if snap.Highlighted(i) {
			mark = "*"
		}
		fmt.Fprintf(w, "%-1s %-4d %-6d %-24s %s\n",
			mark,
			i,
			r.ID,
			formatName(r.Name),
			formatHomeworld(r.Homeworld),
		)
	}

	fmt.Fprintf(w, "\nup: %s  down: %s  pending: %d\n",
		formatEnabled(snap.CanShiftForward),
		formatEnabled(snap.CanShiftBackward),
		snap.Pending)

	return loaded
}

// FormatJSONL writes the snapshot as a single JSON line.
// This format is ideal for streaming and processing with tools like jq.
func FormatJSONL(w io.Writer, snap app.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot to JSON: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
		return fmt.Errorf("failed to write JSONL output: %w", err)
	}
	return nil
}

// FormatSingleJSON writes a single record as pretty-printed JSON.
func FormatSingleJSON(w io.Writer, r roster.Record) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal record to JSON: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}

	fmt.Fprintln(w)
	return nil
}

// formatName truncates long names for table display.
func formatName(name string) string {
	runes := []rune(name)
	if len(runes) > 24 {
		return string(runes[:21]) + "..."
	}
	return name
}

// formatHomeworld returns "-" for records without a homeworld.
func formatHomeworld(h *roster.Homeworld) string {
	if h == nil || h.Name == "" {
		return "-"
	}
	return h.Name
}

func formatLocation(loc roster.Location) string {
	if loc.IsZero() {
		return "an unknown planet"
	}
	return loc.Name
}

func formatEnabled(ok bool) string {
	if ok {
		return "enabled"
	}
	return "disabled"
}
