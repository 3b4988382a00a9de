// Package printer renders CLI status lines and user-facing errors.
package printer

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/robinvenneman/flux-challenge/internal/fetcher"
)

// Output destinations. Tests swap them for buffers.
var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Success prints a success message in green with a checkmark prefix
func Success(format string, a ...any) {
	green.Fprintf(Stdout, "✓ %s", strings.TrimPrefix(fmt.Sprintf(format, a...), "✓ "))
}

// Info prints an informational message in the default color
func Info(format string, a ...any) {
	fmt.Fprintf(Stdout, format, a...)
}

// Warning prints a warning to stderr in yellow
func Warning(format string, a ...any) {
	yellow.Fprintf(Stderr, "⚠️  %s", strings.TrimPrefix(fmt.Sprintf(format, a...), "⚠️  "))
}

// Step prints a step message with emphasis (used in multi-step operations)
func Step(format string, a ...any) {
	cyan.Fprintf(Stdout, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a titled error with an explanation and suggestions to stderr
// and returns an error carrying only the title, for cobra with SilenceErrors.
func Error(title string, explanation string, suggestions []string) error {
	return ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value details, printed in key order.
func ErrorWithContext(title string, explanation string, details map[string]string, suggestions []string) error {
	red.Fprintf(Stderr, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(Stderr, "%s\n", explanation)
	}

	if len(details) > 0 {
		keys := make([]string, 0, len(details))
		for k := range details {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(Stderr)
		for _, k := range keys {
			fmt.Fprintf(Stderr, "  %s: %s\n", k, details[k])
		}
	}

	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(Stderr, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(Stderr, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(Stderr, "  %d. %s\n", i+1, s)
		}
	}

	return errors.New(title)
}

// FetchError explains a failed record fetch against apiURL.
func FetchError(id int, apiURL string, err error) error {
	details := map[string]string{
		"Record":  strconv.Itoa(id),
		"API URL": apiURL,
		"Error":   err.Error(),
	}

	if fetcher.IsNotFound(err) {
		return ErrorWithContext(
			fmt.Sprintf("record %d not found", id),
			"The records API has no dark jedi with that id.",
			details,
			[]string{"Check the id, or start from the default record 3616"},
		)
	}

	var netErr net.Error
	var opErr *net.OpError
	if errors.As(err, &opErr) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ErrorWithContext(
			"records API unreachable",
			"The records API did not answer.",
			details,
			[]string{
				"Start the challenge server (it listens on :3000 by default)",
				"Point sithlist at it with api_url in sithlist.yml or SITHLIST_API_URL",
			},
		)
	}

	return ErrorWithContext("failed to fetch record", "", details, nil)
}

// ConfigError explains a configuration that could not be loaded.
func ConfigError(path string, err error) error {
	return ErrorWithContext(
		"invalid configuration",
		err.Error(),
		map[string]string{"Config": path},
		[]string{"Fix sithlist.yml or the SITHLIST_* environment variables and retry"},
	)
}
