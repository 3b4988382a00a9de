// Package tui is the interactive list view: the five window slots, the
// current planet, and the two scroll buttons.
//
// The model runs inside the bubbletea event loop. Store changes reach it as
// ChangedMsg values forwarded by Run; the model never reads stores from
// other goroutines.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/robinvenneman/flux-challenge/internal/app"
	"github.com/robinvenneman/flux-challenge/pkg/roster"
)

// Commands is the part of app.App the view drives.
type Commands interface {
	Snapshot() app.Snapshot
	ShiftForward() error
	ShiftBackward() error
	OnChange(fn func()) (unsubscribe func())
}

// ChangedMsg tells the model to re-read the snapshot.
type ChangedMsg struct{}

var (
	titleStyle     = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	rowStyle       = lipgloss.NewStyle().Width(40).Height(2).Padding(0, 1).Border(lipgloss.NormalBorder(), false, false, true, false)
	highlightStyle = rowStyle.Foreground(lipgloss.Color("9"))
	emptyStyle     = rowStyle.Faint(true)
	buttonStyle    = lipgloss.NewStyle().Padding(0, 2).Border(lipgloss.RoundedBorder())
	disabledStyle  = buttonStyle.Faint(true)
	statusStyle    = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// Model is the bubbletea model for the list.
type Model struct {
	commands Commands
	snap     app.Snapshot
	status   string
	quitting bool
}

// New creates a model showing the current snapshot of c.
func New(c Commands) Model {
	return Model{commands: c, snap: c.Snapshot()}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ChangedMsg:
		m.snap = m.commands.Snapshot()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "up", "k":
			m.status = shiftStatus(m.commands.ShiftForward())
			m.snap = m.commands.Snapshot()
		case "down", "j":
			m.status = shiftStatus(m.commands.ShiftBackward())
			m.snap = m.commands.Snapshot()
		}
	}
	return m, nil
}

func shiftStatus(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, app.ErrShiftDisabled):
		return "no further records in that direction"
	default:
		return err.Error()
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	planet := "an unknown planet"
	if !m.snap.Location.IsZero() {
		planet = m.snap.Location.Name
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("Obi-Wan currently on %s", planet)))
	b.WriteString("\n")

	for i, r := range m.snap.Slots {
		switch {
		case r.IsEmpty():
			b.WriteString(emptyStyle.Render(" "))
		case m.snap.Highlighted(i):
			b.WriteString(highlightStyle.Render(row(r)))
		default:
			b.WriteString(rowStyle.Render(row(r)))
		}
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		button("▲", m.snap.CanShiftForward),
		button("▼", m.snap.CanShiftBackward),
	))

	help := "↑/k older  ↓/j younger  q quit"
	if m.status != "" {
		help = m.status
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(help))
	b.WriteString("\n")

	return b.String()
}

func row(r roster.Record) string {
	if r.Homeworld == nil || r.Homeworld.Name == "" {
		return r.Name
	}
	return fmt.Sprintf("%s\nHomeworld: %s", r.Name, r.Homeworld.Name)
}

func button(label string, enabled bool) string {
	if enabled {
		return buttonStyle.Render(label)
	}
	return disabledStyle.Render(label)
}

// Run shows the list until the user quits or ctx is cancelled.
func Run(ctx context.Context, c Commands, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(New(c), opts...)

	// Listeners run under the bus lock; never block them on the event loop
	changed := make(chan struct{}, 1)
	unsubscribe := c.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	forwardCtx, stopForward := context.WithCancel(ctx)
	forwarded := make(chan struct{})
	go func() {
		defer close(forwarded)
		for {
			select {
			case <-forwardCtx.Done():
				return
			case <-changed:
				p.Send(ChangedMsg{})
			}
		}
	}()

	_, err := p.Run()
	stopForward()
	<-forwarded

	if err != nil && errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
