// Package tui renders a live view of an arbitration run. It is fed by the
// event bus and lets the operator end an observation run with q.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/robocof/robocof/internal/event"
)

// eventMsg carries a bus event into the program.
type eventMsg struct {
	event event.Event
}

// tickMsg refreshes the elapsed clock.
type tickMsg time.Time

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
	opts    []tea.ProgramOption
}

// New creates a new observation view bound to bus. cancel stops the run
// being observed.
func New(bus *event.Bus, cancel context.CancelFunc, opts ...tea.ProgramOption) *App {
	return &App{
		model: NewModel(cancel),
		bus:   bus,
		opts:  opts,
	}
}

// Run shows the view until the run is decided or the user leaves after
// cancelling it, and returns the final model.
func (a *App) Run() (Model, error) {
	opts := append([]tea.ProgramOption{tea.WithAltScreen()}, a.opts...)
	a.program = tea.NewProgram(a.model, opts...)

	id := a.bus.SubscribeAll(func(e event.Event) {
		a.program.Send(eventMsg{event: e})
	})
	defer a.bus.Unsubscribe(id)

	final, err := a.program.Run()
	if m, ok := final.(Model); ok {
		return m, err
	}
	return a.model, err
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if m.done {
				return m, tea.Quit
			}
			if !m.cancelled {
				m.cancelled = true
				m.cancel()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case eventMsg:
		m.apply(msg.event)
		if m.done {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		if m.done {
			return m, nil
		}
		return m, tick()
	}
	return m, nil
}
