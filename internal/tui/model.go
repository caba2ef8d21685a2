package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"

	"github.com/robocof/robocof/internal/event"
	"github.com/robocof/robocof/internal/tui/styles"
)

// detectorRow is the live state of one detector.
type detectorRow struct {
	name        string
	observation string
	samples     int
	verdict     string // "" while sampling
}

// Model holds the observation view state.
type Model struct {
	runID   string
	debug   bool
	timeout time.Duration
	started time.Time

	rows  []detectorRow
	index map[string]int

	decision string
	winner   string
	errMsg   string
	elapsed  time.Duration

	spinner   spinner.Model
	cancel    context.CancelFunc
	cancelled bool
	done      bool
	width     int
	now       func() time.Time
}

// NewModel creates a Model. cancel is invoked when the user quits before
// the run has been decided.
func NewModel(cancel context.CancelFunc) Model {
	if cancel == nil {
		cancel = func() {}
	}
	return Model{
		index:   make(map[string]int),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Primary)),
		cancel:  cancel,
		now:     time.Now,
	}
}

// Done reports whether the run has been decided.
func (m Model) Done() bool { return m.done }

// Decision returns the decision name, or "" before the run is decided.
func (m Model) Decision() string { return m.decision }

// Err returns the error reported with the decision, if any.
func (m Model) Err() string { return m.errMsg }

// row returns the index of the named detector row, adding it if needed.
func (m *Model) row(name string) int {
	if i, ok := m.index[name]; ok {
		return i
	}
	m.rows = append(m.rows, detectorRow{name: name})
	m.index[name] = len(m.rows) - 1
	return len(m.rows) - 1
}

// apply folds one bus event into the model.
func (m *Model) apply(e event.Event) {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		m.runID = ev.RunID
		m.debug = ev.Debug
		m.timeout = ev.Timeout
		m.started = ev.Timestamp()
		for _, name := range ev.Detectors {
			m.row(name)
		}

	case event.DetectorSampledEvent:
		if m.runID != "" && ev.RunID != m.runID {
			return
		}
		i := m.row(ev.Detector)
		m.rows[i].observation = ev.Observation
		m.rows[i].samples++

	case event.DetectorCompletedEvent:
		if m.runID != "" && ev.RunID != m.runID {
			return
		}
		i := m.row(ev.Detector)
		m.rows[i].verdict = ev.Verdict
		if m.rows[i].observation == "" {
			m.rows[i].observation = ev.Outcome
		}

	case event.RunDecidedEvent:
		if m.runID != "" && ev.RunID != m.runID {
			return
		}
		m.decision = ev.Decision
		m.winner = ev.Winner
		m.elapsed = ev.Elapsed
		m.errMsg = ev.Error
		m.done = true
	}
}
