package form

import (
	"context"
	"log/slog"

	"github.com/v0xg/autoform/internal/browser"
	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/sheet"
)

// RecordResult is the outcome of one record
type RecordResult int

const (
	RecordSucceeded RecordResult = iota
	RecordFailed
	RecordStopped
)

func (r RecordResult) String() string {
	switch r {
	case RecordSucceeded:
		return "succeeded"
	case RecordFailed:
		return "failed"
	case RecordStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type state int

const (
	stateNeedsFreshForm state = iota
	stateFilling
	stateSubmitting
	stateAwaitingConfirmation
	stateAdvancing
)

// RunState is owned by the Machine and only read from outside
type RunState struct {
	Successes int
	Failures  int
	// FormReady means the browser shows a clean, unfilled form
	FormReady bool
}

// ScreenshotSaver persists the page image of a failed record
type ScreenshotSaver interface {
	Save(record int, png []byte) (string, error)
}

// Machine drives records through the form one at a time
type Machine struct {
	session  browser.Session
	stop     stopFlag
	filler   *Filler
	formURL  string
	fields   []config.Field
	page     config.Page
	timeouts config.Durations
	events   emitter
	shots    ScreenshotSaver
	logger   *slog.Logger

	state RunState
}

// State returns a copy of the run counters
func (m *Machine) State() RunState {
	return m.state
}

// Process submits rec, the index-th of total records (0-based)
func (m *Machine) Process(ctx context.Context, index, total int, rec sheet.Record) RecordResult {
	n := index + 1
	st := stateNeedsFreshForm
	if m.state.FormReady {
		st = stateFilling
	}

	for {
		if m.stop.Stopped() {
			return RecordStopped
		}

		switch st {
		case stateNeedsFreshForm:
			m.events.log(LevelInfo, "  loading form")
			if err := m.session.Navigate(ctx, m.formURL); err != nil {
				return m.failed(ctx, n, "could not load the form", err)
			}
			if _, err := m.session.Find(ctx, browser.Query{CSS: m.page.Container}, m.timeouts.Wait); err != nil {
				return m.failed(ctx, n, "form did not render", err)
			}
			m.state.FormReady = true
			st = stateFilling

		case stateFilling:
			m.state.FormReady = false
			for _, field := range m.fields {
				switch m.filler.Fill(ctx, field, rec.Value(field.Column)) {
				case Stopped:
					return RecordStopped
				case Failed:
					return m.failed(ctx, n, "fill failed, skipping record", nil)
				}
			}
			st = stateSubmitting

		case stateSubmitting:
			m.events.log(LevelInfo, "  submitting")
			btn, err := m.session.Find(ctx, browser.Query{XPath: buttonXPath(m.page.Submit), Clickable: true}, m.timeouts.Wait)
			if err != nil {
				return m.failed(ctx, n, "submit control not found", err)
			}
			if err := btn.Click(ctx); err != nil {
				return m.failed(ctx, n, "submit failed", err)
			}
			st = stateAwaitingConfirmation

		case stateAwaitingConfirmation:
			if _, err := m.session.Find(ctx, browser.Query{XPath: confirmationXPath(m.page.Confirmations)}, m.timeouts.Wait); err != nil {
				return m.failed(ctx, n, "no submission acknowledgment", err)
			}
			m.state.Successes++
			m.events.log(LevelSuccess, "record %d: submitted", n)
			m.logger.Debug("record submitted", "record", n)
			// Counted already; an interrupted pause is picked up before the next record
			_ = pause(ctx, m.timeouts.AfterSubmit)
			st = stateAdvancing

		case stateAdvancing:
			if n < total {
				m.startAnother(ctx)
			} else {
				m.events.log(LevelInfo, "  end of records")
			}
			return RecordSucceeded
		}
	}
}

// startAnother follows the "submit another response" affordance and marks the
// form ready only once its container has rendered again
func (m *Machine) startAnother(ctx context.Context) {
	if m.page.Another == "" {
		return
	}
	m.events.log(LevelInfo, "  preparing next response")
	link, err := m.session.Find(ctx, browser.Query{XPath: anotherResponseXPath(m.page.Another), Clickable: true}, m.timeouts.Next)
	if err == nil {
		err = link.Click(ctx)
	}
	if err == nil {
		_, err = m.session.Find(ctx, browser.Query{CSS: m.page.Container}, m.timeouts.Next)
	}
	if err != nil {
		if !m.stop.Stopped() {
			m.events.log(LevelWarning, "  could not open a new response, the form will be reloaded: %v", err)
		}
		return
	}
	m.state.FormReady = true
}

// failed records a record-level failure, or a stop if one was requested.
// err is nil when the cause was already logged.
func (m *Machine) failed(ctx context.Context, n int, msg string, err error) RecordResult {
	m.state.FormReady = false
	if m.stop.Stopped() {
		return RecordStopped
	}
	m.state.Failures++
	if err != nil {
		m.events.log(LevelError, "record %d: %s: %v", n, msg, err)
	} else {
		m.events.log(LevelError, "record %d: %s", n, msg)
	}
	m.logger.Debug("record failed", "record", n, "reason", msg, "err", err)
	m.saveScreenshot(ctx, n)
	return RecordFailed
}

func (m *Machine) saveScreenshot(ctx context.Context, n int) {
	if m.shots == nil {
		return
	}
	data, err := m.session.Screenshot(ctx)
	if err != nil {
		m.events.log(LevelWarning, "  screenshot unavailable: %v", err)
		return
	}
	path, err := m.shots.Save(n, data)
	if err != nil {
		m.events.log(LevelWarning, "  screenshot not saved: %v", err)
		return
	}
	m.events.log(LevelInfo, "  screenshot saved to %s", path)
}
