package form

import "fmt"

// Reason is why a run ended
type Reason string

const (
	ReasonCompleted       Reason = "completed"
	ReasonUserStopped     Reason = "user-stopped"
	ReasonInvalidInput    Reason = "invalid-input"
	ReasonMissingColumns  Reason = "missing-columns"
	ReasonDataSourceError Reason = "data-source-error"
	ReasonSessionError    Reason = "session-error"
	ReasonUnexpectedError Reason = "unexpected-error"
)

// Report is the terminal result of a run
type Report struct {
	Successes int
	Failures  int
	Reason    Reason
	Err       error // cause for every reason except completed and user-stopped
}

// EventKind tells which field of an Event is meaningful
type EventKind int

const (
	EventLog EventKind = iota
	EventProgress
	EventStatus
	EventFinished
)

// Level grades log events for display
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

// Event flows from the automation task to the presentation side
type Event struct {
	Kind  EventKind
	Level Level  // EventLog
	Text  string // EventLog, EventStatus

	// EventProgress: Current is the 1-based position of the record just started
	Current int
	Total   int

	Report Report // EventFinished
}

type emitter struct {
	ch chan<- Event
}

func (e emitter) log(level Level, format string, args ...any) {
	e.ch <- Event{Kind: EventLog, Level: level, Text: fmt.Sprintf(format, args...)}
}

func (e emitter) status(format string, args ...any) {
	e.ch <- Event{Kind: EventStatus, Text: fmt.Sprintf(format, args...)}
}

func (e emitter) progress(current, total int) {
	e.ch <- Event{Kind: EventProgress, Current: current, Total: total}
}

func (e emitter) finished(r Report) {
	e.ch <- Event{Kind: EventFinished, Report: r}
}
