package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/google/uuid"
	"github.com/v0xg/autoform/internal/browser"
	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/sheet"
)

// eventBuffer bounds how far the automation task can run ahead of the reader
const eventBuffer = 256

// LaunchFunc opens the browser session for a run
type LaunchFunc func(ctx context.Context, opts browser.Options) (browser.Session, error)

// RodLauncher launches a real browser
func RodLauncher(ctx context.Context, opts browser.Options) (browser.Session, error) {
	s, err := browser.Launch(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Runner starts batch runs
type Runner struct {
	Launch      LaunchFunc
	Screenshots ScreenshotSaver // optional
	Logger      *slog.Logger    // optional
}

// Run is a batch in progress. Events must be drained until the channel is
// closed; the last event is always EventFinished.
type Run struct {
	events chan Event
	stop   *Stopper
	done   chan struct{}
	report Report
}

// Events streams log, status, progress and the final report
func (r *Run) Events() <-chan Event {
	return r.events
}

// RequestStop asks the run to end as soon as possible. Safe to call any
// number of times from any goroutine.
func (r *Run) RequestStop() {
	r.stop.RequestStop()
}

// Wait blocks until the run is over
func (r *Run) Wait() Report {
	<-r.done
	return r.report
}

// Start runs cfg on a new goroutine. Cancelling ctx is a stop request.
func (rn *Runner) Start(ctx context.Context, cfg config.Config) *Run {
	run := &Run{
		events: make(chan Event, eventBuffer),
		stop:   NewStopper(ctx),
		done:   make(chan struct{}),
	}
	go func() {
		defer close(run.done)
		defer close(run.events)
		defer run.stop.release()

		ev := emitter{ch: run.events}
		run.report = rn.execute(run.stop, cfg, ev)
		ev.finished(run.report)
	}()
	return run
}

func (rn *Runner) logger() *slog.Logger {
	if rn.Logger != nil {
		return rn.Logger
	}
	return slog.Default()
}

// Validate rejects inputs before any side effect happens
func Validate(cfg config.Config) error {
	u, err := url.Parse(cfg.FormURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("form address %q is not an http(s) URL", cfg.FormURL)
	}
	if !sheet.HasExtension(cfg.DataPath) {
		return fmt.Errorf("data source %q is not a spreadsheet (%v)", cfg.DataPath, sheet.Extensions)
	}
	return cfg.Validate()
}

func (rn *Runner) execute(stop *Stopper, cfg config.Config, ev emitter) Report {
	log := rn.logger().With("run", uuid.NewString())
	log.Debug("run started", "form", cfg.FormURL, "data", cfg.DataPath)

	if err := Validate(cfg); err != nil {
		ev.log(LevelError, "invalid input: %v", err)
		return Report{Reason: ReasonInvalidInput, Err: err}
	}
	timeouts, err := cfg.Timeouts.Durations()
	if err != nil {
		ev.log(LevelError, "invalid input: %v", err)
		return Report{Reason: ReasonInvalidInput, Err: err}
	}

	ev.status("reading spreadsheet")
	table, err := sheet.Load(cfg.DataPath, sheet.Options{Sheet: cfg.Sheet, Columns: cfg.Columns()})
	if err != nil {
		var missing *sheet.MissingColumnsError
		if errors.As(err, &missing) {
			ev.log(LevelError, "mapped columns not found: %v", missing.Columns)
			return Report{Reason: ReasonMissingColumns, Err: err}
		}
		ev.log(LevelError, "could not read spreadsheet: %v", err)
		return Report{Reason: ReasonDataSourceError, Err: err}
	}
	total := len(table.Records)
	ev.log(LevelInfo, "spreadsheet loaded, %d records", total)

	if stop.Stopped() {
		return Report{Reason: ReasonUserStopped}
	}

	ev.status("starting browser")
	session, err := rn.Launch(stop.Context(), browser.Options{
		Headless:    cfg.Browser.Headless,
		KeepOpen:    cfg.Browser.KeepOpen,
		Width:       cfg.Browser.Width,
		Height:      cfg.Browser.Height,
		UserDataDir: cfg.Browser.UserDataDir,
		Bin:         cfg.Browser.Bin,
	})
	if err != nil {
		if stop.Stopped() {
			return Report{Reason: ReasonUserStopped}
		}
		ev.log(LevelError, "could not start browser: %v", err)
		return Report{Reason: ReasonSessionError, Err: err}
	}
	stop.Attach(session)
	defer func() {
		stop.Detach()
		if !cfg.Browser.KeepOpen || stop.Stopped() {
			if err := session.Close(); err != nil {
				log.Debug("browser close", "err", err)
			}
		}
	}()

	m := &Machine{
		session:  session,
		stop:     stop,
		formURL:  cfg.FormURL,
		fields:   cfg.Fields,
		page:     cfg.Page,
		timeouts: timeouts,
		events:   ev,
		shots:    rn.Screenshots,
		logger:   log,
	}
	m.filler = &Filler{session: session, stop: stop, timeouts: timeouts, events: ev}

	return rn.loop(stop, m, table.Records, ev)
}

func (rn *Runner) loop(stop *Stopper, m *Machine, records []sheet.Record, ev emitter) (report Report) {
	total := len(records)
	stopped := func() Report {
		st := m.State()
		ev.log(LevelWarning, "stopped by user")
		return Report{Successes: st.Successes, Failures: st.Failures, Reason: ReasonUserStopped}
	}

	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if stop.Stopped() {
			report = stopped()
			return
		}
		st := m.State()
		err := fmt.Errorf("%T: %v", v, v)
		ev.log(LevelError, "unexpected error in batch loop: %v", err)
		m.logger.Error("batch loop panic", "type", fmt.Sprintf("%T", v), "value", v)
		report = Report{Successes: st.Successes, Failures: st.Failures, Reason: ReasonUnexpectedError, Err: err}
	}()

	ctx := stop.Context()
	for i, rec := range records {
		if stop.Stopped() {
			return stopped()
		}
		ev.log(LevelInfo, "processing record %d/%d", i+1, total)
		ev.progress(i+1, total)
		ev.status("record %d of %d", i+1, total)

		res := m.Process(ctx, i, total, rec)
		m.logger.Debug("record done", "record", i+1, "result", res.String())
		if res == RecordStopped {
			return stopped()
		}
	}

	st := m.State()
	return Report{Successes: st.Successes, Failures: st.Failures, Reason: ReasonCompleted}
}
