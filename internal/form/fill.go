package form

import (
	"context"
	"strings"
	"time"

	"github.com/v0xg/autoform/internal/browser"
	"github.com/v0xg/autoform/internal/config"
)

// Outcome is the result of filling one field
type Outcome int

const (
	Filled Outcome = iota
	Skipped
	Failed
	Stopped
)

func (o Outcome) String() string {
	switch o {
	case Filled:
		return "filled"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// controlKind is the interaction variant resolved for a field
type controlKind int

const (
	textEntry controlKind = iota
	choiceControl
)

func kindOf(tag string) controlKind {
	switch strings.ToLower(tag) {
	case "input", "textarea":
		return textEntry
	default:
		return choiceControl
	}
}

// stopFlag is the read side of the Stopper
type stopFlag interface {
	Stopped() bool
}

// Filler resolves a field locator and sets its value
type Filler struct {
	session  browser.Session
	stop     stopFlag
	timeouts config.Durations
	events   emitter
}

// Fill sets field to value. A blank value is skipped; a stop request at any
// point yields Stopped and never Failed.
func (f *Filler) Fill(ctx context.Context, field config.Field, value string) Outcome {
	if f.stop.Stopped() {
		return Stopped
	}

	value = strings.TrimSpace(value)
	if value == "" {
		f.events.log(LevelInfo, "  empty value for %q, skipping", field.Column)
		return Skipped
	}

	el, err := f.session.Find(ctx, browser.Query{CSS: field.Locator}, f.timeouts.Wait)
	if err != nil {
		return f.fail(field, value, err)
	}
	tag, err := el.Tag(ctx)
	if err != nil {
		return f.fail(field, value, err)
	}

	if kindOf(tag) == textEntry {
		if err := el.Fill(ctx, value); err != nil {
			return f.fail(field, value, err)
		}
		f.events.log(LevelSuccess, "  filled %q", field.Column)
		return Filled
	}

	choice := normalizeSpace(value)
	f.events.log(LevelInfo, "  selecting option %q for %q", choice, field.Column)

	err = f.selectFromMenu(ctx, el, choice)
	if err == nil {
		f.events.log(LevelSuccess, "  selected %q from dropdown", choice)
		return Filled
	}
	if f.stop.Stopped() {
		return Stopped
	}
	if !browser.IsElementError(err) {
		return f.fail(field, value, err)
	}
	f.events.log(LevelWarning, "  no dropdown entry %q, looking for a visible option", choice)

	if err := f.selectVisible(ctx, choice); err != nil {
		return f.fail(field, value, err)
	}
	f.events.log(LevelSuccess, "  selected visible option %q", choice)
	return Filled
}

// selectFromMenu opens the control and picks the listbox entry
func (f *Filler) selectFromMenu(ctx context.Context, el browser.Element, choice string) error {
	if err := el.Click(ctx); err != nil {
		return err
	}
	opt, err := f.session.Find(ctx, browser.Query{XPath: menuOptionXPath(choice), Clickable: true}, f.timeouts.Choice)
	if err != nil {
		return err
	}
	if err := opt.Click(ctx); err != nil {
		return err
	}
	return pause(ctx, f.timeouts.Settle)
}

// selectVisible picks the first always-rendered option labelled choice
func (f *Filler) selectVisible(ctx context.Context, choice string) error {
	opt, err := f.session.Find(ctx, browser.Query{XPath: visibleOptionXPath(choice), Clickable: true}, f.timeouts.Wait)
	if err != nil {
		return err
	}
	if err := opt.Click(ctx); err != nil {
		return err
	}
	return pause(ctx, f.timeouts.Settle)
}

func (f *Filler) fail(field config.Field, value string, err error) Outcome {
	if f.stop.Stopped() {
		return Stopped
	}
	if browser.IsElementError(err) {
		f.events.log(LevelError, "  could not fill %q with %q: %v", field.Column, value, err)
	} else {
		f.events.log(LevelError, "  browser communication failed filling %q with %q: %v", field.Column, value, err)
	}
	return Failed
}

// pause waits d unless ctx ends first
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
