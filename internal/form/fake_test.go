package form

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/v0xg/autoform/internal/browser"
	"github.com/v0xg/autoform/internal/config"
)

type screen int

const (
	screenBlank screen = iota
	screenForm
	screenConfirmed
)

// fakeForm is an in-memory form behind the browser.Session interface. Misses
// fail with ErrTimeout at once instead of waiting.
type fakeForm struct {
	page    config.Page
	tags    map[string]string // field locator to tag name
	menu    []string          // dropdown entries
	visible []string          // always-rendered options
	another bool              // offers "submit another response"
	silent  bool              // submit is never acknowledged

	// block, when it returns true, holds Find until the session is closed
	block     func(q browser.Query) bool
	blocked   chan struct{}
	blockOnce sync.Once

	panicOnNavigate bool

	mu          sync.Mutex
	screen      screen
	open        string
	current     map[string]string
	submissions []map[string]string
	via         []string
	navigations int
	screenshots int
	closeCalls  int
	closed      chan struct{}
}

func newFakeForm(page config.Page) *fakeForm {
	return &fakeForm{
		page:    page,
		tags:    map[string]string{"#name": "input", "#unit": "div"},
		menu:    []string{"North", "South"},
		visible: []string{"East"},
		another: true,
		blocked: make(chan struct{}),
		current: map[string]string{},
		closed:  make(chan struct{}),
	}
}

func (f *fakeForm) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

func (f *fakeForm) Navigate(ctx context.Context, url string) error {
	if f.panicOnNavigate {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return fmt.Errorf("navigate: %w", browser.ErrClosed)
	}
	f.navigations++
	f.screen = screenForm
	f.open = ""
	f.current = map[string]string{}
	return nil
}

func (f *fakeForm) Find(ctx context.Context, q browser.Query, timeout time.Duration) (browser.Element, error) {
	if f.block != nil && f.block(q) {
		f.blockOnce.Do(func() { close(f.blocked) })
		select {
		case <-f.closed:
		case <-ctx.Done():
		}
		return nil, fmt.Errorf("%s: %w", q, browser.ErrClosed)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return nil, fmt.Errorf("%s: %w", q, browser.ErrClosed)
	}
	if el := f.resolve(q); el != nil {
		return el, nil
	}
	return nil, fmt.Errorf("%s: %w", q, browser.ErrTimeout)
}

func (f *fakeForm) resolve(q browser.Query) *fakeElement {
	onForm := f.screen == screenForm
	switch {
	case q.CSS != "" && q.CSS == f.page.Container:
		if onForm {
			return &fakeElement{form: f, tag: "form"}
		}
		return nil
	case q.CSS != "":
		tag, ok := f.tags[q.CSS]
		if !ok || !onForm {
			return nil
		}
		loc := q.CSS
		return &fakeElement{
			form:  f,
			tag:   tag,
			click: func() error { f.open = loc; return nil },
			fill:  func(s string) { f.current[loc] = s },
		}
	case q.XPath == buttonXPath(f.page.Submit):
		if !onForm {
			return nil
		}
		return &fakeElement{form: f, tag: "div", click: f.submit}
	case q.XPath == confirmationXPath(f.page.Confirmations):
		if f.screen != screenConfirmed {
			return nil
		}
		return &fakeElement{form: f, tag: "div"}
	case q.XPath == anotherResponseXPath(f.page.Another):
		if f.screen != screenConfirmed || !f.another {
			return nil
		}
		return &fakeElement{form: f, tag: "a", click: func() error {
			f.screen = screenForm
			f.open = ""
			f.current = map[string]string{}
			return nil
		}}
	}

	if !onForm {
		return nil
	}
	if f.open != "" {
		for _, v := range f.menu {
			if q.XPath == menuOptionXPath(v) {
				return f.option(v, "menu")
			}
		}
	}
	for _, v := range f.visible {
		if q.XPath == visibleOptionXPath(v) {
			return f.option(v, "visible")
		}
	}
	return nil
}

func (f *fakeForm) option(value, via string) *fakeElement {
	return &fakeElement{form: f, tag: "span", click: func() error {
		f.current[f.open] = value
		f.via = append(f.via, via)
		f.open = ""
		return nil
	}}
}

func (f *fakeForm) submit() error {
	sub := make(map[string]string, len(f.current))
	for k, v := range f.current {
		sub[k] = v
	}
	f.submissions = append(f.submissions, sub)
	f.current = map[string]string{}
	if f.silent {
		f.screen = screenBlank
	} else {
		f.screen = screenConfirmed
	}
	return nil
}

func (f *fakeForm) Screenshot(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isClosed() {
		return nil, browser.ErrClosed
	}
	f.screenshots++
	return []byte("png"), nil
}

func (f *fakeForm) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closeCalls++
	if !f.isClosed() {
		close(f.closed)
	}
	return nil
}

func (f *fakeForm) stats() (submissions []map[string]string, navigations int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submissions, f.navigations
}

type fakeElement struct {
	form  *fakeForm
	tag   string
	click func() error
	fill  func(string)
}

func (e *fakeElement) Tag(ctx context.Context) (string, error) {
	return e.tag, nil
}

func (e *fakeElement) Click(ctx context.Context) error {
	e.form.mu.Lock()
	defer e.form.mu.Unlock()
	if e.form.isClosed() {
		return fmt.Errorf("click: %w", browser.ErrClosed)
	}
	if e.click == nil {
		return nil
	}
	return e.click()
}

func (e *fakeElement) Fill(ctx context.Context, text string) error {
	e.form.mu.Lock()
	defer e.form.mu.Unlock()
	if e.form.isClosed() {
		return fmt.Errorf("type: %w", browser.ErrClosed)
	}
	if e.fill == nil {
		return fmt.Errorf("type: %w", browser.ErrNotInteractable)
	}
	e.fill(text)
	return nil
}

type fakeShots struct {
	mu      sync.Mutex
	records []int
}

func (s *fakeShots) Save(record int, png []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return fmt.Sprintf("record-%03d-failed.png", record), nil
}

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func testConfig(dataPath string) config.Config {
	cfg := config.Default()
	cfg.FormURL = "https://forms.example.com/f/1"
	cfg.DataPath = dataPath
	cfg.Fields = []config.Field{
		{Locator: "#name", Column: "NAME"},
		{Locator: "#unit", Column: "UNIT"},
	}
	cfg.Timeouts = config.Timeouts{Wait: "1s", Choice: "1s", Next: "1s", Settle: "0s", AfterSubmit: "0s"}
	return cfg
}

// harness wires a Runner to one fakeForm
type harness struct {
	form     *fakeForm
	shots    *fakeShots
	runner   *Runner
	launches int
	opts     browser.Options
}

func newHarness(cfg config.Config) *harness {
	h := &harness{form: newFakeForm(cfg.Page), shots: &fakeShots{}}
	h.runner = &Runner{
		Launch: func(ctx context.Context, opts browser.Options) (browser.Session, error) {
			h.launches++
			h.opts = opts
			return h.form, nil
		},
		Screenshots: h.shots,
	}
	return h
}

// drain reads every event of run and returns them with the final report
func drain(run *Run) ([]Event, Report) {
	var events []Event
	for ev := range run.Events() {
		events = append(events, ev)
	}
	return events, run.Wait()
}

func drainAsync(run *Run) <-chan Report {
	out := make(chan Report, 1)
	go func() {
		_, report := drain(run)
		out <- report
	}()
	return out
}

func waitBlocked(t *testing.T, f *fakeForm) {
	t.Helper()
	select {
	case <-f.blocked:
	case <-time.After(5 * time.Second):
		t.Fatal("automation never reached the blocking wait")
	}
}
