package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

//go:embed defaults.json5
var defaultsFile []byte

// Field maps one form control to the spreadsheet column supplying its value
type Field struct {
	Locator string `json:"locator"`
	Column  string `json:"column"`
}

// Page holds the visible texts and selectors that identify form states
type Page struct {
	Container     string   `json:"container"`     // CSS selector present once the form has rendered
	Submit        string   `json:"submit"`        // label of the submission control
	Confirmations []string `json:"confirmations"` // acknowledgments shown after a successful submit
	Another       string   `json:"another"`       // label of the "submit another response" affordance
}

// Timeouts are duration strings such as "15s" or "300ms"
type Timeouts struct {
	Wait        string `json:"wait"`
	Choice      string `json:"choice"`
	Next        string `json:"next"`
	Settle      string `json:"settle"`
	AfterSubmit string `json:"afterSubmit"`
}

// Browser configures the browser session
type Browser struct {
	Headless    bool   `json:"headless"`
	KeepOpen    bool   `json:"keepOpen"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	UserDataDir string `json:"userDataDir"`
	Bin         string `json:"bin"`
}

// Update locates the published version and release binaries
type Update struct {
	VersionURL string `json:"versionUrl"`
	ReleaseURL string `json:"releaseUrl"`
}

// Config is the full run configuration
type Config struct {
	FormURL        string   `json:"formUrl"`
	DataPath       string   `json:"dataPath"`
	Sheet          string   `json:"sheet"`
	ScreenshotsDir string   `json:"screenshotsDir"`
	Fields         []Field  `json:"fields"`
	Page           Page     `json:"page"`
	Timeouts       Timeouts `json:"timeouts"`
	Browser        Browser  `json:"browser"`
	Update         Update   `json:"update"`
}

// Durations is Timeouts parsed
type Durations struct {
	Wait        time.Duration
	Choice      time.Duration
	Next        time.Duration
	Settle      time.Duration
	AfterSubmit time.Duration
}

// Columns returns the mapped column names in mapping order
func (c Config) Columns() []string {
	out := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		out = append(out, f.Column)
	}
	return out
}

// Durations parses the timeout strings
func (t Timeouts) Durations() (Durations, error) {
	var d Durations
	var errs []error
	parse := func(name, s string, dst *time.Duration) {
		v, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			errs = append(errs, fmt.Errorf("timeouts.%s: %w", name, err))
			return
		}
		if v < 0 {
			errs = append(errs, fmt.Errorf("timeouts.%s: negative duration %s", name, s))
			return
		}
		*dst = v
	}
	parse("wait", t.Wait, &d.Wait)
	parse("choice", t.Choice, &d.Choice)
	parse("next", t.Next, &d.Next)
	parse("settle", t.Settle, &d.Settle)
	parse("afterSubmit", t.AfterSubmit, &d.AfterSubmit)
	return d, errors.Join(errs...)
}

// Default returns the embedded configuration
func Default() Config {
	var cfg Config
	if err := json5.Unmarshal(defaultsFile, &cfg); err != nil {
		panic(fmt.Sprintf("embedded defaults are invalid: %v", err))
	}
	cfg.DataPath = expandHome(cfg.DataPath)
	return cfg
}

// Load merges, in increasing priority, the embedded defaults, <name>.<ext> and
// <name>.local.<ext>. An empty path or a path with neither file present yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	dir := filepath.Dir(path)
	prefix, ext := splitExt(filepath.Base(path))
	local := filepath.Join(dir, prefix+".local"+ext)

	for _, p := range []string{path, local} {
		data, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", p, err)
		}
		var override Config
		if err := json5.Unmarshal(data, &override); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", p, err)
		}
		if err := mergo.Merge(&cfg, override, mergo.WithOverride); err != nil {
			return cfg, fmt.Errorf("merge config %s: %w", p, err)
		}
		slog.Debug("merged config file", "path", p)
	}

	cfg.DataPath = expandHome(cfg.DataPath)
	return cfg, nil
}

// Validate checks that the configuration can drive a run
func (c Config) Validate() error {
	var errs []error
	if len(c.Fields) == 0 {
		errs = append(errs, errors.New("field mapping is empty"))
	}
	for i, f := range c.Fields {
		if strings.TrimSpace(f.Locator) == "" {
			errs = append(errs, fmt.Errorf("fields[%d]: empty locator", i))
		}
		if strings.TrimSpace(f.Column) == "" {
			errs = append(errs, fmt.Errorf("fields[%d]: empty column", i))
		}
	}
	if c.Page.Container == "" {
		errs = append(errs, errors.New("page.container is empty"))
	}
	if c.Page.Submit == "" {
		errs = append(errs, errors.New("page.submit is empty"))
	}
	if len(c.Page.Confirmations) == 0 {
		errs = append(errs, errors.New("page.confirmations is empty"))
	}
	if _, err := c.Timeouts.Durations(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func splitExt(name string) (string, string) {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext), ext
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
