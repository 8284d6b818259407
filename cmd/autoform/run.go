package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/form"
	"github.com/v0xg/autoform/internal/snapshot"
)

type runFlags struct {
	url         string
	file        string
	sheet       string
	screenshots string
	headless    bool
	keepOpen    bool
}

func runCommand() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit every spreadsheet row through the form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			return runBatch(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&f.url, "url", "", "Form address (overrides config)")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "Spreadsheet with one record per row (overrides config)")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Sheet name, first sheet if empty")
	cmd.Flags().StringVar(&f.screenshots, "screenshots", "", "Directory for screenshots of failed records")
	cmd.Flags().BoolVar(&f.headless, "headless", false, "Run the browser without a window")
	cmd.Flags().BoolVar(&f.keepOpen, "keep-open", false, "Leave the browser open after a completed run")
	return cmd
}

// apply overrides cfg with the flags the user actually set
func (f runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.FormURL = f.url
	}
	if flags.Changed("file") {
		cfg.DataPath = f.file
	}
	if flags.Changed("sheet") {
		cfg.Sheet = f.sheet
	}
	if flags.Changed("screenshots") {
		cfg.ScreenshotsDir = f.screenshots
	}
	if flags.Changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if flags.Changed("keep-open") {
		cfg.Browser.KeepOpen = f.keepOpen
	}
}

func runBatch(ctx context.Context, cfg config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}

	runner := &form.Runner{
		Launch: form.RodLauncher,
		Logger: slog.Default(),
	}
	if cfg.ScreenshotsDir != "" {
		runner.Screenshots = snapshot.New(cfg.ScreenshotsDir)
	}

	pterm.DefaultSection.Println("autoform v" + version)
	pterm.Info.Println("form: " + cfg.FormURL)
	pterm.Info.Println("data: " + cfg.DataPath)

	run := runner.Start(ctx, cfg)

	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		for range signals {
			// Further signals are harmless, the stop is idempotent
			run.RequestStop()
			pterm.Warning.Println("stop requested, finishing up")
		}
	}()

	report := render(run)
	printSummary(report)

	if report.Reason != form.ReasonCompleted {
		if report.Err != nil {
			return fmt.Errorf("run ended (%s): %w", report.Reason, report.Err)
		}
		return fmt.Errorf("run ended: %s", report.Reason)
	}
	return nil
}

// render prints events until the run finishes and returns its report
func render(run *form.Run) form.Report {
	var bar *pterm.ProgressbarPrinter
	var report form.Report

	for ev := range run.Events() {
		switch ev.Kind {
		case form.EventLog:
			logLine(ev.Level, ev.Text)
		case form.EventStatus:
			if bar != nil {
				bar.UpdateTitle(ev.Text)
			} else {
				slog.Debug("status", "text", ev.Text)
			}
		case form.EventProgress:
			if bar == nil {
				bar, _ = pterm.DefaultProgressbar.
					WithTotal(ev.Total).
					WithTitle("records").
					WithShowCount(true).
					WithRemoveWhenDone(false).
					Start()
			}
			// Current is the record just started; the bar counts finished ones
			if done := ev.Current - 1; bar != nil && done > bar.Current {
				bar.Add(done - bar.Current)
			}
		case form.EventFinished:
			report = ev.Report
			if bar != nil {
				if done := report.Successes + report.Failures; done > bar.Current {
					bar.Add(done - bar.Current)
				}
				_, _ = bar.Stop()
			}
		}
	}
	return report
}

func logLine(level form.Level, text string) {
	switch level {
	case form.LevelSuccess:
		pterm.Success.Println(text)
	case form.LevelWarning:
		pterm.Warning.Println(text)
	case form.LevelError:
		pterm.Error.Println(text)
	default:
		pterm.Info.Println(text)
	}
}

func printSummary(r form.Report) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Submitted", "Failed", "Result"})
	t.AppendRow(table.Row{r.Successes, r.Failures, string(r.Reason)})
	t.Render()
}
