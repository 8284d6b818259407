package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/v0xg/autoform/internal/ai"
	"github.com/v0xg/autoform/internal/browser"
	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/crawler"
	"github.com/v0xg/autoform/internal/sheet"
)

func suggestCommand() *cobra.Command {
	var provider, model, output, sheetName string
	var headless bool
	cmd := &cobra.Command{
		Use:   "suggest <url> <file>",
		Short: "Propose a field mapping for a form and a spreadsheet using AI",
		Long: `suggest crawls the form's question blocks, reads the spreadsheet header and
asks an AI provider to pair them. The proposal is checked against both and
written as a config fragment.

Example:
  autoform suggest "https://forms.example.com/f/1" records.xlsx -o autoform.local.json5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, file := args[0], args[1]
			ctx := cmd.Context()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			header, err := sheet.Header(file, sheetName)
			if err != nil {
				return err
			}
			pterm.Info.Printfln("spreadsheet header: %d columns", len(header))

			spinner, _ := pterm.DefaultSpinner.Start("crawling " + url)
			session, err := browser.Launch(ctx, browser.Options{
				Headless: headless,
				Width:    cfg.Browser.Width,
				Height:   cfg.Browser.Height,
				Bin:      cfg.Browser.Bin,
			})
			if err != nil {
				spinner.Fail("browser failed to start")
				return err
			}
			defer session.Close()

			formMap, err := crawler.Crawl(ctx, session.Page(), url, crawler.Options{})
			if err != nil {
				spinner.Fail("crawl failed")
				return fmt.Errorf("crawl failed: %w", err)
			}
			spinner.Success(fmt.Sprintf("found %d questions", len(formMap.Questions)))
			printQuestions(formMap)

			p, err := ai.NewProvider(provider, model)
			if err != nil {
				return fmt.Errorf("AI provider init failed: %w", err)
			}
			spinner, _ = pterm.DefaultSpinner.Start("asking for a mapping")
			fields, err := p.SuggestMapping(ctx, formMap, header)
			if err != nil {
				spinner.Fail("mapping failed")
				return err
			}
			if err := ai.Check(fields, formMap, header); err != nil {
				spinner.Fail("proposal rejected")
				return err
			}
			spinner.Success(fmt.Sprintf("%d fields mapped", len(fields)))

			return writeFragment(output, config.Config{FormURL: url, DataPath: file, Sheet: sheetName, Fields: fields})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "AI provider: claude, openai (default: from env or claude)")
	cmd.Flags().StringVar(&model, "model", "", "Specific model override")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the fragment here instead of stdout")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name, first sheet if empty")
	cmd.Flags().BoolVar(&headless, "headless", true, "Crawl without a browser window")
	return cmd
}

func printQuestions(m *crawler.FormMap) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Title", "Kind", "Locator"})
	for _, q := range m.Questions {
		t.AppendRow(table.Row{q.Title, q.Kind, q.Locator})
	}
	t.Render()
}

// writeFragment writes the mapping as JSON, which every json5 reader accepts
func writeFragment(path string, cfg config.Config) error {
	fragment := struct {
		FormURL  string         `json:"formUrl"`
		DataPath string         `json:"dataPath"`
		Sheet    string         `json:"sheet,omitempty"`
		Fields   []config.Field `json:"fields"`
	}{cfg.FormURL, cfg.DataPath, cfg.Sheet, cfg.Fields}

	data, err := json.MarshalIndent(fragment, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	pterm.Success.Println("mapping written to " + path)
	return nil
}
