package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/v0xg/autoform/internal/sheet"
)

func checkCommand() *cobra.Command {
	var file, sheetName string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that every mapped column exists in the spreadsheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("file") {
				cfg.DataPath = file
			}
			if cmd.Flags().Changed("sheet") {
				cfg.Sheet = sheetName
			}

			header, err := sheet.Header(cfg.DataPath, cfg.Sheet)
			if err != nil {
				return err
			}
			missing := map[string]bool{}
			for _, c := range sheet.Missing(header, cfg.Columns()) {
				missing[c] = true
			}

			t := table.NewWriter()
			t.SetStyle(table.StyleRounded)
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"#", "Column", "Locator", "Status"})
			for i, f := range cfg.Fields {
				status := "present"
				if missing[f.Column] {
					status = "MISSING"
				}
				t.AppendRow(table.Row{i + 1, f.Column, f.Locator, status})
			}
			t.Render()

			if len(missing) > 0 {
				return &sheet.MissingColumnsError{Columns: sheet.Missing(header, cfg.Columns())}
			}
			fmt.Printf("all %d mapped columns found in %s\n", len(cfg.Fields), cfg.DataPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Spreadsheet to check (overrides config)")
	cmd.Flags().StringVar(&sheetName, "sheet", "", "Sheet name, first sheet if empty")
	return cmd
}
