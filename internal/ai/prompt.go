package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/v0xg/autoform/internal/config"
	"github.com/v0xg/autoform/internal/crawler"
)

const systemPrompt = `You map spreadsheet columns onto the questions of a web form so that each spreadsheet row can be submitted as one form response.

You will receive:
1. A form map: the URL, title and question blocks of the form. Each question has a CSS "locator" for its control, a "title", a "kind" (text, paragraph, dropdown, choice, other) and, for dropdown and choice questions, the option labels.
2. The spreadsheet header: the list of column names.

Output a JSON array of mappings in the order the questions appear on the form. Each mapping has:
- "locator": the locator of the question, copied exactly from the form map
- "column": the column name, copied exactly from the header

Guidelines:
- Match on meaning, not only spelling: titles and column names often differ in case, accents or abbreviations
- Map each question at most once and each column at most once
- Leave out questions with no matching column, and columns with no matching question
- Never invent locators or column names

Example output:
[
  {"locator": "#i1", "column": "NAME"},
  {"locator": "div[role=listitem]:nth-child(2) [role=listbox]", "column": "UNIT"}
]

Respond ONLY with the JSON array, no explanation or markdown.`

func buildUserPrompt(form *crawler.FormMap, header []string) (string, error) {
	formJSON, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal form map: %w", err)
	}
	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("failed to marshal header: %w", err)
	}
	return "Form map:\n" + string(formJSON) + "\n\nSpreadsheet header: " + string(headerJSON), nil
}

// parseFieldsJSON extracts and parses a JSON array from a response that may contain surrounding text
func parseFieldsJSON(response string) ([]config.Field, error) {
	var fields []config.Field
	if err := json.Unmarshal([]byte(response), &fields); err == nil {
		return fields, nil
	}

	start := strings.Index(response, "[")
	if start == -1 {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	// Find matching closing bracket
	depth := 0
	end := -1
	for i := start; i < len(response) && end == -1; i++ {
		switch response[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				end = i + 1
			}
		}
	}

	if end == -1 {
		return nil, fmt.Errorf("no matching closing bracket found")
	}

	if err := json.Unmarshal([]byte(response[start:end]), &fields); err != nil {
		return nil, fmt.Errorf("failed to parse extracted JSON: %w", err)
	}

	return fields, nil
}

// Check rejects a proposed mapping that names a column missing from header, a
// locator the crawl did not find, or either of them twice
func Check(fields []config.Field, form *crawler.FormMap, header []string) error {
	if len(fields) == 0 {
		return errors.New("proposed mapping is empty")
	}
	columns := make(map[string]bool, len(header))
	for _, h := range header {
		columns[h] = true
	}

	var errs []error
	usedLocator := make(map[string]bool)
	usedColumn := make(map[string]bool)
	for i, f := range fields {
		if !form.Has(f.Locator) {
			errs = append(errs, fmt.Errorf("mapping %d: unknown locator %q", i, f.Locator))
		}
		if !columns[f.Column] {
			errs = append(errs, fmt.Errorf("mapping %d: unknown column %q", i, f.Column))
		}
		if usedLocator[f.Locator] {
			errs = append(errs, fmt.Errorf("mapping %d: locator %q mapped twice", i, f.Locator))
		}
		if usedColumn[f.Column] {
			errs = append(errs, fmt.Errorf("mapping %d: column %q mapped twice", i, f.Column))
		}
		usedLocator[f.Locator] = true
		usedColumn[f.Column] = true
	}
	return errors.Join(errs...)
}
