package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrNotFound is returned when the data source file does not exist
	ErrNotFound = errors.New("data source not found")
	// ErrParse is returned when the file exists but cannot be read as a workbook
	ErrParse = errors.New("data source could not be parsed")
)

// MissingColumnsError names the mapped columns absent from the header row
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return "mapped columns not found: " + strings.Join(e.Columns, ", ")
}

// Extensions lists the file extensions accepted as spreadsheets
var Extensions = []string{".xlsx", ".xlsm"}

// Record is one data row keyed by normalized column name
type Record map[string]string

// Value returns the raw cell text for column, empty if absent
func (r Record) Value(column string) string {
	return r[column]
}

// Options configures loading
type Options struct {
	Sheet   string   // sheet name, first sheet if empty
	Columns []string // columns that must be present after normalization
}

// Table is a fully loaded data source
type Table struct {
	Header  []string
	Records []Record
}

// HasExtension reports whether path ends in an accepted spreadsheet extension
func HasExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// NormalizeHeader replaces embedded line breaks with spaces and trims the result
func NormalizeHeader(name string) string {
	name = strings.ReplaceAll(name, "\r\n", " ")
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	return strings.TrimSpace(name)
}

// Missing returns the columns not present in header, in the order they were given.
// Duplicates in columns are reported once.
func Missing(header, columns []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	seen := make(map[string]bool)
	for _, c := range columns {
		if present[c] || seen[c] {
			continue
		}
		seen[c] = true
		missing = append(missing, c)
	}
	return missing
}

// Header reads only the normalized header row of the data source
func Header(path, sheetName string) ([]string, error) {
	rows, err := readRows(path, sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return normalizeRow(rows[0]), nil
}

// Load reads every record of the data source. Either the whole source is
// returned or an error; a missing mapped column yields *MissingColumnsError.
func Load(path string, opts Options) (*Table, error) {
	rows, err := readRows(path, opts.Sheet)
	if err != nil {
		return nil, err
	}

	var header []string
	if len(rows) > 0 {
		header = normalizeRow(rows[0])
	}
	if missing := Missing(header, opts.Columns); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	table := &Table{Header: header}
	if len(rows) < 2 {
		return table, nil
	}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if _, dup := rec[name]; dup {
				continue
			}
			if i < len(row) {
				rec[name] = row[i]
			} else {
				rec[name] = ""
			}
		}
		table.Records = append(table.Records, rec)
	}
	return table, nil
}

func readRows(path, sheetName string) ([][]string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	defer f.Close()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrParse)
		}
		sheetName = sheets[0]
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrParse, sheetName, err)
	}
	return rows, nil
}

func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = NormalizeHeader(cell)
	}
	return out
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
