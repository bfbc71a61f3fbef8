// Package sheetimport reads uploaded spreadsheets (xlsx and csv) into header
// keyed rows and resolves column aliases.
package sheetimport

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Row represents a parsed row with its data and 1-indexed line number
type Row struct {
	LineNumber int
	Data       map[string]string
}

func newRow(line int, headers, record []string) *Row {
	row := &Row{
		LineNumber: line,
		Data:       make(map[string]string, len(headers)),
	}
	for i, header := range headers {
		if header == "" {
			continue
		}
		if i < len(record) {
			row.Data[header] = trimSpaces(record[i])
		} else {
			row.Data[header] = ""
		}
	}
	return row
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Sheet is a parsed table
type Sheet struct {
	Headers []string
	Rows    []*Row
}

// SupportedExtension reports whether filename has an accepted spreadsheet extension
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls", ".csv":
		return true
	}
	return false
}

// Read parses r according to the extension of filename.
// Legacy .xls uploads are accepted only when they are really OOXML workbooks.
func Read(filename string, r io.Reader) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		parser, err := NewCSVParser(r)
		if err != nil {
			return nil, err
		}
		if err := parser.ParseHeader(); err != nil {
			return nil, err
		}
		rows, err := parser.ReadAllRows()
		if err != nil {
			return nil, err
		}
		return &Sheet{Headers: parser.Headers(), Rows: rows}, nil
	case ".xlsx", ".xls":
		return ReadWorkbook(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ColumnAliases maps a canonical field name to the header spellings accepted for it
type ColumnAliases map[string][]string

// Resolve maps every canonical field to the first alias present in headers.
// Header comparison ignores surrounding and inner spaces.
func (a ColumnAliases) Resolve(headers []string) map[string]string {
	present := make(map[string]string, len(headers))
	for _, h := range headers {
		present[compactHeader(h)] = h
	}

	resolved := make(map[string]string, len(a))
	for field, aliases := range a {
		for _, alias := range aliases {
			if header, ok := present[compactHeader(alias)]; ok {
				resolved[field] = header
				break
			}
		}
	}
	return resolved
}

// Missing returns the required fields with no resolved header
func Missing(resolved map[string]string, required ...string) []string {
	var missing []string
	for _, field := range required {
		if _, ok := resolved[field]; !ok {
			missing = append(missing, field)
		}
	}
	return missing
}

func compactHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), ""))
}
