package sheetimport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ReadWorkbook reads the first worksheet of an xlsx workbook. The first
// non-blank row is the header.
func ReadWorkbook(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoWorksheet
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read worksheet %q: %w", sheets[0], err)
	}

	headerIdx := -1
	for i, record := range records {
		if !blankRecord(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrMissingHeader
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i] = trimSpaces(h)
	}

	sheet := &Sheet{Headers: headers}
	for i := headerIdx + 1; i < len(records); i++ {
		row := newRow(i+1, headers, records[i])
		if row.IsEmpty() {
			continue
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if trimSpaces(v) != "" {
			return false
		}
	}
	return true
}
