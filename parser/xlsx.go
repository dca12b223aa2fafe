package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXParser decodes spreadsheet workbooks. The target sheet is selected by
// explicit name, explicit index, or defaults to the first sheet. The header
// is the first row.
type XLSXParser struct{}

func (p *XLSXParser) Formats() []string {
	return []string{FormatXLSX}
}

func (p *XLSXParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	defer f.Close()

	sheetName := opts.SheetName
	if sheetName == "" {
		sheetName = f.GetSheetName(opts.SheetIndex)
	}
	if sheetName == "" {
		return nil, fmt.Errorf("%w: no such sheet (index %d)", ErrMalformedInput, opts.SheetIndex)
	}

	records, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrMalformedInput, sheetName, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sheet %q is empty", ErrMalformedInput, sheetName)
	}

	header := records[0]
	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if seen[name] {
			name = fmt.Sprintf("%s_%d", name, i+1)
		}
		seen[name] = true
		columns = append(columns, name)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			break
		}
		row := make(map[string]string, len(columns))
		for i, col := range columns {
			if i < len(record) {
				row[col] = record[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}

	return &ParseResult{
		Rows:    rows,
		Columns: columns,
		Metadata: map[string]string{
			"sheet": sheetName,
		},
	}, nil
}
