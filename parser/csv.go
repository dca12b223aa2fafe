package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// delimiterCandidates is the fixed set tried during auto-detection, in the
// order ties are broken (comma wins a tie).
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// CSVParser decodes delimited text files. The field delimiter is auto-detected
// from the first line when not supplied explicitly.
type CSVParser struct{}

func (p *CSVParser) Formats() []string {
	return []string{FormatCSV, FormatTSV}
}

// detectDelimiter counts candidate occurrences in the first line and picks the
// most frequent one, defaulting to comma on a tie.
func detectDelimiter(data []byte) rune {
	firstLine := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		firstLine = data[:idx]
	}

	best := ','
	bestCount := 0
	for _, cand := range delimiterCandidates {
		count := bytes.Count(firstLine, []byte(string(cand)))
		if count > bestCount {
			best = cand
			bestCount = count
		}
	}
	return best
}

func (p *CSVParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	// Strip a UTF-8 BOM so the first header cell is not polluted.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = detectDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1 // tolerate ragged rows, pad below
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrMalformedInput)
	}

	header := records[0]
	columns := make([]string, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		// Duplicate headers get a positional suffix so no cell is lost.
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
			"delimiter": string(delimiter),
		},
	}, nil
}
