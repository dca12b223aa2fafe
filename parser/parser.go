package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrUnsupportedFormat is returned when no registered parser claims the filename.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrMalformedInput is returned when a claiming parser cannot decode the bytes.
var ErrMalformedInput = errors.New("malformed input")

// Format tags produced by DetectFormat.
const (
	FormatCSV  = "csv"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
	FormatYML  = "yml"
)

// Options tune a single parse call. The zero value is a full parse with defaults.
type Options struct {
	// MaxRows caps the number of returned rows (0 = no cap). Capping rows never
	// alters column detection.
	MaxRows int
	// Delimiter overrides delimiter auto-detection for delimited formats.
	Delimiter rune
	// SheetName selects a spreadsheet sheet by name; SheetIndex by position.
	// When neither is set the first sheet is used.
	SheetName  string
	SheetIndex int
}

// ParseResult is the normalized row/column matrix of one uploaded file.
// All values are strings; every row carries the same column key set.
type ParseResult struct {
	Rows     []map[string]string `json:"rows"`
	Columns  []string            `json:"columns"`
	Metadata map[string]string   `json:"metadata,omitempty"`
}

// FileParser decodes one family of file formats into a ParseResult.
type FileParser interface {
	// Formats returns the format tags this parser claims.
	Formats() []string
	Parse(data []byte, opts Options) (*ParseResult, error)
}

// Registry maps file extensions to format tags and format tags to parsers.
type Registry struct {
	parsers    map[string]FileParser
	extensions map[string]string
}

// NewRegistry builds a registry with all built-in parsers registered.
func NewRegistry() *Registry {
	r := &Registry{
		parsers:    make(map[string]FileParser),
		extensions: make(map[string]string),
	}

	r.Register(&CSVParser{}, map[string]string{".csv": FormatCSV, ".tsv": FormatTSV, ".txt": FormatCSV})
	r.Register(&XLSXParser{}, map[string]string{".xlsx": FormatXLSX, ".xls": FormatXLSX})
	r.Register(&JSONParser{}, map[string]string{".json": FormatJSON})
	r.Register(&YMLParser{}, map[string]string{".yml": FormatYML, ".xml": FormatYML})

	return r
}

// Register adds a parser under its format tags and maps extensions to formats.
func (r *Registry) Register(p FileParser, extensions map[string]string) {
	for _, tag := range p.Formats() {
		r.parsers[tag] = p
	}
	for ext, tag := range extensions {
		r.extensions[strings.ToLower(ext)] = tag
	}
}

// DetectFormat resolves a filename to a format tag.
func (r *Registry) DetectFormat(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	tag, ok := r.extensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
	return tag, nil
}

// Parse decodes fileBytes according to the filename's detected format.
func (r *Registry) Parse(data []byte, filename string, opts Options) (*ParseResult, error) {
	tag, err := r.DetectFormat(filename)
	if err != nil {
		return nil, err
	}

	p, ok := r.parsers[tag]
	if !ok {
		return nil, fmt.Errorf("%w: no parser for format %s", ErrUnsupportedFormat, tag)
	}

	// TSV is the tab-delimited case of the delimited parser.
	if tag == FormatTSV && opts.Delimiter == 0 {
		opts.Delimiter = '\t'
	}

	result, err := p.Parse(data, opts)
	if err != nil {
		return nil, err
	}

	if result.Metadata == nil {
		result.Metadata = map[string]string{}
	}
	result.Metadata["format"] = tag
	return result, nil
}

// stringify coerces any decoded value to its string form. nil becomes the
// empty string; composite values are kept losslessly as JSON text.
func stringify(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		// JSON numbers decode as float64; render integers without a fraction.
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// recordsToResult turns a list of decoded records into a ParseResult with a
// stable first-seen column order and every row filled to the full column set.
// MaxRows caps the output rows only; columns are detected across all records.
func recordsToResult(records []map[string]interface{}, keyOrder []string, maxRows int) *ParseResult {
	columns := make([]string, 0, len(keyOrder))
	seen := make(map[string]bool, len(keyOrder))
	for _, k := range keyOrder {
		if !seen[k] {
			seen[k] = true
			columns = append(columns, k)
		}
	}

	rows := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		if maxRows > 0 && len(rows) >= maxRows {
			break
		}
		row := make(map[string]string, len(columns))
		for _, col := range columns {
			row[col] = stringify(rec[col])
		}
		rows = append(rows, row)
	}

	return &ParseResult{Rows: rows, Columns: columns}
}
