package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// containerKeys are the wrapper keys searched, in order, when the document is
// an object rather than a bare array.
var containerKeys = []string{"products", "items", "data"}

// JSONParser decodes JSON catalogs. A container object holding a
// products/items/data array, a bare array, and a single object all normalize
// to a list of records.
type JSONParser struct{}

func (p *JSONParser) Formats() []string {
	return []string{FormatJSON}
}

func (p *JSONParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	list, err := extractRecordList(doc)
	if err != nil {
		return nil, err
	}

	records := make([]map[string]interface{}, 0, len(list))
	var keyOrder []string
	seenKeys := make(map[string]bool)
	for i, elem := range list {
		rec, ok := elem.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedInput, i)
		}
		records = append(records, rec)
		// Decoded maps lose document key order; sort within each record so
		// column order stays deterministic across parses of the same file.
		recKeys := make([]string, 0, len(rec))
		for k := range rec {
			recKeys = append(recKeys, k)
		}
		sort.Strings(recKeys)
		for _, k := range recKeys {
			if !seenKeys[k] {
				seenKeys[k] = true
				keyOrder = append(keyOrder, k)
			}
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records found", ErrMalformedInput)
	}

	result := recordsToResult(records, keyOrder, opts.MaxRows)
	return result, nil
}

// extractRecordList normalizes the three accepted document shapes to a slice.
func extractRecordList(doc interface{}) ([]interface{}, error) {
	switch v := doc.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range containerKeys {
			if arr, ok := v[key].([]interface{}); ok {
				return arr, nil
			}
		}
		// A single object is a one-record catalog.
		return []interface{}{v}, nil
	default:
		return nil, fmt.Errorf("%w: document is neither an array nor an object", ErrMalformedInput)
	}
}

