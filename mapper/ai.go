package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"catalogsync-backend/ai"
	"catalogsync-backend/dtos"
)

const analyzeSystemPrompt = `You map spreadsheet columns of merchant product catalogs onto a fixed target schema.
Respond with a single JSON object and nothing else:
{"column_mapping":[{"source_column":"...","target_field":"...","confidence":0.0,"transformation":""}],"suggestions":[],"warnings":[]}
Allowed target_field values: %s.
Use transformation "multiply_by_100" when a price column holds major currency units (decimals or small numbers).
Leave a column out of column_mapping when no target fits; add a warning instead.`

// allowedTargets is the closed set an AI response may assign. Anything else is
// treated as a malformed response.
var allowedTargets = map[string]bool{
	TargetProductID: true, TargetProductTitle: true, TargetProductType: true,
	TargetProductStatus: true, TargetProductShortDesc: true, TargetProductLongDesc: true,
	TargetProductPrice: true, TargetProductCurrency: true, TargetProductImage: true,
	TargetProductCategory: true, TargetProductTags: true, TargetProductBrand: true,
	TargetProductWeight: true, TargetProductSlug: true, TargetProductSEOTitle: true,
	TargetProductSEODesc: true, TargetProductAttrs: true,
	TargetVariantSKU: true, TargetVariantBarcode: true, TargetVariantPrice: true,
	TargetVariantCompareAt: true, TargetVariantQuantity: true, TargetVariantPolicy: true,
	TargetVariantShipping: true, TargetVariantTaxable: true,
}

// AIAnalyzer delegates column mapping to an external text-generation
// capability and parses its structured response. Any failure or malformed
// response is returned as an error for the fallback decorator to absorb.
type AIAnalyzer struct {
	Client  ai.Client
	Timeout time.Duration
}

func NewAIAnalyzer(client ai.Client) *AIAnalyzer {
	return &AIAnalyzer{Client: client, Timeout: 45 * time.Second}
}

func (a *AIAnalyzer) Name() string { return "ai" }

func (a *AIAnalyzer) Analyze(columns []string, sampleRows []map[string]string) (*dtos.AnalysisResult, error) {
	if a.Client == nil || !a.Client.IsEnabled() {
		return nil, fmt.Errorf("ai analyzer is not available")
	}

	targets := make([]string, 0, len(allowedTargets))
	for t := range allowedTargets {
		targets = append(targets, t)
	}

	sampleRows = sample(sampleRows)
	sampleJSON, err := json.Marshal(sampleRows)
	if err != nil {
		return nil, err
	}

	userPrompt := fmt.Sprintf("Columns: %s\nSample rows: %s", strings.Join(columns, ", "), sampleJSON)

	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()

	response, err := a.Client.GetCompletion(ctx, fmt.Sprintf(analyzeSystemPrompt, strings.Join(targets, ", ")), userPrompt)
	if err != nil {
		return nil, err
	}

	parsed, err := parseAIResponse(response)
	if err != nil {
		return nil, err
	}

	result := &dtos.AnalysisResult{
		DetectedColumns: columns,
		ColumnMapping:   parsed.ColumnMapping,
		Suggestions:     parsed.Suggestions,
		Warnings:        parsed.Warnings,
		SampleData:      sampleRows,
	}
	return result, nil
}

type aiMappingResponse struct {
	ColumnMapping []dtos.ColumnMapping `json:"column_mapping"`
	Suggestions   []string             `json:"suggestions"`
	Warnings      []string             `json:"warnings"`
}

// parseAIResponse validates the model output into the AnalysisResult shape.
// Code fences are tolerated; unknown target fields and duplicate source
// columns are not.
func parseAIResponse(response string) (*aiMappingResponse, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed aiMappingResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, fmt.Errorf("ai response is not valid mapping JSON: %w", err)
	}
	if len(parsed.ColumnMapping) == 0 {
		return nil, fmt.Errorf("ai response contains no column mappings")
	}

	seenSources := make(map[string]bool)
	for i := range parsed.ColumnMapping {
		cm := &parsed.ColumnMapping[i]
		if cm.SourceColumn == "" {
			return nil, fmt.Errorf("ai response mapping %d has no source column", i)
		}
		if seenSources[cm.SourceColumn] {
			return nil, fmt.Errorf("ai response maps column %q twice", cm.SourceColumn)
		}
		seenSources[cm.SourceColumn] = true

		if !allowedTargets[cm.TargetField] {
			return nil, fmt.Errorf("ai response uses unknown target field %q", cm.TargetField)
		}
		if cm.Confidence < 0 {
			cm.Confidence = 0
		}
		if cm.Confidence > 1 {
			cm.Confidence = 1
		}
	}

	return &parsed, nil
}
