package mapper

import (
	"context"
	"fmt"
	"testing"

	"catalogsync-backend/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is a canned ai.Client for analyzer tests.
type stubClient struct {
	response string
	err      error
}

func (s *stubClient) GetCompletion(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return s.response, s.err
}
func (s *stubClient) IsEnabled() bool { return true }
func (s *stubClient) Name() string    { return "stub" }

func TestParseAIResponseValid(t *testing.T) {
	parsed, err := parseAIResponse(`{"column_mapping":[{"source_column":"sku","target_field":"variant.sku","confidence":0.9}],"warnings":["w"]}`)
	require.NoError(t, err)
	require.Len(t, parsed.ColumnMapping, 1)
	assert.Equal(t, "variant.sku", parsed.ColumnMapping[0].TargetField)
	assert.Equal(t, []string{"w"}, parsed.Warnings)
}

func TestParseAIResponseStripsCodeFences(t *testing.T) {
	fenced := "```json\n{\"column_mapping\":[{\"source_column\":\"sku\",\"target_field\":\"variant.sku\",\"confidence\":0.9}]}\n```"

	parsed, err := parseAIResponse(fenced)
	require.NoError(t, err)
	assert.Len(t, parsed.ColumnMapping, 1)
}

func TestParseAIResponseClampsConfidence(t *testing.T) {
	parsed, err := parseAIResponse(`{"column_mapping":[
		{"source_column":"a","target_field":"variant.sku","confidence":3.5},
		{"source_column":"b","target_field":"product.title","confidence":-1}
	]}`)
	require.NoError(t, err)
	assert.Equal(t, 1.0, parsed.ColumnMapping[0].Confidence)
	assert.Equal(t, 0.0, parsed.ColumnMapping[1].Confidence)
}

func TestParseAIResponseRejectsMalformed(t *testing.T) {
	cases := map[string]string{
		"not json":         `mapping: sku -> variant.sku`,
		"empty mapping":    `{"column_mapping":[]}`,
		"no source":        `{"column_mapping":[{"source_column":"","target_field":"variant.sku"}]}`,
		"duplicate source": `{"column_mapping":[{"source_column":"sku","target_field":"variant.sku"},{"source_column":"sku","target_field":"product.title"}]}`,
		"unknown target":   `{"column_mapping":[{"source_column":"sku","target_field":"variant.secret"}]}`,
	}
	for name, raw := range cases {
		_, err := parseAIResponse(raw)
		assert.Error(t, err, name)
	}
}

func TestAIAnalyzerHappyPath(t *testing.T) {
	a := NewAIAnalyzer(&stubClient{
		response: `{"column_mapping":[{"source_column":"sku","target_field":"variant.sku","confidence":0.9}],"suggestions":["s"]}`,
	})

	result, err := a.Analyze([]string{"sku"}, []map[string]string{{"sku": "A-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"sku"}, result.DetectedColumns)
	assert.Equal(t, []string{"s"}, result.Suggestions)
	require.Len(t, result.SampleData, 1)
}

func TestAIAnalyzerPropagatesClientError(t *testing.T) {
	a := NewAIAnalyzer(&stubClient{err: fmt.Errorf("upstream down")})

	_, err := a.Analyze([]string{"sku"}, nil)
	assert.Error(t, err)
}

// errAnalyzer always fails, for exercising the fallback decorator.
type errAnalyzer struct{}

func (errAnalyzer) Analyze([]string, []map[string]string) (*dtos.AnalysisResult, error) {
	return nil, fmt.Errorf("primary unavailable")
}
func (errAnalyzer) Name() string { return "err" }

func TestFallbackAnalyzerDegradesOnError(t *testing.T) {
	f := &FallbackAnalyzer{Primary: errAnalyzer{}, Fallback: NewPatternAnalyzer()}

	result, err := f.Analyze([]string{"sku"}, nil)
	require.NoError(t, err)
	require.Len(t, result.ColumnMapping, 1)
	assert.Equal(t, TargetVariantSKU, result.ColumnMapping[0].TargetField)
}

func TestFallbackAnalyzerPrefersPrimary(t *testing.T) {
	primary := NewAIAnalyzer(&stubClient{
		response: `{"column_mapping":[{"source_column":"sku","target_field":"product.id","confidence":0.5}]}`,
	})
	f := &FallbackAnalyzer{Primary: primary, Fallback: NewPatternAnalyzer()}

	result, err := f.Analyze([]string{"sku"}, nil)
	require.NoError(t, err)
	// The pattern table would say variant.sku; the primary's answer wins.
	assert.Equal(t, TargetProductID, result.ColumnMapping[0].TargetField)
}
