package mapper

import (
	"log"

	"catalogsync-backend/dtos"
)

// SampleSize is the number of rows attached to an AnalysisResult and handed to
// the AI collaborator.
const SampleSize = 5

// Analyzer produces a column mapping proposal for an uploaded file.
type Analyzer interface {
	Analyze(columns []string, sampleRows []map[string]string) (*dtos.AnalysisResult, error)
	Name() string
}

// FallbackAnalyzer tries the primary strategy and degrades to the fallback on
// any error, so analysis never hard-fails because the AI dependency is absent
// or erroring.
type FallbackAnalyzer struct {
	Primary  Analyzer
	Fallback Analyzer
}

func (f *FallbackAnalyzer) Name() string {
	return f.Primary.Name() + "+" + f.Fallback.Name()
}

func (f *FallbackAnalyzer) Analyze(columns []string, sampleRows []map[string]string) (*dtos.AnalysisResult, error) {
	result, err := f.Primary.Analyze(columns, sampleRows)
	if err == nil {
		return result, nil
	}

	log.Printf("Column analysis via %s failed, falling back to %s: %v", f.Primary.Name(), f.Fallback.Name(), err)
	return f.Fallback.Analyze(columns, sampleRows)
}

// sample returns the first SampleSize rows for preview and AI input.
func sample(rows []map[string]string) []map[string]string {
	if len(rows) <= SampleSize {
		return rows
	}
	return rows[:SampleSize]
}
