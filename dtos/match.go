package dtos

import "github.com/google/uuid"

// FieldChange records one field-level difference between a projected value and
// the matched catalog entity.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
}

// MatchResult is the transient outcome of matching one projected row against
// the merchant's catalog. It is recorded onto the item, never persisted standalone.
type MatchResult struct {
	Matched          bool          `json:"matched"`
	MatchedProductID *uuid.UUID    `json:"matched_product_id,omitempty"`
	MatchedVariantID *uuid.UUID    `json:"matched_variant_id,omitempty"`
	MatchedBy        string        `json:"matched_by,omitempty"`
	MatchConfidence  float64       `json:"match_confidence"`
	Changes          []FieldChange `json:"changes,omitempty"`
	Conflict         bool          `json:"conflict"`
}
