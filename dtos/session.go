package dtos

import "github.com/google/uuid"

// UpdateItemRequest is a manual override on a single item: a reviewer may set
// status/action, force a matched identifier, or edit the mapped payload.
type UpdateItemRequest struct {
	Status           *string     `json:"status,omitempty"`
	Action           *string     `json:"action,omitempty"`
	MatchedProductID *uuid.UUID  `json:"matched_product_id,omitempty"`
	MatchedVariantID *uuid.UUID  `json:"matched_variant_id,omitempty"`
	MappedData       *MappedData `json:"mapped_data,omitempty"`
}

// ApproveAllRequest bulk-approves items whose status is in Statuses.
// Defaults to pending, matched, and new; conflict items stay untouched unless
// explicitly included.
type ApproveAllRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// Conflict resolution choices.
const (
	ResolutionUpdate = "update"
	ResolutionSkip   = "skip"
	ResolutionInsert = "insert"
)

// ResolveConflictRequest settles a single conflicted item.
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=update skip insert"`
}

// UpdateMappingRequest replaces the session's column mapping wholesale, which
// re-projects every item.
type UpdateMappingRequest struct {
	ColumnMapping []ColumnMapping `json:"column_mapping" binding:"required,min=1,dive"`
}

// ExecuteResult is returned by the execution trigger with the final counters.
type ExecuteResult struct {
	SessionID    uuid.UUID `json:"session_id"`
	Status       string    `json:"status"`
	SuccessCount int       `json:"success_count"`
	ErrorCount   int       `json:"error_count"`
	NewCount     int       `json:"new_count"`
	UpdateCount  int       `json:"update_count"`
	SkipCount    int       `json:"skip_count"`
	CompletedAt  string    `json:"completed_at,omitempty"`
}
