package models

import (
	"encoding/json"
	"time"

	"catalogsync-backend/dtos"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item statuses. pending → {matched|new|conflict} → {approved|rejected} →
// imported, with error reachable from approved during execution.
const (
	ItemStatusPending  = "pending"
	ItemStatusMatched  = "matched"
	ItemStatusNew      = "new"
	ItemStatusConflict = "conflict"
	ItemStatusApproved = "approved"
	ItemStatusRejected = "rejected"
	ItemStatusImported = "imported"
	ItemStatusError    = "error"
)

// Item actions. skip forces the item toward imported without touching the catalog.
const (
	ItemActionInsert = "insert"
	ItemActionUpdate = "update"
	ItemActionSkip   = "skip"
)

// Matching methods recorded on an item.
const (
	MatchedByID      = "id"
	MatchedBySKU     = "sku"
	MatchedByBarcode = "barcode"
	MatchedByTitle   = "title"
	MatchedByManual  = "manual"
	MatchedByAI      = "ai"
)

// ImportItem is one source row within a session: its raw values, projected
// payload, match result, and review decision. Items never outlive their
// session or move between sessions.
type ImportItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`
	RowNumber int       `gorm:"not null" json:"row_number"`

	// RawJSON is the source row as an object of column → string value.
	RawJSON string `gorm:"type:text" json:"-"`
	Status  string `gorm:"default:pending;index" json:"status"`
	Action  string `gorm:"default:insert" json:"action"`

	// MappedJSON is the projected product/variant payload, empty before projection.
	MappedJSON string `gorm:"type:text" json:"-"`

	MatchedProductID *uuid.UUID `gorm:"type:uuid" json:"matched_product_id,omitempty"`
	MatchedVariantID *uuid.UUID `gorm:"type:uuid" json:"matched_variant_id,omitempty"`
	MatchedBy        string     `json:"matched_by,omitempty"`
	MatchConfidence  *float64   `json:"match_confidence,omitempty"`

	ChangesJSON    string `gorm:"type:text" json:"-"`
	ValidationJSON string `gorm:"type:text" json:"-"`
	ErrorMessage   string `json:"error_message,omitempty"`

	CreatedProductID *uuid.UUID `gorm:"type:uuid" json:"created_product_id,omitempty"`
	CreatedVariantID *uuid.UUID `gorm:"type:uuid" json:"created_variant_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *ImportItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// RawRow decodes the stored raw row. Returns an empty map on empty/invalid payloads.
func (i *ImportItem) RawRow() map[string]string {
	row := map[string]string{}
	if i.RawJSON != "" {
		_ = json.Unmarshal([]byte(i.RawJSON), &row)
	}
	return row
}

func (i *ImportItem) SetRawRow(row map[string]string) {
	b, _ := json.Marshal(row)
	i.RawJSON = string(b)
}

// Mapped decodes the projected payload. Returns nil before projection.
func (i *ImportItem) Mapped() *dtos.MappedData {
	if i.MappedJSON == "" {
		return nil
	}
	var m dtos.MappedData
	if err := json.Unmarshal([]byte(i.MappedJSON), &m); err != nil {
		return nil
	}
	return &m
}

func (i *ImportItem) SetMapped(m *dtos.MappedData) {
	if m == nil {
		i.MappedJSON = ""
		return
	}
	b, _ := json.Marshal(m)
	i.MappedJSON = string(b)
}

// Changes decodes the recorded field-level changes versus the matched entity.
func (i *ImportItem) Changes() []dtos.FieldChange {
	if i.ChangesJSON == "" {
		return nil
	}
	var changes []dtos.FieldChange
	_ = json.Unmarshal([]byte(i.ChangesJSON), &changes)
	return changes
}

func (i *ImportItem) SetChanges(changes []dtos.FieldChange) {
	if len(changes) == 0 {
		i.ChangesJSON = ""
		return
	}
	b, _ := json.Marshal(changes)
	i.ChangesJSON = string(b)
}

// ValidationErrors decodes the per-row validation messages.
func (i *ImportItem) ValidationErrors() []string {
	if i.ValidationJSON == "" {
		return nil
	}
	var errs []string
	_ = json.Unmarshal([]byte(i.ValidationJSON), &errs)
	return errs
}

func (i *ImportItem) SetValidationErrors(errs []string) {
	if len(errs) == 0 {
		i.ValidationJSON = ""
		return
	}
	b, _ := json.Marshal(errs)
	i.ValidationJSON = string(b)
}
