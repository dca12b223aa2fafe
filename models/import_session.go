package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session lifecycle statuses. The flow is linear with two terminal branches:
// failed is reachable from any non-terminal status, cancelled from any status
// before executing.
const (
	SessionStatusPending     = "pending"
	SessionStatusParsing     = "parsing"
	SessionStatusParsed      = "parsed"
	SessionStatusAnalyzing   = "analyzing"
	SessionStatusAnalyzed    = "analyzed"
	SessionStatusReconciling = "reconciling"
	SessionStatusExecuting   = "executing"
	SessionStatusCompleted   = "completed"
	SessionStatusFailed      = "failed"
	SessionStatusCancelled   = "cancelled"
)

// ErrInvalidStateTransition is returned when an operation is invoked while the
// session is in an incompatible status. The session state is left unchanged.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// ErrNotFound is returned when a session, item, or catalog entity is absent or
// not owned by the caller's merchant.
var ErrNotFound = errors.New("not found")

// sessionTransitions lists the allowed next statuses for each session status.
var sessionTransitions = map[string][]string{
	SessionStatusPending:     {SessionStatusParsing, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusParsing:     {SessionStatusParsed, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusParsed:      {SessionStatusAnalyzing, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusAnalyzing:   {SessionStatusAnalyzed, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusAnalyzed:    {SessionStatusReconciling, SessionStatusExecuting, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusReconciling: {SessionStatusExecuting, SessionStatusFailed, SessionStatusCancelled},
	SessionStatusExecuting:   {SessionStatusCompleted, SessionStatusFailed},
	SessionStatusCompleted:   {},
	SessionStatusFailed:      {},
	SessionStatusCancelled:   {},
}

// CanTransitionSession reports whether a session may move from one status to another.
func CanTransitionSession(from, to string) bool {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ImportSession is the root aggregate for one catalog file upload. It tracks
// the file through parsing, analysis, matching, review, and execution. A
// session exclusively owns its items and is never deleted, only terminally
// transitioned.
type ImportSession struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MerchantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"merchant_id"`
	CreatedByID uuid.UUID `gorm:"type:uuid;not null" json:"created_by_id"`
	Filename    string    `gorm:"not null" json:"filename"`
	Format      string    `json:"format"`
	Status      string    `gorm:"default:pending;index" json:"status"`

	TotalRows     int `gorm:"default:0" json:"total_rows"`
	ProcessedRows int `gorm:"default:0" json:"processed_rows"`
	SuccessCount  int `gorm:"default:0" json:"success_count"`
	ErrorCount    int `gorm:"default:0" json:"error_count"`
	NewCount      int `gorm:"default:0" json:"new_count"`
	UpdateCount   int `gorm:"default:0" json:"update_count"`
	SkipCount     int `gorm:"default:0" json:"skip_count"`
	MatchedCount  int `gorm:"default:0" json:"matched_count"`
	ConflictCount int `gorm:"default:0" json:"conflict_count"`

	// AnalysisJSON holds the serialized dtos.AnalysisResult once analysis has run.
	AnalysisJSON string `gorm:"type:text" json:"-"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Items []ImportItem `gorm:"foreignKey:SessionID" json:"items,omitempty"`
}

func (s *ImportSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Transition performs a guarded status change as a compare-and-swap on the
// current status so that concurrent mutating operations on the same session
// lose the race instead of silently queuing. The in-memory struct is updated
// on success.
func (s *ImportSession) Transition(db *gorm.DB, to string) error {
	if !CanTransitionSession(s.Status, to) {
		return fmt.Errorf("%w: session %s cannot move from %s to %s", ErrInvalidStateTransition, s.ID, s.Status, to)
	}

	res := db.Model(&ImportSession{}).
		Where("id = ? AND status = ?", s.ID, s.Status).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: session %s is no longer in status %s", ErrInvalidStateTransition, s.ID, s.Status)
	}

	s.Status = to
	return nil
}

// Fail moves the session to failed from any non-terminal status and retains
// the error message for the caller.
func (s *ImportSession) Fail(db *gorm.DB, msg string) error {
	if err := s.Transition(db, SessionStatusFailed); err != nil {
		return err
	}
	s.ErrorMessage = msg
	return db.Model(&ImportSession{}).Where("id = ?", s.ID).Update("error_message", msg).Error
}
