package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"catalogsync-backend/dtos"
	"catalogsync-backend/mapper"
	"catalogsync-backend/matcher"
	"catalogsync-backend/models"
	"catalogsync-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func encodeAnalysis(a *dtos.AnalysisResult) string {
	b, _ := json.Marshal(a)
	return string(b)
}

func decodeAnalysis(raw string, a *dtos.AnalysisResult) error {
	return json.Unmarshal([]byte(raw), a)
}

// AnalyzeSession runs column mapping over a parsed session and projects every
// row with the resulting mapping.
func (h *ImportHandler) AnalyzeSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusAnalyzing); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start analysis"})
		return
	}

	var analysis dtos.AnalysisResult
	if err := decodeAnalysis(session.AnalysisJSON, &analysis); err != nil || len(analysis.DetectedColumns) == 0 {
		session.Fail(h.DB, "session has no detected columns")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Session has no detected columns"})
		return
	}

	var sampleItems []models.ImportItem
	if err := h.DB.Where("session_id = ?", session.ID).Order("row_number").Limit(mapper.SampleSize).Find(&sampleItems).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load sample rows"})
		return
	}
	sampleRows := make([]map[string]string, 0, len(sampleItems))
	for i := range sampleItems {
		sampleRows = append(sampleRows, sampleItems[i].RawRow())
	}

	result, err := h.Analyzer.Analyze(analysis.DetectedColumns, sampleRows)
	if err != nil {
		log.Printf("session %s: analysis failed: %v", session.ID, err)
		session.Fail(h.DB, "column analysis failed: "+err.Error())
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Column analysis failed"})
		return
	}

	session.AnalysisJSON = encodeAnalysis(result)
	if err := h.DB.Model(session).Update("analysis_json", session.AnalysisJSON).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store analysis"})
		return
	}

	if err := h.projectItems(session, result.ColumnMapping); err != nil {
		session.Fail(h.DB, "row projection failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Row projection failed"})
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusAnalyzed); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to finish analysis"})
		return
	}

	h.DB.First(session, "id = ?", session.ID)
	c.JSON(http.StatusOK, gin.H{
		"session":  session,
		"analysis": result,
	})
}

// projectItems applies the mapping to every item of the session, resetting
// any previous projection and match state. Rows that fail validation keep
// status pending with the errors attached.
func (h *ImportHandler) projectItems(session *models.ImportSession, mapping []dtos.ColumnMapping) error {
	var processed, eligible int

	err := processInBatches(h.DB, session.ID, func(items []models.ImportItem) error {
		for i := range items {
			item := &items[i]
			mapped, validationErrs := mapper.Project(item.RawRow(), mapping)

			item.SetMapped(mapped)
			item.SetValidationErrors(validationErrs)
			item.SetChanges(nil)
			item.MatchedProductID = nil
			item.MatchedVariantID = nil
			item.MatchedBy = ""
			item.MatchConfidence = nil
			item.ErrorMessage = ""

			if len(validationErrs) > 0 {
				item.Status = models.ItemStatusPending
				item.Action = models.ItemActionSkip
			} else {
				item.Status = models.ItemStatusNew
				item.Action = models.ItemActionInsert
				eligible++
			}
			processed++

			if err := h.DB.Save(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	return h.DB.Model(session).Updates(map[string]interface{}{
		"processed_rows": processed,
		"new_count":      eligible,
		"matched_count":  0,
		"conflict_count": 0,
	}).Error
}

// MatchSession reconciles every projected item against the merchant's catalog.
// It may be re-run while the session is still reconciling, for example after a
// mapping update.
func (h *ImportHandler) MatchSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if session.Status != models.SessionStatusReconciling {
		if err := session.Transition(h.DB, models.SessionStatusReconciling); err != nil {
			if errors.Is(err, models.ErrInvalidStateTransition) {
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start matching"})
			return
		}
	}

	var products []models.Product
	if err := h.DB.Preload("Variants").Where("merchant_id = ?", session.MerchantID).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load catalog"})
		return
	}
	idx := matcher.BuildIndex(products)

	var matched, conflicts, fresh int
	err := processInBatches(h.DB, session.ID, func(items []models.ImportItem) error {
		for i := range items {
			item := &items[i]
			mapped := item.Mapped()
			if mapped == nil || len(item.ValidationErrors()) > 0 {
				continue
			}

			result := h.Matcher.Match(mapped, idx)
			if !result.Matched {
				item.Status = models.ItemStatusNew
				item.Action = models.ItemActionInsert
				item.MatchedProductID = nil
				item.MatchedVariantID = nil
				item.MatchedBy = ""
				item.MatchConfidence = nil
				item.SetChanges(nil)
				fresh++
			} else {
				item.MatchedProductID = result.MatchedProductID
				item.MatchedVariantID = result.MatchedVariantID
				item.MatchedBy = result.MatchedBy
				confidence := result.MatchConfidence
				item.MatchConfidence = &confidence
				item.SetChanges(result.Changes)
				item.Action = models.ItemActionUpdate
				if result.Conflict {
					item.Status = models.ItemStatusConflict
					conflicts++
				} else {
					item.Status = models.ItemStatusMatched
					matched++
				}
			}

			if err := h.DB.Save(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to match items"})
		return
	}

	if err := h.DB.Model(session).Updates(map[string]interface{}{
		"matched_count":  matched,
		"conflict_count": conflicts,
		"new_count":      fresh,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	h.DB.First(session, "id = ?", session.ID)
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// UpdateMapping replaces the session's column mapping and re-projects every
// row. Any previous match results are discarded; matching must run again.
func (h *ImportHandler) UpdateMapping(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if session.Status != models.SessionStatusAnalyzed && session.Status != models.SessionStatusReconciling {
		c.JSON(http.StatusConflict, gin.H{"error": "Mapping can only be updated after analysis and before execution"})
		return
	}

	var req dtos.UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var analysis dtos.AnalysisResult
	if err := decodeAnalysis(session.AnalysisJSON, &analysis); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session analysis is unreadable"})
		return
	}
	analysis.ColumnMapping = req.ColumnMapping

	session.AnalysisJSON = encodeAnalysis(&analysis)
	if err := h.DB.Model(session).Update("analysis_json", session.AnalysisJSON).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store mapping"})
		return
	}

	if err := h.projectItems(session, analysis.ColumnMapping); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Row projection failed"})
		return
	}

	h.DB.First(session, "id = ?", session.ID)
	c.JSON(http.StatusOK, gin.H{
		"session":  session,
		"analysis": analysis,
	})
}

// processInBatches walks a session's items in row order, in fixed-size chunks.
func processInBatches(db *gorm.DB, sessionID interface{}, fn func([]models.ImportItem) error) error {
	var items []models.ImportItem
	return db.Where("session_id = ?", sessionID).Order("row_number").
		FindInBatches(&items, 500, func(tx *gorm.DB, batch int) error {
			return fn(items)
		}).Error
}
