package handlers

import (
	"net/http"

	"catalogsync-backend/dtos"
	"catalogsync-backend/models"
	"catalogsync-backend/utils"

	"github.com/gin-gonic/gin"
)

// reviewable reports whether the session is in a status where items may still
// be edited, approved, or rejected.
func reviewable(session *models.ImportSession) bool {
	return session.Status == models.SessionStatusAnalyzed || session.Status == models.SessionStatusReconciling
}

var reviewerStatuses = map[string]bool{
	models.ItemStatusPending:  true,
	models.ItemStatusMatched:  true,
	models.ItemStatusNew:      true,
	models.ItemStatusApproved: true,
	models.ItemStatusRejected: true,
}

var validActions = map[string]bool{
	models.ItemActionInsert: true,
	models.ItemActionUpdate: true,
	models.ItemActionSkip:   true,
}

// UpdateItem applies a manual override to one item: status, action, a forced
// match, or an edited payload. Forced matches are recorded as manual with
// full confidence.
func (h *ImportHandler) UpdateItem(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}
	if !reviewable(session) {
		c.JSON(http.StatusConflict, gin.H{"error": "Session items can no longer be edited"})
		return
	}

	var item models.ImportItem
	if err := h.DB.Where("id = ? AND session_id = ?", c.Param("itemId"), session.ID).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}

	var req dtos.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	if req.Status != nil {
		if !reviewerStatuses[*req.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item status"})
			return
		}
		item.Status = *req.Status
	}
	if req.Action != nil {
		if !validActions[*req.Action] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item action"})
			return
		}
		item.Action = *req.Action
	}

	if req.MatchedProductID != nil {
		var product models.Product
		if err := h.DB.Where("id = ? AND merchant_id = ?", req.MatchedProductID, session.MerchantID).First(&product).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Matched product not found"})
			return
		}
		item.MatchedProductID = req.MatchedProductID
		item.MatchedBy = models.MatchedByManual
		confidence := 1.0
		item.MatchConfidence = &confidence
		if req.Action == nil {
			item.Action = models.ItemActionUpdate
		}
	}
	if req.MatchedVariantID != nil {
		var variant models.ProductVariant
		if err := h.DB.Where("id = ? AND merchant_id = ?", req.MatchedVariantID, session.MerchantID).First(&variant).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Matched variant not found"})
			return
		}
		item.MatchedVariantID = req.MatchedVariantID
	}

	// An insert creates a brand new product and never carries a match.
	if item.Action == models.ItemActionInsert {
		if req.MatchedProductID != nil || req.MatchedVariantID != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "An insert item cannot carry a match"})
			return
		}
		item.MatchedProductID = nil
		item.MatchedVariantID = nil
		item.MatchedBy = ""
		item.MatchConfidence = nil
		item.SetChanges(nil)
	}

	if req.MappedData != nil {
		if req.MappedData.Product.Title == nil && req.MappedData.Variant.SKU == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Mapped data needs a product title or a variant SKU"})
			return
		}
		item.SetMapped(req.MappedData)
		item.SetValidationErrors(nil)
	}

	if err := h.DB.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"item": itemViews([]models.ImportItem{item})[0]})
}

// ApproveAll bulk-approves reviewable items. Items with validation errors are
// never approved in bulk, and conflicted items only when their status is
// explicitly requested.
func (h *ImportHandler) ApproveAll(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}
	if !reviewable(session) {
		c.JSON(http.StatusConflict, gin.H{"error": "Session items can no longer be approved"})
		return
	}

	var req dtos.ApproveAllRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}
	statuses := req.Statuses
	if len(statuses) == 0 {
		statuses = []string{models.ItemStatusPending, models.ItemStatusMatched, models.ItemStatusNew}
	}

	res := h.DB.Model(&models.ImportItem{}).
		Where("session_id = ? AND status IN ?", session.ID, statuses).
		Where("validation_json IS NULL OR validation_json = ''").
		Update("status", models.ItemStatusApproved)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to approve items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"approved": res.RowsAffected})
}

// ResolveConflict settles one conflicted item: keep the catalog version
// (skip), take the incoming version (update), or import the row as a brand
// new product (insert).
func (h *ImportHandler) ResolveConflict(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}
	if !reviewable(session) {
		c.JSON(http.StatusConflict, gin.H{"error": "Session conflicts can no longer be resolved"})
		return
	}

	var item models.ImportItem
	if err := h.DB.Where("id = ? AND session_id = ?", c.Param("itemId"), session.ID).First(&item).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	if item.Status != models.ItemStatusConflict {
		c.JSON(http.StatusConflict, gin.H{"error": "Item is not in conflict"})
		return
	}

	var req dtos.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	switch req.Resolution {
	case dtos.ResolutionUpdate:
		item.Status = models.ItemStatusApproved
		item.Action = models.ItemActionUpdate
	case dtos.ResolutionSkip:
		item.Status = models.ItemStatusRejected
		item.Action = models.ItemActionSkip
	case dtos.ResolutionInsert:
		item.Status = models.ItemStatusApproved
		item.Action = models.ItemActionInsert
		item.MatchedProductID = nil
		item.MatchedVariantID = nil
		item.MatchedBy = ""
		item.MatchConfidence = nil
		item.SetChanges(nil)
	}

	if err := h.DB.Save(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve conflict"})
		return
	}

	var remaining int64
	h.DB.Model(&models.ImportItem{}).Where("session_id = ? AND status = ?", session.ID, models.ItemStatusConflict).Count(&remaining)
	h.DB.Model(session).Update("conflict_count", remaining)

	c.JSON(http.StatusOK, gin.H{
		"item":                itemViews([]models.ImportItem{item})[0],
		"remaining_conflicts": remaining,
	})
}
