package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"catalogsync-backend/dtos"
	"catalogsync-backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ExecuteSession applies every approved item to the catalog inside a single
// transaction. A failing item is recorded as an error and does not stop the
// batch; only a storage-level failure rolls the whole execution back.
func (h *ImportHandler) ExecuteSession(c *gin.Context) {
	session, ok := h.loadSession(c)
	if !ok {
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusExecuting); err != nil {
		if errors.Is(err, models.ErrInvalidStateTransition) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start execution"})
		return
	}

	var success, errCount, newCount, updateCount, skipCount int

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var items []models.ImportItem
		if err := tx.Where("session_id = ? AND status = ?", session.ID, models.ItemStatusApproved).
			Order("row_number").Find(&items).Error; err != nil {
			return err
		}

		for i := range items {
			item := &items[i]
			sp := fmt.Sprintf("import_row_%d", item.RowNumber)
			if err := tx.SavePoint(sp).Error; err != nil {
				return err
			}
			if err := h.executeItem(tx, session, item); err != nil {
				// Discard the row's partial writes so a failed statement
				// cannot poison the rest of the transaction.
				if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
					return rbErr
				}
				log.Printf("session %s: row %d failed: %v", session.ID, item.RowNumber, err)
				item.Status = models.ItemStatusError
				item.ErrorMessage = err.Error()
				errCount++
			} else {
				item.Status = models.ItemStatusImported
				success++
				switch item.Action {
				case models.ItemActionInsert:
					newCount++
				case models.ItemActionUpdate:
					updateCount++
				case models.ItemActionSkip:
					skipCount++
				}
			}
			if err := tx.Save(item).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		log.Printf("session %s: execution aborted: %v", session.ID, txErr)
		session.Fail(h.DB, "execution failed: "+txErr.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Execution failed"})
		return
	}

	now := time.Now()
	if err := h.DB.Model(session).Updates(map[string]interface{}{
		"success_count": success,
		"error_count":   errCount,
		"new_count":     newCount,
		"update_count":  updateCount,
		"skip_count":    skipCount,
		"completed_at":  &now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update session"})
		return
	}

	if err := session.Transition(h.DB, models.SessionStatusCompleted); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete session"})
		return
	}

	c.JSON(http.StatusOK, dtos.ExecuteResult{
		SessionID:    session.ID,
		Status:       session.Status,
		SuccessCount: success,
		ErrorCount:   errCount,
		NewCount:     newCount,
		UpdateCount:  updateCount,
		SkipCount:    skipCount,
		CompletedAt:  now.Format(time.RFC3339),
	})
}

// executeItem applies one approved item. Panics inside an item are recovered
// into errors so a single malformed row cannot take down the batch.
func (h *ImportHandler) executeItem(tx *gorm.DB, session *models.ImportSession, item *models.ImportItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("row execution panicked: %v", r)
		}
	}()

	if item.Action == models.ItemActionSkip {
		return nil
	}

	mapped := item.Mapped()
	if mapped == nil {
		return fmt.Errorf("item has no projected payload")
	}

	switch item.Action {
	case models.ItemActionInsert:
		return h.insertItem(tx, session, item, mapped)
	case models.ItemActionUpdate:
		return h.updateItem(tx, session, item, mapped)
	default:
		return fmt.Errorf("unknown action %q", item.Action)
	}
}

func (h *ImportHandler) insertItem(tx *gorm.DB, session *models.ImportSession, item *models.ImportItem, mapped *dtos.MappedData) error {
	title := ""
	if mapped.Product.Title != nil {
		title = *mapped.Product.Title
	} else if mapped.Variant.Title != nil {
		title = *mapped.Variant.Title
	} else if mapped.Variant.SKU != nil {
		title = *mapped.Variant.SKU
	}
	if title == "" {
		return fmt.Errorf("cannot create a product without a title")
	}

	product := models.Product{
		MerchantID: session.MerchantID,
		Title:      title,
	}
	applyProductFields(&product, &mapped.Product)
	if product.Price == 0 && mapped.Variant.Price != nil {
		product.Price = *mapped.Variant.Price
	}

	if err := tx.Create(&product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	item.CreatedProductID = &product.ID

	if hasVariantData(&mapped.Variant) {
		variant := models.ProductVariant{
			ProductID:  product.ID,
			MerchantID: session.MerchantID,
			Title:      title,
			Price:      product.Price,
		}
		applyVariantFields(&variant, &mapped.Variant)
		if err := tx.Create(&variant).Error; err != nil {
			return fmt.Errorf("failed to create variant: %w", err)
		}
		item.CreatedVariantID = &variant.ID
	}
	return nil
}

func (h *ImportHandler) updateItem(tx *gorm.DB, session *models.ImportSession, item *models.ImportItem, mapped *dtos.MappedData) error {
	if item.MatchedProductID == nil {
		return fmt.Errorf("update requires a matched product")
	}

	var product models.Product
	if err := tx.Where("id = ? AND merchant_id = ?", item.MatchedProductID, session.MerchantID).First(&product).Error; err != nil {
		return fmt.Errorf("matched product no longer exists")
	}

	applyProductFields(&product, &mapped.Product)
	if err := tx.Save(&product).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	if item.MatchedVariantID != nil {
		var variant models.ProductVariant
		if err := tx.Where("id = ? AND merchant_id = ?", item.MatchedVariantID, session.MerchantID).First(&variant).Error; err != nil {
			return fmt.Errorf("matched variant no longer exists")
		}
		applyVariantFields(&variant, &mapped.Variant)
		if err := tx.Save(&variant).Error; err != nil {
			return fmt.Errorf("failed to update variant: %w", err)
		}
	}
	return nil
}

// applyProductFields patches only the fields the projection produced. Absent
// fields keep their catalog values.
func applyProductFields(product *models.Product, fields *dtos.ProductFields) {
	if fields.Title != nil {
		product.Title = *fields.Title
	}
	if fields.ShortDescription != nil {
		product.ShortDescription = *fields.ShortDescription
	}
	if fields.LongDescription != nil {
		product.LongDescription = *fields.LongDescription
	}
	if fields.Price != nil {
		product.Price = *fields.Price
	}
	if fields.Currency != nil {
		product.Currency = *fields.Currency
	}
	if fields.ImageURL != nil {
		product.ImageURL = *fields.ImageURL
	}
	if fields.Status != nil {
		product.Status = *fields.Status
	}
	if fields.Brand != nil {
		product.Brand = *fields.Brand
	}
	if fields.Category != nil {
		product.Category = *fields.Category
	}
	if len(fields.Tags) > 0 {
		product.Tags = strings.Join(fields.Tags, ",")
	}
}

func applyVariantFields(variant *models.ProductVariant, fields *dtos.VariantFields) {
	if fields.SKU != nil {
		variant.SKU = *fields.SKU
	}
	if fields.Barcode != nil {
		variant.Barcode = *fields.Barcode
	}
	if fields.Title != nil {
		variant.Title = *fields.Title
	}
	if fields.Price != nil {
		variant.Price = *fields.Price
	}
	if fields.CompareAtPrice != nil {
		variant.CompareAtPrice = fields.CompareAtPrice
	}
	if fields.InventoryQuantity != nil {
		variant.InventoryQuantity = *fields.InventoryQuantity
	}
}

func hasVariantData(fields *dtos.VariantFields) bool {
	return fields.SKU != nil || fields.Barcode != nil || fields.Title != nil ||
		fields.Price != nil || fields.CompareAtPrice != nil || fields.InventoryQuantity != nil
}
