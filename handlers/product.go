package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"catalogsync-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ProductHandler struct {
	DB *gorm.DB
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := h.DB.Model(&models.Product{}).Where("merchant_id = ?", merchantID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?)", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var products []models.Product
	if err := query.Preload("Variants").Order("created_at DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)
	id := c.Param("id")

	var product models.Product
	if err := h.DB.Preload("Variants").Where("id = ? AND merchant_id = ?", id, merchantID).First(&product).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		return
	}
	c.JSON(http.StatusOK, product)
}

var exportHeader = []string{"id", "title", "sku", "barcode", "price", "currency", "status", "brand", "category", "inventory_quantity"}

// ExportProducts streams the full merchant catalog as an XLSX workbook. Rows
// are one per variant; products without variants get a single row.
func (h *ProductHandler) ExportProducts(c *gin.Context) {
	merchantID := c.MustGet("merchant_id").(uuid.UUID)

	var products []models.Product
	if err := h.DB.Preload("Variants").Where("merchant_id = ?", merchantID).Order("created_at").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &exportHeader); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
		return
	}

	rowNum := 2
	writeRow := func(p *models.Product, v *models.ProductVariant) error {
		row := []interface{}{p.ID.String(), p.Title, "", "", p.Price, p.Currency, p.Status, p.Brand, p.Category, 0}
		if v != nil {
			row[2] = v.SKU
			row[3] = v.Barcode
			row[4] = v.Price
			row[9] = v.InventoryQuantity
		}
		cell := fmt.Sprintf("A%d", rowNum)
		rowNum++
		return f.SetSheetRow(sheet, cell, &row)
	}

	for i := range products {
		p := &products[i]
		if len(p.Variants) == 0 {
			if err := writeRow(p, nil); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
				return
			}
			continue
		}
		for j := range p.Variants {
			if err := writeRow(p, &p.Variants[j]); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build export"})
				return
			}
		}
	}

	c.Header("Content-Disposition", `attachment; filename="catalog-export.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write export"})
	}
}
