package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is a sellable unit of a product, keyed by SKU and barcode.
// Prices are stored in minor currency units.
type ProductVariant struct {
	ID                uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ProductID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"product_id"`
	MerchantID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"merchant_id"`
	SKU               string         `gorm:"index" json:"sku"`
	Barcode           string         `gorm:"index" json:"barcode"`
	Title             string         `json:"title"`
	Price             int64          `gorm:"default:0" json:"price"`
	CompareAtPrice    *int64         `json:"compare_at_price,omitempty"`
	InventoryQuantity int            `gorm:"default:0" json:"inventory_quantity"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
