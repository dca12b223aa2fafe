package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a merchant-scoped catalog entry. Prices are stored in minor
// currency units.
type Product struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	MerchantID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"merchant_id"`
	Title            string           `gorm:"not null" json:"title"`
	ShortDescription string           `json:"short_description"`
	LongDescription  string           `json:"long_description"`
	Price            int64            `gorm:"default:0" json:"price"`
	Currency         string           `gorm:"default:USD" json:"currency"`
	ImageURL         string           `json:"image_url"`
	Status           string           `gorm:"default:active" json:"status"`
	Brand            string           `json:"brand"`
	Category         string           `json:"category"`
	Tags             string           `json:"tags"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
	Variants         []ProductVariant `gorm:"foreignKey:ProductID" json:"variants,omitempty"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
