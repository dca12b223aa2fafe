package dtos

// Transformation identifiers a ColumnMapping may declare.
const (
	TransformMultiplyBy100 = "multiply_by_100"
)

// ColumnMapping declares how one source column maps onto the target
// product/variant schema. TargetField is a dot-path such as "product.title"
// or "variant.sku".
type ColumnMapping struct {
	SourceColumn   string  `json:"source_column" binding:"required"`
	TargetField    string  `json:"target_field" binding:"required"`
	Confidence     float64 `json:"confidence"`
	Transformation string  `json:"transformation,omitempty"`
}

// AnalysisResult is the outcome of column analysis, attached to the session
// once produced and mutable only through the mapping-update operation.
type AnalysisResult struct {
	DetectedColumns []string            `json:"detected_columns"`
	ColumnMapping   []ColumnMapping     `json:"column_mapping"`
	Suggestions     []string            `json:"suggestions,omitempty"`
	Warnings        []string            `json:"warnings,omitempty"`
	SampleData      []map[string]string `json:"sample_data,omitempty"`
}

// ProductFields is the typed product half of a projected row. Known fields are
// strongly typed; vendor-specific extras land in Extra.
type ProductFields struct {
	ID               *string           `json:"id,omitempty"`
	Title            *string           `json:"title,omitempty"`
	ShortDescription *string           `json:"short_description,omitempty"`
	LongDescription  *string           `json:"long_description,omitempty"`
	Price            *int64            `json:"price,omitempty"`
	Currency         *string           `json:"currency,omitempty"`
	ImageURL         *string           `json:"image_url,omitempty"`
	Status           *string           `json:"status,omitempty"`
	Brand            *string           `json:"brand,omitempty"`
	Category         *string           `json:"category,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// VariantFields is the typed variant half of a projected row.
type VariantFields struct {
	SKU               *string           `json:"sku,omitempty"`
	Barcode           *string           `json:"barcode,omitempty"`
	Title             *string           `json:"title,omitempty"`
	Price             *int64            `json:"price,omitempty"`
	CompareAtPrice    *int64            `json:"compare_at_price,omitempty"`
	InventoryQuantity *int              `json:"inventory_quantity,omitempty"`
	Extra             map[string]string `json:"extra,omitempty"`
}

// MappedData is the projected (product-fields, variant-fields) payload of one row.
type MappedData struct {
	Product ProductFields `json:"product"`
	Variant VariantFields `json:"variant"`
}

// IsEmpty reports whether the projection produced no values at all.
func (m *MappedData) IsEmpty() bool {
	p, v := m.Product, m.Variant
	return p.ID == nil && p.Title == nil && p.ShortDescription == nil && p.LongDescription == nil &&
		p.Price == nil && p.Currency == nil && p.ImageURL == nil && p.Status == nil &&
		p.Brand == nil && p.Category == nil && len(p.Tags) == 0 && len(p.Extra) == 0 &&
		v.SKU == nil && v.Barcode == nil && v.Title == nil && v.Price == nil &&
		v.CompareAtPrice == nil && v.InventoryQuantity == nil && len(v.Extra) == 0
}
