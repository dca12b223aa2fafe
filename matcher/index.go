package matcher

import (
	"strings"

	"github.com/google/uuid"

	"catalogsync-backend/models"
)

// indexEntry pairs a product with the specific variant a lookup key resolved
// to. Variant is nil for title and id lookups that hit the product directly.
type indexEntry struct {
	Product *models.Product
	Variant *models.ProductVariant
}

// CatalogIndex holds a merchant's catalog keyed for the lookups one matching
// pass performs. SKU, barcode and title keys are case-insensitive; on
// duplicate titles the last product loaded wins.
type CatalogIndex struct {
	byID      map[uuid.UUID]*indexEntry
	bySKU     map[string]*indexEntry
	byBarcode map[string]*indexEntry
	byTitle   map[string]*indexEntry
}

// BuildIndex indexes the given products and their variants. Products are not
// copied, so the slice must stay alive as long as the index does.
func BuildIndex(products []models.Product) *CatalogIndex {
	idx := &CatalogIndex{
		byID:      make(map[uuid.UUID]*indexEntry, len(products)),
		bySKU:     make(map[string]*indexEntry),
		byBarcode: make(map[string]*indexEntry),
		byTitle:   make(map[string]*indexEntry, len(products)),
	}
	for i := range products {
		p := &products[i]
		idx.byID[p.ID] = &indexEntry{Product: p}
		if title := normalizeKey(p.Title); title != "" {
			idx.byTitle[title] = &indexEntry{Product: p}
		}
		for j := range p.Variants {
			v := &p.Variants[j]
			entry := &indexEntry{Product: p, Variant: v}
			if sku := normalizeKey(v.SKU); sku != "" {
				idx.bySKU[sku] = entry
			}
			if barcode := normalizeKey(v.Barcode); barcode != "" {
				idx.byBarcode[barcode] = entry
			}
		}
	}
	return idx
}

func (idx *CatalogIndex) lookupID(raw string) *indexEntry {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return idx.byID[id]
}

func (idx *CatalogIndex) lookupSKU(sku string) *indexEntry {
	return idx.bySKU[normalizeKey(sku)]
}

func (idx *CatalogIndex) lookupBarcode(barcode string) *indexEntry {
	return idx.byBarcode[normalizeKey(barcode)]
}

func (idx *CatalogIndex) lookupTitle(title string) *indexEntry {
	return idx.byTitle[normalizeKey(title)]
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
