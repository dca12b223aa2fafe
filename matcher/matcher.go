package matcher

import (
	"strconv"
	"strings"

	"catalogsync-backend/dtos"
	"catalogsync-backend/models"
)

// ConflictPolicy sets the thresholds past which a matched row is held back for
// human review instead of being applied directly. Ratios are new/old; the
// boundaries themselves do not count as conflicts.
type ConflictPolicy struct {
	TitleSimilarityMin float64
	PriceDropRatio     float64
	PriceRaiseRatio    float64
}

func DefaultConflictPolicy() ConflictPolicy {
	return ConflictPolicy{
		TitleSimilarityMin: 0.8,
		PriceDropRatio:     0.8,
		PriceRaiseRatio:    1.5,
	}
}

// Matcher resolves projected rows against a catalog index.
type Matcher struct {
	Policy ConflictPolicy
}

func NewMatcher(policy ConflictPolicy) *Matcher {
	return &Matcher{Policy: policy}
}

// Match runs the lookup strategies in priority order and, on a hit, computes
// the field-level diff and the conflict verdict. A miss returns a zero-valued
// result with Matched false.
func (m *Matcher) Match(mapped *dtos.MappedData, idx *CatalogIndex) dtos.MatchResult {
	type strategy struct {
		entry      *indexEntry
		matchedBy  string
		confidence float64
	}

	var hit *strategy
	if mapped.Product.ID != nil {
		if entry := idx.lookupID(*mapped.Product.ID); entry != nil {
			hit = &strategy{entry, models.MatchedByID, 1.0}
		}
	}
	if hit == nil && mapped.Variant.SKU != nil {
		if entry := idx.lookupSKU(*mapped.Variant.SKU); entry != nil {
			hit = &strategy{entry, models.MatchedBySKU, 1.0}
		}
	}
	if hit == nil && mapped.Variant.Barcode != nil {
		if entry := idx.lookupBarcode(*mapped.Variant.Barcode); entry != nil {
			hit = &strategy{entry, models.MatchedByBarcode, 0.95}
		}
	}
	if hit == nil && mapped.Product.Title != nil {
		if entry := idx.lookupTitle(*mapped.Product.Title); entry != nil {
			hit = &strategy{entry, models.MatchedByTitle, 0.7}
		}
	}
	if hit == nil {
		return dtos.MatchResult{}
	}

	result := dtos.MatchResult{
		Matched:         true,
		MatchedBy:       hit.matchedBy,
		MatchConfidence: hit.confidence,
	}
	productID := hit.entry.Product.ID
	result.MatchedProductID = &productID
	if hit.entry.Variant != nil {
		variantID := hit.entry.Variant.ID
		result.MatchedVariantID = &variantID
	}

	result.Changes = m.diff(mapped, hit.entry)
	result.Conflict = m.isConflict(mapped, hit.entry)
	return result
}

// diff lists the fields whose projected value is present and differs from the
// catalog. Absent projected fields are not changes.
func (m *Matcher) diff(mapped *dtos.MappedData, entry *indexEntry) []dtos.FieldChange {
	var changes []dtos.FieldChange
	add := func(field, oldValue, newValue string) {
		if oldValue != newValue {
			changes = append(changes, dtos.FieldChange{Field: field, OldValue: oldValue, NewValue: newValue})
		}
	}

	p := entry.Product
	if mapped.Product.Title != nil {
		add("title", p.Title, *mapped.Product.Title)
	}
	if mapped.Product.ShortDescription != nil {
		add("short_description", p.ShortDescription, *mapped.Product.ShortDescription)
	}
	if mapped.Product.LongDescription != nil {
		add("long_description", p.LongDescription, *mapped.Product.LongDescription)
	}
	if mapped.Product.Price != nil {
		add("price", formatMinor(p.Price), formatMinor(*mapped.Product.Price))
	}
	if mapped.Product.ImageURL != nil {
		add("image_url", p.ImageURL, *mapped.Product.ImageURL)
	}
	if mapped.Product.Brand != nil {
		add("brand", p.Brand, *mapped.Product.Brand)
	}
	if mapped.Product.Category != nil {
		add("category", p.Category, *mapped.Product.Category)
	}
	if mapped.Product.Status != nil {
		add("status", p.Status, *mapped.Product.Status)
	}

	if v := entry.Variant; v != nil {
		if mapped.Variant.Title != nil {
			add("variant.title", v.Title, *mapped.Variant.Title)
		}
		if mapped.Variant.Price != nil {
			add("variant.price", formatMinor(v.Price), formatMinor(*mapped.Variant.Price))
		}
		if mapped.Variant.CompareAtPrice != nil {
			old := ""
			if v.CompareAtPrice != nil {
				old = formatMinor(*v.CompareAtPrice)
			}
			add("variant.compare_at_price", old, formatMinor(*mapped.Variant.CompareAtPrice))
		}
		if mapped.Variant.InventoryQuantity != nil {
			add("variant.inventory_quantity", strconv.Itoa(v.InventoryQuantity), strconv.Itoa(*mapped.Variant.InventoryQuantity))
		}
	}
	return changes
}

// isConflict applies the policy thresholds to the title and price deltas.
func (m *Matcher) isConflict(mapped *dtos.MappedData, entry *indexEntry) bool {
	if mapped.Product.Title != nil && entry.Product.Title != "" {
		if titleSimilarity(entry.Product.Title, *mapped.Product.Title) < m.Policy.TitleSimilarityMin {
			return true
		}
	}
	if mapped.Product.Price != nil && entry.Product.Price > 0 {
		if priceOutOfBounds(entry.Product.Price, *mapped.Product.Price, m.Policy) {
			return true
		}
	}
	if entry.Variant != nil && mapped.Variant.Price != nil && entry.Variant.Price > 0 {
		if priceOutOfBounds(entry.Variant.Price, *mapped.Variant.Price, m.Policy) {
			return true
		}
	}
	return false
}

func priceOutOfBounds(oldPrice, newPrice int64, policy ConflictPolicy) bool {
	ratio := float64(newPrice) / float64(oldPrice)
	return ratio < policy.PriceDropRatio || ratio > policy.PriceRaiseRatio
}

// titleSimilarity is the Jaccard similarity of the lowercase token sets of the
// two titles.
func titleSimilarity(a, b string) float64 {
	tokensA := tokenSet(a)
	tokensB := tokenSet(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	intersection := 0
	for token := range tokensA {
		if tokensB[token] {
			intersection++
		}
	}
	union := len(tokensA) + len(tokensB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(strings.ToLower(s)) {
		token = strings.Trim(token, ".,;:!?()[]\"'")
		if token != "" {
			set[token] = true
		}
	}
	return set
}

func formatMinor(v int64) string {
	return strconv.FormatInt(v, 10)
}
