package mapper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"catalogsync-backend/dtos"
)

// Target schema field paths the mapper may assign.
const (
	TargetProductID        = "product.id"
	TargetProductTitle     = "product.title"
	TargetProductType      = "product.type"
	TargetProductStatus    = "product.status"
	TargetProductShortDesc = "product.short_description"
	TargetProductLongDesc  = "product.long_description"
	TargetProductPrice     = "product.price"
	TargetProductCurrency  = "product.currency"
	TargetProductImage     = "product.image_url"
	TargetProductCategory  = "product.category"
	TargetProductTags      = "product.tags"
	TargetProductBrand     = "product.brand"
	TargetProductWeight    = "product.weight"
	TargetProductSlug      = "product.slug"
	TargetProductSEOTitle  = "product.seo_title"
	TargetProductSEODesc   = "product.seo_description"
	TargetProductAttrs     = "product.attributes"

	TargetVariantSKU       = "variant.sku"
	TargetVariantBarcode   = "variant.barcode"
	TargetVariantPrice     = "variant.price"
	TargetVariantCompareAt = "variant.compare_at_price"
	TargetVariantQuantity  = "variant.inventory_quantity"
	TargetVariantPolicy    = "variant.inventory_policy"
	TargetVariantShipping  = "variant.requires_shipping"
	TargetVariantTaxable   = "variant.taxable"
)

// fieldPattern is one row of the ordered inference table: the first pattern
// that matches a column name wins the column for its target field.
type fieldPattern struct {
	Target     string
	Confidence float64
	Pattern    *regexp.Regexp
}

// minorUnitPrice matches column names that already denote minor-unit prices;
// such columns never get a scaling transformation.
var minorUnitPrice = regexp.MustCompile(`(?i)(cents|minor|kopek|копе[йе])`)

// defaultPatterns is the deterministic inference table. Order matters: more
// specific names (SKU, barcode, compare-at) come before the generic ones they
// would otherwise shadow. Synonyms cover English and Russian feed headers.
var defaultPatterns = []fieldPattern{
	{TargetVariantSKU, 0.95, regexp.MustCompile(`(?i)^(sku|артикул|vendor[_ ]?code|vendorcode|article|item[_ ]?code)$`)},
	{TargetVariantBarcode, 0.95, regexp.MustCompile(`(?i)^(barcode|ean|ean13|upc|gtin|штрих[- ]?код)$`)},
	{TargetProductID, 0.9, regexp.MustCompile(`(?i)^(id|product[_ ]?id|external[_ ]?id|uuid|guid)$`)},
	{TargetVariantCompareAt, 0.9, regexp.MustCompile(`(?i)^(compare[_ ]?at[_ ]?price|old[_ ]?price|oldprice|was[_ ]?price|msrp|старая[_ ]?цена)$`)},
	{TargetProductPrice, 0.9, regexp.MustCompile(`(?i)^(price[_ ]?(cents|minor)|amount[_ ]?cents)$`)},
	{TargetProductPrice, 0.9, regexp.MustCompile(`(?i)^(price|retail[_ ]?price|sale[_ ]?price|unit[_ ]?price|цена|стоимость)$`)},
	{TargetProductCurrency, 0.9, regexp.MustCompile(`(?i)^(currency|currency[_ ]?(code|id)|валюта)$`)},
	{TargetProductTitle, 0.95, regexp.MustCompile(`(?i)^(title|name|product[_ ]?name|item[_ ]?name|наименование|название|товар)$`)},
	{TargetProductType, 0.85, regexp.MustCompile(`(?i)^(type|product[_ ]?type|тип)$`)},
	{TargetProductStatus, 0.85, regexp.MustCompile(`(?i)^(status|state|статус|published|visibility)$`)},
	{TargetProductShortDesc, 0.85, regexp.MustCompile(`(?i)^(short[_ ]?desc(ription)?|summary|excerpt|кратк(ое|ая)[_ ]?описание)$`)},
	{TargetProductLongDesc, 0.85, regexp.MustCompile(`(?i)^(desc(ription)?|long[_ ]?desc(ription)?|body|body[_ ]?html|details|описание)$`)},
	{TargetProductImage, 0.85, regexp.MustCompile(`(?i)^(image|image[_ ]?url|img|picture|photo|main[_ ]?image|изображение|картинка|фото)$`)},
	{TargetProductCategory, 0.85, regexp.MustCompile(`(?i)^(category|category[_ ]?(id|name)|collection|категория|раздел)$`)},
	{TargetProductTags, 0.8, regexp.MustCompile(`(?i)^(tags|keywords|labels|теги|метки)$`)},
	{TargetProductBrand, 0.85, regexp.MustCompile(`(?i)^(brand|vendor|manufacturer|maker|бренд|производитель)$`)},
	{TargetProductWeight, 0.8, regexp.MustCompile(`(?i)^(weight|weight[_ ]?(kg|g)|вес|масса)$`)},
	{TargetProductSlug, 0.8, regexp.MustCompile(`(?i)^(slug|handle|url[_ ]?key|permalink)$`)},
	{TargetProductSEOTitle, 0.8, regexp.MustCompile(`(?i)^(seo[_ ]?title|meta[_ ]?title)$`)},
	{TargetProductSEODesc, 0.8, regexp.MustCompile(`(?i)^(seo[_ ]?desc(ription)?|meta[_ ]?desc(ription)?)$`)},
	{TargetVariantQuantity, 0.85, regexp.MustCompile(`(?i)^(qty|quantity|stock|count|inventory|stock[_ ]?quantity|inventory[_ ]?quantity|количество|остаток)$`)},
	{TargetVariantPolicy, 0.8, regexp.MustCompile(`(?i)^(inventory[_ ]?policy)$`)},
	{TargetVariantShipping, 0.75, regexp.MustCompile(`(?i)^(requires[_ ]?shipping|shipping|доставка)$`)},
	{TargetVariantTaxable, 0.75, regexp.MustCompile(`(?i)^(taxable|tax|vat|ндс)$`)},
	{TargetProductAttrs, 0.7, regexp.MustCompile(`(?i)^(attrs|attributes|params|parameters|properties|options|свойства|параметры)$`)},
}

// structurally important fields: their absence is surfaced, never fatal.
// Kept as an ordered slice so warnings come out in a stable order.
var requiredTargets = []struct {
	Target string
	Label  string
}{
	{TargetVariantSKU, "a stable identifier (SKU)"},
	{TargetProductTitle, "a product title"},
	{TargetProductPrice, "a price"},
}

// priceTargets are the fields the minor-unit heuristic applies to.
var priceTargets = map[string]bool{
	TargetProductPrice:     true,
	TargetVariantPrice:     true,
	TargetVariantCompareAt: true,
}

// PatternAnalyzer is the deterministic column-mapping strategy: an ordered
// regex table evaluated once per column, first match wins.
type PatternAnalyzer struct {
	patterns []fieldPattern
}

// NewPatternAnalyzer uses the built-in inference table.
func NewPatternAnalyzer() *PatternAnalyzer {
	return &PatternAnalyzer{patterns: defaultPatterns}
}

func (a *PatternAnalyzer) Name() string { return "pattern" }

func (a *PatternAnalyzer) Analyze(columns []string, sampleRows []map[string]string) (*dtos.AnalysisResult, error) {
	result := &dtos.AnalysisResult{
		DetectedColumns: columns,
		SampleData:      sample(sampleRows),
	}

	patterns := a.patterns
	if len(patterns) == 0 {
		patterns = defaultPatterns
	}

	takenTargets := make(map[string]bool)
	var unmapped []string

	for _, col := range columns {
		name := strings.TrimSpace(col)
		mapped := false

		for _, fp := range patterns {
			if takenTargets[fp.Target] {
				continue
			}
			if !fp.Pattern.MatchString(name) {
				continue
			}

			cm := dtos.ColumnMapping{
				SourceColumn: col,
				TargetField:  fp.Target,
				Confidence:   fp.Confidence,
			}

			if priceTargets[fp.Target] && !minorUnitPrice.MatchString(name) && looksLikeMajorUnits(col, sampleRows) {
				cm.Transformation = dtos.TransformMultiplyBy100
				result.Suggestions = append(result.Suggestions,
					fmt.Sprintf("Column %q looks like major currency units; values will be converted to minor units (x100)", col))
			}

			result.ColumnMapping = append(result.ColumnMapping, cm)
			takenTargets[fp.Target] = true
			mapped = true
			break
		}

		if !mapped {
			unmapped = append(unmapped, col)
		}
	}

	for _, col := range unmapped {
		result.Warnings = append(result.Warnings, fmt.Sprintf("Column %q could not be mapped to a known field", col))
	}
	for _, rt := range requiredTargets {
		if !takenTargets[rt.Target] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("No column mapped to %s (%s)", rt.Label, rt.Target))
		}
	}

	return result, nil
}

// looksLikeMajorUnits inspects sampled values of a price column: a decimal
// separator or a small numeric magnitude indicates major currency units.
func looksLikeMajorUnits(col string, sampleRows []map[string]string) bool {
	const minorUnitThreshold = 10000

	sawValue := false
	for _, row := range sampleRows {
		v := strings.TrimSpace(row[col])
		if v == "" {
			continue
		}
		sawValue = true

		if strings.ContainsAny(v, ".,") {
			return true
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n < minorUnitThreshold {
			return true
		}
	}

	// Without sample evidence, assume major units: merchant files carry
	// human-readable prices far more often than minor-unit integers.
	return !sawValue
}
