package mapper

import (
	"testing"

	"catalogsync-backend/dtos"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cm(source, target, transformation string) dtos.ColumnMapping {
	return dtos.ColumnMapping{SourceColumn: source, TargetField: target, Confidence: 1, Transformation: transformation}
}

func TestProjectTypedFields(t *testing.T) {
	row := map[string]string{
		"sku":      "TEA-001",
		"name":     "Green Tea",
		"price":    "549",
		"currency": "usd",
		"status":   "ACTIVE",
		"qty":      "12",
		"tags":     "organic, tea",
	}
	mapping := []dtos.ColumnMapping{
		cm("sku", TargetVariantSKU, ""),
		cm("name", TargetProductTitle, ""),
		cm("price", TargetProductPrice, ""),
		cm("currency", TargetProductCurrency, ""),
		cm("status", TargetProductStatus, ""),
		cm("qty", TargetVariantQuantity, ""),
		cm("tags", TargetProductTags, ""),
	}

	mapped, errs := Project(row, mapping)
	require.Empty(t, errs)

	assert.Equal(t, "TEA-001", *mapped.Variant.SKU)
	assert.Equal(t, "Green Tea", *mapped.Product.Title)
	assert.Equal(t, int64(549), *mapped.Product.Price)
	assert.Equal(t, "USD", *mapped.Product.Currency)
	assert.Equal(t, "active", *mapped.Product.Status)
	assert.Equal(t, 12, *mapped.Variant.InventoryQuantity)
	assert.Equal(t, []string{"organic", "tea"}, mapped.Product.Tags)
}

func TestProjectPriceParsing(t *testing.T) {
	cases := []struct {
		value          string
		transformation string
		want           int64
	}{
		{"549", "", 549},
		{"5.49", "", 549},
		{"5.49", dtos.TransformMultiplyBy100, 549},
		{"9,99", dtos.TransformMultiplyBy100, 999},
		{"10", dtos.TransformMultiplyBy100, 1000},
	}
	for _, tc := range cases {
		mapped, errs := Project(
			map[string]string{"sku": "A-1", "price": tc.value},
			[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("price", TargetProductPrice, tc.transformation)},
		)
		require.Empty(t, errs, tc.value)
		assert.Equal(t, tc.want, *mapped.Product.Price, "%s/%s", tc.value, tc.transformation)
	}
}

func TestProjectInvalidPriceReported(t *testing.T) {
	mapped, errs := Project(
		map[string]string{"sku": "A-1", "price": "free!"},
		[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("price", TargetProductPrice, "")},
	)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `column "price"`)
	assert.Nil(t, mapped.Product.Price)
	assert.NotNil(t, mapped.Variant.SKU)
}

func TestProjectSkipsEmptyCells(t *testing.T) {
	mapped, errs := Project(
		map[string]string{"sku": "A-1", "price": "  "},
		[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("price", TargetProductPrice, "")},
	)

	assert.Empty(t, errs)
	assert.Nil(t, mapped.Product.Price)
}

func TestProjectRequiresTitleOrSKU(t *testing.T) {
	_, errs := Project(
		map[string]string{"price": "549"},
		[]dtos.ColumnMapping{cm("price", TargetProductPrice, "")},
	)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "neither a product title nor a variant SKU")
}

func TestProjectExtraFieldRouting(t *testing.T) {
	mapped, errs := Project(
		map[string]string{"sku": "A-1", "weight": "1.2", "policy": "deny"},
		[]dtos.ColumnMapping{
			cm("sku", TargetVariantSKU, ""),
			cm("weight", TargetProductWeight, ""),
			cm("policy", TargetVariantPolicy, ""),
		},
	)

	require.Empty(t, errs)
	assert.Equal(t, "1.2", mapped.Product.Extra["weight"])
	assert.Equal(t, "deny", mapped.Variant.Extra["inventory_policy"])
}

func TestProjectAttributesDecodeJSONObject(t *testing.T) {
	mapped, errs := Project(
		map[string]string{"sku": "A-1", "attrs": `{"color":"red","weight":1.2,"sizes":["S","M"]}`},
		[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("attrs", TargetProductAttrs, "")},
	)

	require.Empty(t, errs)
	assert.Equal(t, "red", mapped.Product.Extra["color"])
	assert.Equal(t, "1.2", mapped.Product.Extra["weight"])
	assert.Equal(t, `["S","M"]`, mapped.Product.Extra["sizes"])
}

func TestProjectAttributesKeepRawWhenNotJSON(t *testing.T) {
	mapped, errs := Project(
		map[string]string{"sku": "A-1", "attrs": "color=red; size=XL"},
		[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("attrs", TargetProductAttrs, "")},
	)

	require.Empty(t, errs)
	assert.Equal(t, "color=red; size=XL", mapped.Product.Extra["attributes"])
}

func TestProjectUnknownTargetReported(t *testing.T) {
	_, errs := Project(
		map[string]string{"sku": "A-1", "x": "y"},
		[]dtos.ColumnMapping{cm("sku", TargetVariantSKU, ""), cm("x", "nonsense", "")},
	)

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "unknown target field")
}

func TestParseTagsJSONArray(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseTags(`["a","b"]`))
	assert.Equal(t, []string{"a", "b"}, parseTags("a, b,"))
}
