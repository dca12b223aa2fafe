package mapper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"catalogsync-backend/dtos"
)

// Project applies a column mapping to one raw row and returns the typed
// projection plus any validation errors found along the way. Empty cell
// values are skipped entirely so partial rows stay partial instead of
// overwriting catalog fields with blanks.
func Project(row map[string]string, mapping []dtos.ColumnMapping) (*dtos.MappedData, []string) {
	mapped := &dtos.MappedData{}
	var validationErrs []string

	for _, cm := range mapping {
		value := strings.TrimSpace(row[cm.SourceColumn])
		if value == "" {
			continue
		}
		if err := assignField(mapped, cm.TargetField, value, cm.Transformation); err != nil {
			validationErrs = append(validationErrs, fmt.Sprintf("column %q: %v", cm.SourceColumn, err))
		}
	}

	if mapped.Product.Title == nil && mapped.Variant.SKU == nil {
		validationErrs = append(validationErrs, "row has neither a product title nor a variant SKU")
	}

	return mapped, validationErrs
}

func assignField(mapped *dtos.MappedData, target, value, transformation string) error {
	switch target {
	case TargetProductID:
		mapped.Product.ID = &value
	case TargetProductTitle:
		mapped.Product.Title = &value
	case TargetProductShortDesc:
		mapped.Product.ShortDescription = &value
	case TargetProductLongDesc:
		mapped.Product.LongDescription = &value
	case TargetProductPrice:
		price, err := parsePrice(value, transformation)
		if err != nil {
			return err
		}
		mapped.Product.Price = &price
	case TargetProductCurrency:
		upper := strings.ToUpper(value)
		mapped.Product.Currency = &upper
	case TargetProductImage:
		mapped.Product.ImageURL = &value
	case TargetProductStatus:
		lower := strings.ToLower(value)
		mapped.Product.Status = &lower
	case TargetProductBrand:
		mapped.Product.Brand = &value
	case TargetProductCategory, TargetProductType:
		mapped.Product.Category = &value
	case TargetProductTags:
		mapped.Product.Tags = parseTags(value)
	case TargetProductAttrs:
		if mapped.Product.Extra == nil {
			mapped.Product.Extra = make(map[string]string)
		}
		attrs, ok := parseAttributes(value)
		if !ok {
			mapped.Product.Extra["attributes"] = value
			return nil
		}
		for k, v := range attrs {
			mapped.Product.Extra[k] = v
		}
	case TargetVariantSKU:
		mapped.Variant.SKU = &value
	case TargetVariantBarcode:
		mapped.Variant.Barcode = &value
	case TargetVariantPrice:
		price, err := parsePrice(value, transformation)
		if err != nil {
			return err
		}
		mapped.Variant.Price = &price
	case TargetVariantCompareAt:
		price, err := parsePrice(value, transformation)
		if err != nil {
			return err
		}
		mapped.Variant.CompareAtPrice = &price
	case TargetVariantQuantity:
		qty, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("inventory quantity %q is not an integer", value)
		}
		mapped.Variant.InventoryQuantity = &qty
	default:
		// Unknown or passthrough targets keep their value in Extra under the
		// dot-path suffix, attached to whichever side the prefix names.
		name, ok := strings.CutPrefix(target, "variant.")
		if ok {
			if mapped.Variant.Extra == nil {
				mapped.Variant.Extra = make(map[string]string)
			}
			mapped.Variant.Extra[name] = value
			return nil
		}
		name, ok = strings.CutPrefix(target, "product.")
		if !ok {
			return fmt.Errorf("unknown target field %q", target)
		}
		if mapped.Product.Extra == nil {
			mapped.Product.Extra = make(map[string]string)
		}
		mapped.Product.Extra[name] = value
	}
	return nil
}

// parsePrice converts a raw cell into minor currency units. Values without the
// multiply_by_100 transformation are expected to already be minor units, but a
// decimal value there is still treated as major units rather than rejected.
func parsePrice(value, transformation string) (int64, error) {
	if transformation == dtos.TransformMultiplyBy100 {
		major, err := parseDecimal(value)
		if err != nil {
			return 0, fmt.Errorf("price %q is not a number", value)
		}
		return int64(major*100 + 0.5), nil
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n, nil
	}
	major, err := parseDecimal(value)
	if err != nil {
		return 0, fmt.Errorf("price %q is not a number", value)
	}
	return int64(major*100 + 0.5), nil
}

// parseDecimal accepts both "9.99" and the comma form "9,99" common in
// European exports.
func parseDecimal(value string) (float64, error) {
	normalized := strings.ReplaceAll(value, " ", "")
	if strings.Count(normalized, ",") == 1 && !strings.Contains(normalized, ".") {
		normalized = strings.Replace(normalized, ",", ".", 1)
	}
	return strconv.ParseFloat(normalized, 64)
}

// parseAttributes decodes a JSON object of attributes into flat string pairs.
// Anything that is not a JSON object reports false so the caller keeps the
// raw value instead.
func parseAttributes(value string) (map[string]string, bool) {
	if !strings.HasPrefix(strings.TrimSpace(value), "{") {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(value))
	dec.UseNumber()
	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			attrs[k] = t
		case json.Number:
			attrs[k] = t.String()
		default:
			b, _ := json.Marshal(v)
			attrs[k] = string(b)
		}
	}
	return attrs, true
}

// parseTags takes either a JSON array or a comma-separated list.
func parseTags(value string) []string {
	if strings.HasPrefix(value, "[") {
		var tags []string
		if err := json.Unmarshal([]byte(value), &tags); err == nil {
			return tags
		}
	}
	var tags []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
