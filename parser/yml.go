package parser

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
)

// offerPaths are the known nesting paths searched for the repeated offer
// record in price-list XML dialects, outermost first.
var offerPaths = [][]string{
	{"yml_catalog", "shop", "offers", "offer"},
	{"shop", "offers", "offer"},
	{"offers", "offer"},
	{"catalog", "offers", "offer"},
}

// offerFieldSynonyms flattens the tag-name dialects of price feeds onto one
// normalized column per field.
var offerFieldSynonyms = map[string]string{
	"name":        "name",
	"model":       "name",
	"title":       "name",
	"vendor":      "vendor",
	"brand":       "vendor",
	"vendorcode":  "sku",
	"vendor_code": "sku",
	"sku":         "sku",
	"article":     "sku",
	"barcode":     "barcode",
	"ean":         "barcode",
	"price":       "price",
	"oldprice":    "old_price",
	"old_price":   "old_price",
	"currencyid":  "currency",
	"currency":    "currency",
	"picture":     "picture",
	"image":       "picture",
	"description": "description",
	"categoryid":  "category_id",
	"category":    "category_id",
	"count":       "quantity",
	"quantity":    "quantity",
	"stock":       "quantity",
	"url":         "url",
}

// ymlNode is a generic XML element tree.
type ymlNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Content  string     `xml:",chardata"`
	Children []ymlNode  `xml:",any"`
}

// YMLParser decodes hierarchical price-list feeds (YML and similar XML
// dialects) into flat records: known tag synonyms map onto normalized keys
// and arbitrary <param name="..."> blocks collapse into one JSON-encoded
// "params" field.
type YMLParser struct{}

func (p *YMLParser) Formats() []string {
	return []string{FormatYML}
}

func (p *YMLParser) Parse(data []byte, opts Options) (*ParseResult, error) {
	var root ymlNode
	if err := xml.Unmarshal(bytes.TrimSpace(data), &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	offers := findOffers(&root)
	if len(offers) == 0 {
		return nil, fmt.Errorf("%w: no offer records found", ErrMalformedInput)
	}

	records := make([]map[string]interface{}, 0, len(offers))
	var keyOrder []string
	seenKeys := make(map[string]bool)
	addKey := func(k string) {
		if !seenKeys[k] {
			seenKeys[k] = true
			keyOrder = append(keyOrder, k)
		}
	}

	for _, offer := range offers {
		rec := map[string]interface{}{}

		for _, attr := range offer.Attrs {
			key := strings.ToLower(attr.Name.Local)
			rec[key] = attr.Value
			addKey(key)
		}

		params := map[string]string{}
		for _, child := range offer.Children {
			tag := strings.ToLower(child.XMLName.Local)
			if tag == "param" {
				name := ""
				for _, attr := range child.Attrs {
					if strings.ToLower(attr.Name.Local) == "name" {
						name = attr.Value
					}
				}
				if name != "" {
					params[name] = strings.TrimSpace(child.Content)
				}
				continue
			}

			key, ok := offerFieldSynonyms[tag]
			if !ok {
				key = tag
			}
			value := strings.TrimSpace(child.Content)
			// First occurrence wins so a synonym never overwrites a primary tag.
			if _, exists := rec[key]; !exists || value != "" && rec[key] == "" {
				rec[key] = value
			}
			addKey(key)
		}

		if len(params) > 0 {
			b, err := json.Marshal(params)
			if err == nil {
				rec["params"] = string(b)
				addKey("params")
			}
		}

		records = append(records, rec)
	}

	result := recordsToResult(records, keyOrder, opts.MaxRows)
	result.Metadata = map[string]string{
		"root": root.XMLName.Local,
	}
	return result, nil
}

// findOffers walks the known nesting paths; when none hits it falls back to a
// tree search for any repeated <offer> element.
func findOffers(root *ymlNode) []*ymlNode {
	for _, path := range offerPaths {
		if strings.ToLower(root.XMLName.Local) != path[0] {
			continue
		}
		if offers := walkPath(root, path[1:]); len(offers) > 0 {
			return offers
		}
	}

	var offers []*ymlNode
	collectByName(root, "offer", &offers)
	return offers
}

func walkPath(node *ymlNode, path []string) []*ymlNode {
	if len(path) == 0 {
		return []*ymlNode{node}
	}

	var found []*ymlNode
	for i := range node.Children {
		child := &node.Children[i]
		if strings.ToLower(child.XMLName.Local) == path[0] {
			found = append(found, walkPath(child, path[1:])...)
		}
	}
	return found
}

func collectByName(node *ymlNode, name string, out *[]*ymlNode) {
	for i := range node.Children {
		child := &node.Children[i]
		if strings.ToLower(child.XMLName.Local) == name {
			*out = append(*out, child)
			continue
		}
		collectByName(child, name, out)
	}
}
