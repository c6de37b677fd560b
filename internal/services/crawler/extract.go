package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/ternarybob/stockscope/internal/models"
	"github.com/ternarybob/stockscope/internal/services/availability"
)

// ExtractStock parses a product page into color/size variants. JSON-LD
// Product offers are preferred; Shopify product JSON is the fallback.
// Returns ErrNoStockData when neither yields a variant.
func ExtractStock(html string) ([]models.RawVariant, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	if variants := extractJSONLD(doc); len(variants) > 0 {
		return variants, nil
	}
	if variants := extractShopifyJSON(doc); len(variants) > 0 {
		return variants, nil
	}
	return nil, ErrNoStockData
}

// HasAvailable reports whether any variant is explicitly in stock.
func HasAvailable(variants []models.RawVariant) bool {
	for _, v := range variants {
		if models.StatusFromValue(v.Available).IsAvailable() {
			return true
		}
	}
	return false
}

func extractJSONLD(doc *goquery.Document) []models.RawVariant {
	var variants []models.RawVariant
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" || !gjson.Valid(text) {
			return
		}
		for _, product := range productNodes(gjson.Parse(text)) {
			variants = append(variants, productVariants(product)...)
		}
	})
	return variants
}

// productNodes flattens top-level arrays and @graph containers into the
// Product / ProductGroup nodes they hold.
func productNodes(node gjson.Result) []gjson.Result {
	if node.IsArray() {
		var out []gjson.Result
		for _, item := range node.Array() {
			out = append(out, productNodes(item)...)
		}
		return out
	}
	if !node.IsObject() {
		return nil
	}

	fields := node.Map()
	if graph, ok := fields["@graph"]; ok {
		return productNodes(graph)
	}
	if hasType(fields["@type"], "Product") || hasType(fields["@type"], "ProductGroup") {
		return []gjson.Result{node}
	}
	return nil
}

// hasType matches "@type" given as a string or a list of strings.
func hasType(t gjson.Result, want string) bool {
	if t.IsArray() {
		for _, v := range t.Array() {
			if v.String() == want {
				return true
			}
		}
		return false
	}
	return t.String() == want
}

func productVariants(product gjson.Result) []models.RawVariant {
	var out []models.RawVariant

	if group := product.Get("hasVariant"); group.IsArray() {
		for _, v := range group.Array() {
			out = append(out, productVariants(v)...)
		}
		return out
	}

	color := product.Get("color").String()
	size := product.Get("size").String()

	for _, offer := range offerNodes(product.Get("offers")) {
		offerColor, offerSize := color, size
		if c := offer.Get("color").String(); c != "" {
			offerColor = c
		}
		if sz := offer.Get("size").String(); sz != "" {
			offerSize = sz
		}
		if offerColor == "" || offerSize == "" {
			c, sz := splitVariantName(offer.Get("name").String())
			if c == "" {
				c, sz = splitVariantName(offer.Get("sku").String())
			}
			if offerColor == "" {
				offerColor = c
			}
			if offerSize == "" {
				offerSize = sz
			}
		}
		if offerColor == "" || offerSize == "" {
			continue
		}
		out = append(out, models.RawVariant{
			Color:     strings.TrimSpace(offerColor),
			Size:      availability.NormalizeSizeToken(offerSize),
			Available: offerAvailability(offer.Get("availability")),
		})
	}
	return out
}

// offerNodes accepts a single Offer, a list of offers or an AggregateOffer.
func offerNodes(offers gjson.Result) []gjson.Result {
	switch {
	case offers.IsArray():
		return offers.Array()
	case offers.IsObject():
		if nested := offers.Get("offers"); nested.Exists() {
			return offerNodes(nested)
		}
		return []gjson.Result{offers}
	}
	return nil
}

// offerAvailability maps schema.org availability: InStock is true, any other
// value is false, a missing value stays unknown.
func offerAvailability(a gjson.Result) interface{} {
	value := strings.TrimSpace(a.String())
	if !a.Exists() || value == "" {
		return nil
	}
	return strings.Contains(value, "InStock")
}

// splitVariantName splits "Black / M". Extra segments after the size are ignored.
func splitVariantName(name string) (string, string) {
	parts := strings.Split(name, " / ")
	if len(parts) < 2 {
		return "", ""
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
}

// extractShopifyJSON reads the product JSON Shopify themes embed, either as
// the document root or under "product".
func extractShopifyJSON(doc *goquery.Document) []models.RawVariant {
	var variants []models.RawVariant
	doc.Find(`script[type="application/json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text == "" || !gjson.Valid(text) {
			return true
		}
		product := gjson.Parse(text)
		if !product.Get("variants").IsArray() {
			product = product.Get("product")
		}
		if !product.Get("variants").IsArray() {
			return true
		}
		variants = shopifyVariants(product)
		return len(variants) == 0
	})
	return variants
}

func shopifyVariants(product gjson.Result) []models.RawVariant {
	colorKey, sizeKey := "option1", "option2"
	if options := product.Get("options"); options.IsArray() && len(options.Array()) >= 2 {
		first := options.Array()[0]
		name := first.String()
		if first.IsObject() {
			name = first.Get("name").String()
		}
		if strings.Contains(strings.ToLower(name), "size") {
			colorKey, sizeKey = "option2", "option1"
		}
	}

	var out []models.RawVariant
	for _, v := range product.Get("variants").Array() {
		color := strings.TrimSpace(v.Get(colorKey).String())
		size := strings.TrimSpace(v.Get(sizeKey).String())
		if color == "" || size == "" {
			continue
		}
		var available interface{}
		if a := v.Get("available"); a.Exists() {
			available = a.Bool()
		}
		out = append(out, models.RawVariant{
			Color:     color,
			Size:      availability.NormalizeSizeToken(size),
			Available: available,
		})
	}
	return out
}
