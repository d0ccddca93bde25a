package openfoodfacts

import (
	"encoding/json"
	"strings"
)

// ProductResponse is the v0 product endpoint payload
type ProductResponse struct {
	Code    string   `json:"code"`
	Status  int      `json:"status"`
	Product *Product `json:"product,omitempty"`
}

// Product holds the fields we read from an Open Food Facts product.
// Localized names arrive as product_name_<lang> and are collected separately.
type Product struct {
	ProductName   string `json:"product_name"`
	GenericName   string `json:"generic_name"`
	Brands        string `json:"brands"`
	ImageURL      string `json:"image_url"`
	ImageFrontURL string `json:"image_front_url"`

	localizedNames map[string]string
}

// UnmarshalJSON keeps the product_name_<lang> variants
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var base plain
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Product(base)
	for key, value := range raw {
		lang, ok := strings.CutPrefix(key, "product_name_")
		if !ok {
			continue
		}
		if s, ok := value.(string); ok {
			if p.localizedNames == nil {
				p.localizedNames = make(map[string]string)
			}
			p.localizedNames[lang] = s
		}
	}
	return nil
}

// LocalizedName returns product_name_<lang>, if present
func (p *Product) LocalizedName(lang string) string {
	return strings.TrimSpace(p.localizedNames[lang])
}

// ProductName picks the display name: the localized name, then the default
// name, then the generic name, then the first listed brand
func ProductName(p *Product, lang string) string {
	if p == nil {
		return ""
	}
	if lang != "" {
		if name := p.LocalizedName(lang); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(p.ProductName); name != "" {
		return name
	}
	if name := strings.TrimSpace(p.GenericName); name != "" {
		return name
	}
	return FirstBrand(p.Brands)
}

// FirstBrand returns the first entry of a comma separated brand list
func FirstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}
