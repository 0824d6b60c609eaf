package inventory

import "strings"

// DefaultVariantKey is used for products sold without selectable attributes.
const DefaultVariantKey = "default"

// VariantKey composes the stock key from the selectable attributes. Parts
// are joined in a fixed order so "Black"+"M" and a stored "Black-M" row
// always line up.
func VariantKey(color, size string) string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(color); c != "" {
		parts = append(parts, c)
	}
	if s := strings.TrimSpace(size); s != "" {
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return DefaultVariantKey
	}
	return strings.Join(parts, "-")
}
