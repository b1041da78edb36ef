// Package format holds presentation helpers: category colors and Indian
// currency formatting.
package format

import (
	"strings"

	"github.com/shopspring/decimal"
)

// palette is the fixed 10-color category palette.
var palette = [...]string{
	"#ff6b35", // saffron
	"#0d9488", // teal
	"#d4a574", // gold
	"#6366f1", // indigo
	"#10b981", // henna green
	"#f59e0b", // turmeric
	"#ec4899", // magenta
	"#3b82f6", // neel blue
	"#a855f7", // purple
	"#f97316", // deep orange
}

// PaletteSize is the number of colors in the category palette.
const PaletteSize = len(palette)

// ColorAt returns the palette color for a stable iteration position.
func ColorAt(index int) string {
	i := index % PaletteSize
	if i < 0 {
		i += PaletteSize
	}
	return palette[i]
}

// ColorFor derives a stable color from a category name. Same name, same
// color; unrelated to the color the name would get via ColorAt.
func ColorFor(name string) string {
	var hash int32
	for _, r := range name {
		hash = int32(r) + ((hash << 5) - hash)
	}
	h := int64(hash)
	if h < 0 {
		h = -h
	}
	return palette[h%int64(PaletteSize)]
}

// INR formats an amount with exactly two decimals and Indian digit grouping
// (2-3-2 lakh/crore pattern). No currency symbol; callers render that.
func INR(amount decimal.Decimal) string {
	s := amount.StringFixed(2)

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	grouped := groupIndian(intPart)

	if neg {
		return "-" + grouped + "." + frac
	}
	return grouped + "." + frac
}

// INRString formats a decimal string. Unparseable input is returned as is.
func INRString(amount string) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return amount
	}
	return INR(d)
}

// groupIndian inserts commas after the last three digits and then every two.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	head := digits[:len(digits)-3]
	tail := digits[len(digits)-3:]

	var parts []string
	for len(head) > 2 {
		parts = append([]string{head[len(head)-2:]}, parts...)
		head = head[:len(head)-2]
	}
	if head != "" {
		parts = append([]string{head}, parts...)
	}

	return strings.Join(append(parts, tail), ",")
}
