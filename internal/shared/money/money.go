// Package money formats Kenyan Shilling amounts for display. Prices are
// stored as plain floats and only formatted at the presentation edge.
package money

import (
	"fmt"
	"strings"
)

// PriceOnRequest is shown when a service has no published pricing.
const PriceOnRequest = "Price on request"

// FormatKsh renders an amount as "Ksh 25,000". Fractions are dropped since
// studio packages are priced in whole shillings.
func FormatKsh(amount float64) string {
	return "Ksh " + group(amount)
}

// FormatKshRange renders a price band for display. Either bound may be
// missing.
func FormatKshRange(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		if *min == *max {
			return FormatKsh(*min)
		}
		return fmt.Sprintf("Ksh %s – %s", group(*min), group(*max))
	case min != nil:
		return "From " + FormatKsh(*min)
	case max != nil:
		return "Up to " + FormatKsh(*max)
	default:
		return PriceOnRequest
	}
}

// group renders the integer part of amount with thousands separators.
func group(amount float64) string {
	s := fmt.Sprintf("%.0f", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, digit := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
