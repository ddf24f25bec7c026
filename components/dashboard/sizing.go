package dashboard

import "unicode/utf8"

// ValueFontSize returns the metric value font size for a card of the given
// width, shrinking longer formatted values.
func ValueFontSize(cardWidth float64, value string) float64 {
	base := clampFloat(20, 48, cardWidth/6)
	return clampFloat(16, 48, base*lengthScale(utf8.RuneCountInString(value)))
}

// UnitFontSize returns the unit label font size for a card of the given width.
func UnitFontSize(cardWidth float64) float64 {
	return clampFloat(10, 16, cardWidth/18)
}

func lengthScale(n int) float64 {
	switch {
	case n <= 4:
		return 1
	case n <= 6:
		return 0.85
	case n <= 8:
		return 0.75
	default:
		return 0.6
	}
}

func clampFloat(lo, hi, v float64) float64 {
	return max(lo, min(hi, v))
}
