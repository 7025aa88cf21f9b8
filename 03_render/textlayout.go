package render

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
)

// MaxNameLines caps how many wrapped lines of a product name are drawn
const MaxNameLines = 3

// Measurer returns the drawn width of s in pixels
type Measurer func(s string) float64

// EstimatedMeasurer approximates width from the rune count when no font is loaded
func EstimatedMeasurer(fontSizePx float64) Measurer {
	return func(s string) float64 {
		return float64(utf8.RuneCountInString(s)) * fontSizePx * 0.55
	}
}

// FaceMeasurer measures with real glyph advances
func FaceMeasurer(face font.Face) Measurer {
	return func(s string) float64 {
		return float64(font.MeasureString(face, s)) / 64
	}
}

// WrapText packs words greedily into lines no wider than maxWidth.
// A single word wider than maxWidth still gets its own line.
// Lines past MaxNameLines are dropped without an ellipsis.
func WrapText(text string, maxWidth float64, measure Measurer) []string {
	var lines []string
	current := ""

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) > maxWidth && current != "" {
			lines = append(lines, current)
			current = word
			continue
		}
		current = candidate
	}
	if current != "" {
		lines = append(lines, current)
	}

	if len(lines) > MaxNameLines {
		lines = lines[:MaxNameLines]
	}
	return lines
}

// TruncateText shortens s to maxRunes runes, the last three being "...".
// Strings at or under the budget are returned unchanged.
func TruncateText(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	keep := maxRunes - 3
	if keep < 0 {
		keep = 0
	}
	runes := []rune(s)
	return string(runes[:keep]) + "..."
}
