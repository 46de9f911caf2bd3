package shared

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/width"
)

// NormalizeBarcode folds full-width scanner output to ASCII and trims blanks.
func NormalizeBarcode(barcode string) string {
	return strings.TrimSpace(width.Fold.String(barcode))
}

// NormalizeLotNumber produces the canonical lot number used for the
// (product, lot number) uniqueness constraint.
func NormalizeLotNumber(lotNumber string) string {
	folded := strings.TrimSpace(width.Fold.String(lotNumber))
	// Casers carry state and must not be shared across goroutines.
	return cases.Upper(language.Turkish).String(folded)
}

// NormalizeReferenceCode canonicalises product reference codes.
func NormalizeReferenceCode(code string) string {
	return NormalizeLotNumber(code)
}
