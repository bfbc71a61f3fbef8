package reconcile

import (
	"strconv"
	"strings"

	"golang.org/x/text/width"
)

// NormalizeReceiptNumber converts a raw receipt number into the canonical digit
// string used as the join key between receipts and reference rows.
//
// Spreadsheet cells often arrive as floats ("124507700631.0", "1.24507700631e+11")
// and lose their leading zeros, so numeric input is re-rendered as an integer and
// left-padded to the variant's receipt length.
func NormalizeReceiptNumber(v Variant, raw string) string {
	s := strings.TrimSpace(width.Fold.String(raw))
	s = strings.NewReplacer(" ", "", "-", "", "\u00a0", "").Replace(s)
	if s == "" {
		return ""
	}

	if !isDigits(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1e18 && f == float64(int64(f)) {
			s = strconv.FormatInt(int64(f), 10)
		} else {
			return strings.ToUpper(s)
		}
	}

	if n := v.ReceiptNumberLength(); len(s) < n {
		s = strings.Repeat("0", n-len(s)) + s
	}
	return s
}

// NormalizePassportNumber folds full-width characters, uppercases and strips
// whitespace from a passport number
func NormalizePassportNumber(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(width.Fold.String(raw)), ""))
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
