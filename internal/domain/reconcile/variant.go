package reconcile

import (
	"strings"

	"github.com/dutyfree/reconcile/internal/domain/shared"
)

// Variant identifies the retailer data shape a session belongs to
type Variant string

const (
	// VariantLotte receipts carry a 14 digit exchange number and no passport
	VariantLotte Variant = "lotte"
	// VariantShilla receipts carry a 13 digit bill number and optionally a passport number
	VariantShilla Variant = "shilla"
)

// ErrInvalidVariant is returned when a duty-free type cannot be parsed
var ErrInvalidVariant = shared.NewDomainError(shared.CodeInvalidInput, "duty_free_type must be one of: lotte, shilla")

// Variants returns all supported variants
func Variants() []Variant {
	return []Variant{VariantLotte, VariantShilla}
}

// ParseVariant parses a duty-free type string
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", ErrInvalidVariant
	}
	return v, nil
}

// IsValid checks if the variant is supported
func (v Variant) IsValid() bool {
	return v == VariantLotte || v == VariantShilla
}

// String returns the string representation
func (v Variant) String() string {
	return string(v)
}

// ReceiptNumberLength returns the canonical receipt number length
func (v Variant) ReceiptNumberLength() int {
	if v == VariantShilla {
		return 13
	}
	return 14
}

// CarriesPassport reports whether receipts of this variant hold a passport number
func (v Variant) CarriesPassport() bool {
	return v == VariantShilla
}

// DetectVariant picks the session variant from per-variant receipt counts.
// Shilla wins when its count is greater than or equal to Lotte's.
func DetectVariant(counts map[Variant]int64) Variant {
	if counts[VariantShilla] >= counts[VariantLotte] {
		return VariantShilla
	}
	return VariantLotte
}
