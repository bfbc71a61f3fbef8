package reconcile

import (
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
)

// Receipt is a duty-free receipt recognized from an uploaded image
type Receipt struct {
	shared.BaseEntity
	Variant        Variant
	ReceiptNumber  string
	PassportNumber string // shilla only
	FilePath       string
}

// NewReceipt creates a receipt with a normalized receipt number
func NewReceipt(ownerID uuid.UUID, variant Variant, receiptNumber, passportNumber, filePath string) (*Receipt, error) {
	if !variant.IsValid() {
		return nil, ErrInvalidVariant
	}
	number := NormalizeReceiptNumber(variant, receiptNumber)
	if number == "" {
		return nil, ErrEmptyReceiptNumber
	}
	r := &Receipt{
		BaseEntity:    shared.NewBaseEntity(ownerID),
		Variant:       variant,
		ReceiptNumber: number,
		FilePath:      filePath,
	}
	if variant.CarriesPassport() {
		r.PassportNumber = NormalizePassportNumber(passportNumber)
	}
	return r, nil
}

// ReceiptUpdate enumerates the receipt fields a client may correct
type ReceiptUpdate struct {
	ReceiptNumber  *string `json:"new_receipt_number"`
	PassportNumber *string `json:"passport_number"`
}

// IsEmpty reports whether the update changes nothing
func (u ReceiptUpdate) IsEmpty() bool {
	return u.ReceiptNumber == nil && u.PassportNumber == nil
}

// Apply applies a manual correction to the receipt
func (r *Receipt) Apply(u ReceiptUpdate) error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.PassportNumber != nil && !r.Variant.CarriesPassport() && *u.PassportNumber != "" {
		return ErrPassportNotSupported
	}

	if u.ReceiptNumber != nil {
		number := NormalizeReceiptNumber(r.Variant, *u.ReceiptNumber)
		if number == "" {
			return ErrEmptyReceiptNumber
		}
		r.ReceiptNumber = number
	}
	if u.PassportNumber != nil && r.Variant.CarriesPassport() {
		r.PassportNumber = NormalizePassportNumber(*u.PassportNumber)
	}
	r.Touch()
	return nil
}
