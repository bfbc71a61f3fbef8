package reconcile

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceRow is one sales ledger row uploaded from a merchant spreadsheet.
// Rows are global per variant and keyed by receipt number.
type ReferenceRow struct {
	ID             uuid.UUID
	Variant        Variant
	ReceiptNumber  string
	Name           string
	PayoutAmount   decimal.Decimal
	PassportNumber string // shilla only, back-filled by matching
	Backfilled     bool
	CreatedAt      time.Time
}

// NewReferenceRow creates a reference row with a normalized receipt number.
// It returns nil when the receipt number or name is missing.
func NewReferenceRow(variant Variant, receiptNumber, name string, payout decimal.Decimal, passportNumber string) *ReferenceRow {
	number := NormalizeReceiptNumber(variant, receiptNumber)
	name = normalizeName(name)
	if number == "" || name == "" {
		return nil
	}
	row := &ReferenceRow{
		ID:            uuid.New(),
		Variant:       variant,
		ReceiptNumber: number,
		Name:          name,
		PayoutAmount:  payout,
		CreatedAt:     time.Now(),
	}
	if variant.CarriesPassport() {
		row.PassportNumber = NormalizePassportNumber(passportNumber)
	}
	return row
}
