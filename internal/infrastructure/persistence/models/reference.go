package models

import (
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReferenceRowModel is the persistence model for the ReferenceRow domain entity.
// Receipt numbers are stored as normalized strings so joins need no casts.
type ReferenceRowModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	Variant        reconcile.Variant `gorm:"type:varchar(10);not null;uniqueIndex:idx_reference_variant_receipt,priority:1"`
	ReceiptNumber  string            `gorm:"type:varchar(50);not null;uniqueIndex:idx_reference_variant_receipt,priority:2"`
	Name           string            `gorm:"type:varchar(100);not null;index"`
	PayoutAmount   decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	PassportNumber string            `gorm:"type:varchar(20);not null;default:''"`
	Backfilled     bool              `gorm:"not null;default:false"`
	CreatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReferenceRowModel) TableName() string {
	return "reference_rows"
}

// ToDomain converts the persistence model to a domain ReferenceRow.
func (m *ReferenceRowModel) ToDomain() *reconcile.ReferenceRow {
	return &reconcile.ReferenceRow{
		ID:             m.ID,
		Variant:        m.Variant,
		ReceiptNumber:  m.ReceiptNumber,
		Name:           m.Name,
		PayoutAmount:   m.PayoutAmount,
		PassportNumber: m.PassportNumber,
		Backfilled:     m.Backfilled,
		CreatedAt:      m.CreatedAt,
	}
}

// ReferenceRowModelFromDomain creates a new persistence model from a domain ReferenceRow.
func ReferenceRowModelFromDomain(r *reconcile.ReferenceRow) *ReferenceRowModel {
	return &ReferenceRowModel{
		ID:             r.ID,
		Variant:        r.Variant,
		ReceiptNumber:  r.ReceiptNumber,
		Name:           r.Name,
		PayoutAmount:   r.PayoutAmount,
		PassportNumber: r.PassportNumber,
		Backfilled:     r.Backfilled,
		CreatedAt:      r.CreatedAt,
	}
}
