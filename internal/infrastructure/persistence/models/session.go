package models

import (
	"github.com/dutyfree/reconcile/internal/domain/reconcile"
)

// ReceiptModel is the persistence model for the Receipt domain entity.
type ReceiptModel struct {
	OwnedModel
	Variant        reconcile.Variant `gorm:"type:varchar(10);not null;index"`
	ReceiptNumber  string            `gorm:"type:varchar(50);not null;index"`
	PassportNumber string            `gorm:"type:varchar(20);not null;default:''"`
	FilePath       string            `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt entity.
func (m *ReceiptModel) ToDomain() *reconcile.Receipt {
	return &reconcile.Receipt{
		BaseEntity:     m.OwnedModel.ToDomain(),
		Variant:        m.Variant,
		ReceiptNumber:  m.ReceiptNumber,
		PassportNumber: m.PassportNumber,
		FilePath:       m.FilePath,
	}
}

// FromDomain populates the persistence model from a domain Receipt entity.
func (m *ReceiptModel) FromDomain(r *reconcile.Receipt) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Variant = r.Variant
	m.ReceiptNumber = r.ReceiptNumber
	m.PassportNumber = r.PassportNumber
	m.FilePath = r.FilePath
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt entity.
func ReceiptModelFromDomain(r *reconcile.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// PassportModel is the persistence model for the Passport domain entity.
type PassportModel struct {
	OwnedModel
	Name           string `gorm:"type:varchar(100);not null;default:'';index"`
	PassportNumber string `gorm:"type:varchar(20);not null;default:'';index"`
	Birthday       string `gorm:"type:varchar(10);not null;default:''"`
	FilePath       string `gorm:"type:text;not null;default:''"`
	IsMatched      bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (PassportModel) TableName() string {
	return "passports"
}

// ToDomain converts the persistence model to a domain Passport entity.
func (m *PassportModel) ToDomain() *reconcile.Passport {
	return &reconcile.Passport{
		BaseEntity:     m.OwnedModel.ToDomain(),
		Name:           m.Name,
		PassportNumber: m.PassportNumber,
		Birthday:       m.Birthday,
		FilePath:       m.FilePath,
		IsMatched:      m.IsMatched,
	}
}

// FromDomain populates the persistence model from a domain Passport entity.
func (m *PassportModel) FromDomain(p *reconcile.Passport) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.Name = p.Name
	m.PassportNumber = p.PassportNumber
	m.Birthday = p.Birthday
	m.FilePath = p.FilePath
	m.IsMatched = p.IsMatched
}

// PassportModelFromDomain creates a new persistence model from a domain Passport entity.
func PassportModelFromDomain(p *reconcile.Passport) *PassportModel {
	m := &PassportModel{}
	m.FromDomain(p)
	return m
}

// UnrecognizedImageModel is the persistence model for the UnrecognizedImage domain entity.
type UnrecognizedImageModel struct {
	OwnedModel
	FilePath string `gorm:"type:text;not null"`
	Reason   string `gorm:"type:text;not null;default:''"`
}

// TableName returns the table name for GORM
func (UnrecognizedImageModel) TableName() string {
	return "unrecognized_images"
}

// ToDomain converts the persistence model to a domain UnrecognizedImage entity.
func (m *UnrecognizedImageModel) ToDomain() *reconcile.UnrecognizedImage {
	return &reconcile.UnrecognizedImage{
		BaseEntity: m.OwnedModel.ToDomain(),
		FilePath:   m.FilePath,
		Reason:     m.Reason,
	}
}

// UnrecognizedImageModelFromDomain creates a new persistence model from a domain UnrecognizedImage entity.
func UnrecognizedImageModelFromDomain(img *reconcile.UnrecognizedImage) *UnrecognizedImageModel {
	m := &UnrecognizedImageModel{FilePath: img.FilePath, Reason: img.Reason}
	m.FromDomainBaseEntity(img.BaseEntity)
	return m
}
