package models

import (
	"encoding/json"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
)

// ArchiveModel is the persistence model for the Archive domain entity.
type ArchiveModel struct {
	ID               uuid.UUID         `gorm:"type:uuid;primary_key"`
	OwnerID          uuid.UUID         `gorm:"type:uuid;not null;index"`
	SessionName      string            `gorm:"type:varchar(200);not null"`
	ArchiveDate      time.Time         `gorm:"not null;index"`
	TotalReceipts    int64             `gorm:"not null;default:0"`
	MatchedReceipts  int64             `gorm:"not null;default:0"`
	TotalPassports   int64             `gorm:"not null;default:0"`
	MatchedPassports int64             `gorm:"not null;default:0"`
	Variant          reconcile.Variant `gorm:"column:duty_free_type;type:varchar(10);not null"`
	Notes            string            `gorm:"type:text;not null;default:''"`
	ArchiveData      string            `gorm:"type:jsonb;not null;default:'{}'"`
}

// TableName returns the table name for GORM
func (ArchiveModel) TableName() string {
	return "processing_archives"
}

// ToDomain converts the persistence model to a domain Archive without histories.
func (m *ArchiveModel) ToDomain() *reconcile.Archive {
	return &reconcile.Archive{
		ID:               m.ID,
		OwnerID:          m.OwnerID,
		SessionName:      m.SessionName,
		ArchiveDate:      m.ArchiveDate,
		TotalReceipts:    m.TotalReceipts,
		MatchedReceipts:  m.MatchedReceipts,
		TotalPassports:   m.TotalPassports,
		MatchedPassports: m.MatchedPassports,
		Variant:          m.Variant,
		Notes:            m.Notes,
		Data:             json.RawMessage(m.ArchiveData),
	}
}

// ArchiveModelFromDomain creates a new persistence model from a domain Archive.
func ArchiveModelFromDomain(a *reconcile.Archive) *ArchiveModel {
	data := string(a.Data)
	if data == "" {
		data = "{}"
	}
	return &ArchiveModel{
		ID:               a.ID,
		OwnerID:          a.OwnerID,
		SessionName:      a.SessionName,
		ArchiveDate:      a.ArchiveDate,
		TotalReceipts:    a.TotalReceipts,
		MatchedReceipts:  a.MatchedReceipts,
		TotalPassports:   a.TotalPassports,
		MatchedPassports: a.MatchedPassports,
		Variant:          a.Variant,
		Notes:            a.Notes,
		ArchiveData:      data,
	}
}

// MatchingHistoryModel is the persistence model for the MatchingHistory domain entity.
type MatchingHistoryModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID        uuid.UUID `gorm:"type:uuid;not null;index"`
	ArchiveID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CustomerName   string    `gorm:"type:varchar(100);not null;default:''"`
	PassportNumber string    `gorm:"type:varchar(20);not null;default:''"`
	ReceiptNumbers string    `gorm:"type:jsonb;not null;default:'[]'"`
	ExcelData      string    `gorm:"type:jsonb;not null;default:'{}'"`
	MatchStatus    string    `gorm:"type:varchar(50);not null;default:''"`
	CreatedAt      time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MatchingHistoryModel) TableName() string {
	return "matching_histories"
}

// ToDomain converts the persistence model to a domain MatchingHistory.
func (m *MatchingHistoryModel) ToDomain() *reconcile.MatchingHistory {
	h := &reconcile.MatchingHistory{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		ArchiveID:      m.ArchiveID,
		CustomerName:   m.CustomerName,
		PassportNumber: m.PassportNumber,
		ReceiptNumbers: []string{},
		ExcelData:      json.RawMessage(m.ExcelData),
		MatchStatus:    m.MatchStatus,
		CreatedAt:      m.CreatedAt,
	}
	if m.ReceiptNumbers != "" {
		_ = json.Unmarshal([]byte(m.ReceiptNumbers), &h.ReceiptNumbers)
	}
	return h
}

// MatchingHistoryModelFromDomain creates a new persistence model from a domain MatchingHistory.
func MatchingHistoryModelFromDomain(h *reconcile.MatchingHistory) (*MatchingHistoryModel, error) {
	numbers := h.ReceiptNumbers
	if numbers == nil {
		numbers = []string{}
	}
	receiptJSON, err := json.Marshal(numbers)
	if err != nil {
		return nil, err
	}
	excel := string(h.ExcelData)
	if excel == "" {
		excel = "{}"
	}
	return &MatchingHistoryModel{
		ID:             h.ID,
		OwnerID:        h.OwnerID,
		ArchiveID:      h.ArchiveID,
		CustomerName:   h.CustomerName,
		PassportNumber: h.PassportNumber,
		ReceiptNumbers: string(receiptJSON),
		ExcelData:      excel,
		MatchStatus:    h.MatchStatus,
		CreatedAt:      h.CreatedAt,
	}, nil
}
