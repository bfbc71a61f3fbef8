package models

import (
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
)

// MatchLogModel is the persistence model for MatchLogEntry. Rows are never updated.
type MatchLogModel struct {
	ID             int64                    `gorm:"primaryKey;autoIncrement"`
	OwnerID        uuid.UUID                `gorm:"type:uuid;not null;index:idx_match_log_owner_receipt,priority:1"`
	ReceiptNumber  string                   `gorm:"type:varchar(50);not null;index:idx_match_log_owner_receipt,priority:2"`
	IsMatched      bool                     `gorm:"not null;default:false"`
	ExcelName      string                   `gorm:"type:varchar(100);not null;default:''"`
	PassportNumber string                   `gorm:"type:varchar(20);not null;default:''"`
	Birthday       string                   `gorm:"type:varchar(10);not null;default:''"`
	PassportStatus reconcile.PassportStatus `gorm:"type:varchar(30);not null;default:''"`
	CheckedAt      time.Time                `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (MatchLogModel) TableName() string {
	return "match_logs"
}

// ToDomain converts the persistence model to a domain MatchLogEntry.
func (m *MatchLogModel) ToDomain() *reconcile.MatchLogEntry {
	return &reconcile.MatchLogEntry{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		ReceiptNumber:  m.ReceiptNumber,
		IsMatched:      m.IsMatched,
		ExcelName:      m.ExcelName,
		PassportNumber: m.PassportNumber,
		Birthday:       m.Birthday,
		PassportStatus: m.PassportStatus,
		CheckedAt:      m.CheckedAt,
	}
}

// MatchLogModelFromDomain creates a new persistence model from a domain MatchLogEntry.
func MatchLogModelFromDomain(e *reconcile.MatchLogEntry) *MatchLogModel {
	return &MatchLogModel{
		ID:             e.ID,
		OwnerID:        e.OwnerID,
		ReceiptNumber:  e.ReceiptNumber,
		IsMatched:      e.IsMatched,
		ExcelName:      e.ExcelName,
		PassportNumber: e.PassportNumber,
		Birthday:       e.Birthday,
		PassportStatus: e.PassportStatus,
		CheckedAt:      e.CheckedAt,
	}
}
