package reconcile

import (
	"time"

	"github.com/google/uuid"
)

// MatchLogEntry records one matching decision for a receipt number.
// Entries are insert-only; the current state of a (owner, receipt number)
// pair is the entry with the greatest (CheckedAt, ID).
type MatchLogEntry struct {
	ID             int64
	OwnerID        uuid.UUID
	ReceiptNumber  string
	IsMatched      bool
	ExcelName      string
	PassportNumber string
	Birthday       string
	PassportStatus PassportStatus
	CheckedAt      time.Time
}

// NewMatchLogEntry creates a log entry stamped with the current time
func NewMatchLogEntry(ownerID uuid.UUID, receiptNumber string, matched bool) *MatchLogEntry {
	return &MatchLogEntry{
		OwnerID:       ownerID,
		ReceiptNumber: receiptNumber,
		IsMatched:     matched,
		CheckedAt:     time.Now(),
	}
}

// CandidateA is one lotte receipt left-joined with its reference row
type CandidateA struct {
	ReceiptID      uuid.UUID
	ReceiptNumber  string
	ReferenceFound bool
	ExcelName      string
}

// LogVariantA builds the decision for a lotte receipt
func LogVariantA(ownerID uuid.UUID, c CandidateA) *MatchLogEntry {
	entry := NewMatchLogEntry(ownerID, c.ReceiptNumber, c.ReferenceFound)
	if c.ReferenceFound {
		entry.ExcelName = c.ExcelName
	}
	return entry
}

// CandidateB is one shilla receipt joined with its reference row and passport
type CandidateB struct {
	ReceiptID               uuid.UUID
	ReceiptNumber           string
	ReceiptPassportNumber   string
	ReferenceFound          bool
	ExcelName               string
	ReferencePassportNumber string
	PassportFound           bool
	PassportName            string
	PassportNumber          string
	PassportBirthday        string
	PassportMatched         bool
}

// Evidence returns the passport evidence carried by the candidate
func (c CandidateB) Evidence() PassportEvidence {
	return PassportEvidence{
		ReferenceFound:          c.ReferenceFound,
		PassportFound:           c.PassportFound,
		PassportMatched:         c.PassportMatched,
		ReceiptPassportNumber:   c.ReceiptPassportNumber,
		ReferencePassportNumber: c.ReferencePassportNumber,
	}
}

// ResolvedPassportNumber prefers the receipt's passport number over the row's
func (c CandidateB) ResolvedPassportNumber() string {
	if c.ReceiptPassportNumber != "" {
		return c.ReceiptPassportNumber
	}
	return c.ReferencePassportNumber
}

// LogVariantB builds the decision for a shilla receipt
func LogVariantB(ownerID uuid.UUID, c CandidateB) *MatchLogEntry {
	entry := NewMatchLogEntry(ownerID, c.ReceiptNumber, c.ReferenceFound)
	if c.ReferenceFound {
		entry.ExcelName = c.ExcelName
	}
	entry.PassportNumber = c.ResolvedPassportNumber()
	if c.PassportFound {
		entry.Birthday = c.PassportBirthday
	}
	entry.PassportStatus = ResolvePassportStatus(c.Evidence())
	return entry
}
