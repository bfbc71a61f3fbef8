package reconcile

import (
	"context"

	"github.com/google/uuid"
)

// ReceiptRepository persists receipts
type ReceiptRepository interface {
	Create(ctx context.Context, receipt *Receipt) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Receipt, error)
	Update(ctx context.Context, receipt *Receipt) error
	FindByOwner(ctx context.Context, ownerID uuid.UUID, variant Variant) ([]Receipt, error)
	CountByVariant(ctx context.Context, ownerID uuid.UUID) (map[Variant]int64, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// PassportRepository persists passports
type PassportRepository interface {
	Create(ctx context.Context, passport *Passport) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Passport, error)
	Update(ctx context.Context, passport *Passport) error
	FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*Passport, error)
	// FindByNumber returns the owner's earliest passport with the number, or nil
	FindByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (*Passport, error)
	// MarkMatchedByNumber flags every unmatched passport of the owner with the number
	MarkMatchedByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (int64, error)
	FindUnmatched(ctx context.Context, ownerID uuid.UUID) ([]Passport, error)
	// FindUnmatchedWithoutReference returns unmatched passports whose name has no reference row
	FindUnmatchedWithoutReference(ctx context.Context, ownerID uuid.UUID, variant Variant) ([]Passport, error)
	Count(ctx context.Context, ownerID uuid.UUID) (total int64, matched int64, err error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// ReferenceRepository persists uploaded sales ledger rows
type ReferenceRepository interface {
	FindByReceiptNumber(ctx context.Context, variant Variant, receiptNumber string) (*ReferenceRow, error)
	FindByName(ctx context.Context, variant Variant, name string) (*ReferenceRow, error)
	ExistingReceiptNumbers(ctx context.Context, variant Variant, receiptNumbers []string) (map[string]bool, error)
	CreateBatch(ctx context.Context, rows []*ReferenceRow) error
	// ReplaceAll drops every row of the variant and inserts rows in their place
	ReplaceAll(ctx context.Context, variant Variant, rows []*ReferenceRow) (int64, error)
	// BackfillPassportNumber sets the row's passport number unless it already equals it
	BackfillPassportNumber(ctx context.Context, variant Variant, receiptNumber, passportNumber string) (bool, error)
	// ClearBackfilledPassports resets passport numbers back-filled from the owner's receipts
	ClearBackfilledPassports(ctx context.Context, ownerID uuid.UUID) (int64, error)
	Count(ctx context.Context, variant Variant) (int64, error)
}

// MatchLogRepository persists matching decisions
type MatchLogRepository interface {
	Create(ctx context.Context, entry *MatchLogEntry) error
	CreateBatch(ctx context.Context, entries []*MatchLogEntry) error
	// Latest returns the current entry for a receipt number
	Latest(ctx context.Context, ownerID uuid.UUID, receiptNumber string) (*MatchLogEntry, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// MatchingRepository runs the set-based matching phases and read queries
type MatchingRepository interface {
	CandidatesA(ctx context.Context, ownerID uuid.UUID) ([]CandidateA, error)
	// BackfillReferencePassports copies receipt passport numbers onto matching shilla rows
	BackfillReferencePassports(ctx context.Context, ownerID uuid.UUID) (int64, error)
	// FlagMatchedPassports marks passports whose number appears on a shilla row
	FlagMatchedPassports(ctx context.Context, ownerID uuid.UUID) (int64, error)
	CandidatesB(ctx context.Context, ownerID uuid.UUID) ([]CandidateB, error)

	MatchedRowsA(ctx context.Context, ownerID uuid.UUID) ([]MatchedRowA, error)
	UnmatchedReceiptsA(ctx context.Context, ownerID uuid.UUID) ([]UnmatchedReceipt, error)
	MatchedRowsB(ctx context.Context, ownerID uuid.UUID) ([]MatchedRowB, error)
	UnmatchedReceiptsB(ctx context.Context, ownerID uuid.UUID) ([]UnmatchedReceipt, error)

	// CountReceiptsA counts lotte receipts and those whose latest log entry is matched
	CountReceiptsA(ctx context.Context, ownerID uuid.UUID) (total int64, matched int64, err error)
	// CountReceiptsB counts shilla receipts and those with a reference row
	CountReceiptsB(ctx context.Context, ownerID uuid.UUID) (total int64, matched int64, err error)
}

// UnrecognizedImageRepository persists images the OCR pipeline rejected
type UnrecognizedImageRepository interface {
	Create(ctx context.Context, image *UnrecognizedImage) error
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]UnrecognizedImage, error)
	DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// ArchiveRepository persists session archives and their history rows
type ArchiveRepository interface {
	// Create stores the archive and its histories
	Create(ctx context.Context, archive *Archive) error
	FindByID(ctx context.Context, ownerID, id uuid.UUID) (*Archive, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]Archive, error)
	SearchHistories(ctx context.Context, ownerID uuid.UUID, search HistorySearch) ([]HistorySearchResult, int64, error)
}
