package reconcile

import (
	"context"
	"fmt"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
)

// ShillaStrategy matches shilla receipts by receipt number and links passports
// through the passport number printed on the receipt or stored on the ledger row.
type ShillaStrategy struct{}

// NewShillaStrategy creates a ShillaStrategy
func NewShillaStrategy() *ShillaStrategy {
	return &ShillaStrategy{}
}

// Variant returns shilla
func (s *ShillaStrategy) Variant() reconcile.Variant {
	return reconcile.VariantShilla
}

// MatchAll runs the back-fill, passport flag and log phases as set operations
func (s *ShillaStrategy) MatchAll(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (MatchSummary, error) {
	summary := MatchSummary{Variant: reconcile.VariantShilla}
	matching := repos.MatchingRepo()

	backfilled, err := matching.BackfillReferencePassports(ctx, ownerID)
	if err != nil {
		return summary, fmt.Errorf("failed to back-fill ledger passport numbers: %w", err)
	}
	summary.BackfilledRows = backfilled

	flagged, err := matching.FlagMatchedPassports(ctx, ownerID)
	if err != nil {
		return summary, fmt.Errorf("failed to flag matched passports: %w", err)
	}
	summary.FlaggedPassports = flagged

	candidates, err := matching.CandidatesB(ctx, ownerID)
	if err != nil {
		return summary, fmt.Errorf("failed to load shilla candidates: %w", err)
	}

	entries := make([]*reconcile.MatchLogEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = reconcile.LogVariantB(ownerID, c)
		if c.ReferenceFound {
			summary.MatchedReceipts++
		}
	}
	summary.TotalReceipts = len(candidates)

	if err := repos.MatchLogRepo().CreateBatch(ctx, entries); err != nil {
		return summary, fmt.Errorf("failed to write match logs: %w", err)
	}
	return summary, nil
}

// MatchOne re-evaluates a single shilla receipt after a correction
func (s *ShillaStrategy) MatchOne(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID, receipt *reconcile.Receipt) (*reconcile.MatchLogEntry, error) {
	row, err := repos.ReferenceRepo().FindByReceiptNumber(ctx, reconcile.VariantShilla, receipt.ReceiptNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reference row: %w", err)
	}

	candidate := reconcile.CandidateB{
		ReceiptID:             receipt.ID,
		ReceiptNumber:         receipt.ReceiptNumber,
		ReceiptPassportNumber: receipt.PassportNumber,
		ReferenceFound:        row != nil,
	}
	if row != nil {
		candidate.ExcelName = row.Name
		candidate.ReferencePassportNumber = row.PassportNumber
	}

	if receipt.PassportNumber != "" {
		if _, err := repos.PassportRepo().MarkMatchedByNumber(ctx, ownerID, receipt.PassportNumber); err != nil {
			return nil, fmt.Errorf("failed to flag passport: %w", err)
		}
		if row != nil {
			if _, err := repos.ReferenceRepo().BackfillPassportNumber(ctx, reconcile.VariantShilla, row.ReceiptNumber, receipt.PassportNumber); err != nil {
				return nil, fmt.Errorf("failed to back-fill ledger passport number: %w", err)
			}
			candidate.ReferencePassportNumber = receipt.PassportNumber
		}
	}

	passport, err := repos.PassportRepo().FindByNumber(ctx, ownerID, candidate.ResolvedPassportNumber())
	if err != nil {
		return nil, fmt.Errorf("failed to look up passport: %w", err)
	}
	if passport != nil {
		candidate.PassportFound = true
		candidate.PassportName = passport.Name
		candidate.PassportNumber = passport.PassportNumber
		candidate.PassportBirthday = passport.Birthday
		candidate.PassportMatched = passport.IsMatched
	}

	entry := reconcile.LogVariantB(ownerID, candidate)
	if err := repos.MatchLogRepo().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write match log: %w", err)
	}
	return entry, nil
}

// ReadResults groups matched receipts by resolved passport number
func (s *ShillaStrategy) ReadResults(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.MatchResults, error) {
	rows, err := repos.MatchingRepo().MatchedRowsB(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched receipts: %w", err)
	}
	unmatched, err := repos.MatchingRepo().UnmatchedReceiptsB(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched receipts: %w", err)
	}
	return &reconcile.MatchResults{
		Variant:   reconcile.VariantShilla,
		Matched:   reconcile.GroupMatchesB(rows),
		Unmatched: nonNilUnmatched(unmatched),
	}, nil
}

// Statistics counts receipts that have a ledger row
func (s *ShillaStrategy) Statistics(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.Statistics, error) {
	total, matched, err := repos.MatchingRepo().CountReceiptsB(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}
	return passportStatistics(ctx, repos, ownerID, reconcile.VariantShilla, total, matched)
}

var _ VariantStrategy = (*ShillaStrategy)(nil)
