package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
)

// LotteStrategy matches lotte receipts by receipt number alone. The receipt
// carries no passport number, so passports are attached by customer name.
type LotteStrategy struct{}

// NewLotteStrategy creates a LotteStrategy
func NewLotteStrategy() *LotteStrategy {
	return &LotteStrategy{}
}

// Variant returns lotte
func (s *LotteStrategy) Variant() reconcile.Variant {
	return reconcile.VariantLotte
}

// MatchAll logs one decision per lotte receipt of the owner
func (s *LotteStrategy) MatchAll(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (MatchSummary, error) {
	summary := MatchSummary{Variant: reconcile.VariantLotte}

	candidates, err := repos.MatchingRepo().CandidatesA(ctx, ownerID)
	if err != nil {
		return summary, fmt.Errorf("failed to load lotte candidates: %w", err)
	}

	entries := make([]*reconcile.MatchLogEntry, len(candidates))
	for i, c := range candidates {
		entries[i] = reconcile.LogVariantA(ownerID, c)
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

// MatchOne re-evaluates a single lotte receipt
func (s *LotteStrategy) MatchOne(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID, receipt *reconcile.Receipt) (*reconcile.MatchLogEntry, error) {
	row, err := repos.ReferenceRepo().FindByReceiptNumber(ctx, reconcile.VariantLotte, receipt.ReceiptNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up reference row: %w", err)
	}

	candidate := reconcile.CandidateA{
		ReceiptID:      receipt.ID,
		ReceiptNumber:  receipt.ReceiptNumber,
		ReferenceFound: row != nil,
	}
	if row != nil {
		candidate.ExcelName = row.Name
	}

	entry := reconcile.LogVariantA(ownerID, candidate)
	if err := repos.MatchLogRepo().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write match log: %w", err)
	}
	return entry, nil
}

// ReadResults groups matched receipts by ledger name
func (s *LotteStrategy) ReadResults(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.MatchResults, error) {
	rows, err := repos.MatchingRepo().MatchedRowsA(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load matched receipts: %w", err)
	}

	passports := make(map[string]*reconcile.Passport)
	for _, row := range rows {
		if _, seen := passports[row.ExcelName]; seen {
			continue
		}
		passport, err := repos.PassportRepo().FindByName(ctx, ownerID, row.ExcelName)
		if err != nil && !errors.Is(err, reconcile.ErrPassportNotFound) {
			return nil, fmt.Errorf("failed to look up passport: %w", err)
		}
		passports[row.ExcelName] = passport
	}

	unmatched, err := repos.MatchingRepo().UnmatchedReceiptsA(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unmatched receipts: %w", err)
	}

	return &reconcile.MatchResults{
		Variant: reconcile.VariantLotte,
		Matched: reconcile.GroupMatchesA(rows, func(name string) *reconcile.Passport {
			return passports[name]
		}),
		Unmatched: nonNilUnmatched(unmatched),
	}, nil
}

// Statistics counts receipts by their latest decision
func (s *LotteStrategy) Statistics(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.Statistics, error) {
	total, matched, err := repos.MatchingRepo().CountReceiptsA(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count receipts: %w", err)
	}
	return passportStatistics(ctx, repos, ownerID, reconcile.VariantLotte, total, matched)
}

func passportStatistics(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID, variant reconcile.Variant, totalReceipts, matchedReceipts int64) (*reconcile.Statistics, error) {
	totalPassports, matchedPassports, err := repos.PassportRepo().Count(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count passports: %w", err)
	}
	return reconcile.NewStatistics(variant, totalReceipts, matchedReceipts, totalPassports, matchedPassports), nil
}

func nonNilUnmatched(receipts []reconcile.UnmatchedReceipt) []reconcile.UnmatchedReceipt {
	if receipts == nil {
		return []reconcile.UnmatchedReceipt{}
	}
	return receipts
}

var _ VariantStrategy = (*LotteStrategy)(nil)
