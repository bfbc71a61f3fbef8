package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchingService runs matching and serves the read side of a session
type MatchingService struct {
	selector *StrategySelector
	txScope  TransactionScope
	repos    TransactionalRepositories
	metrics  MatchMetrics
	logger   *zap.Logger
}

// MatchMetrics records matching outcomes
type MatchMetrics interface {
	RecordMatchRun(ctx context.Context, variant string, total, matched int)
}

type noopMatchMetrics struct{}

func (noopMatchMetrics) RecordMatchRun(context.Context, string, int, int) {}

// NewMatchingService creates a new MatchingService. repos serves reads outside transactions.
func NewMatchingService(
	selector *StrategySelector,
	txScope TransactionScope,
	repos TransactionalRepositories,
	logger *zap.Logger,
) *MatchingService {
	return &MatchingService{
		selector: selector,
		txScope:  txScope,
		repos:    repos,
		metrics:  noopMatchMetrics{},
		logger:   logger,
	}
}

// SetMetrics installs a metrics recorder
func (s *MatchingService) SetMetrics(metrics MatchMetrics) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// RunMatching re-evaluates every receipt of the owner in one transaction
func (s *MatchingService) RunMatching(ctx context.Context, ownerID uuid.UUID) (*MatchSummary, error) {
	strategy := s.selector.Detect(ctx, ownerID)

	var summary MatchSummary
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		summary, err = strategy.MatchAll(ctx, repos, ownerID)
		return err
	})
	if err != nil {
		s.logger.Error("matching run failed",
			zap.String("owner_id", ownerID.String()),
			zap.String("variant", strategy.Variant().String()),
			zap.Error(err))
		return nil, err
	}

	s.metrics.RecordMatchRun(ctx, summary.Variant.String(), summary.TotalReceipts, summary.MatchedReceipts)
	s.logger.Info("matching run completed",
		zap.String("owner_id", ownerID.String()),
		zap.String("variant", summary.Variant.String()),
		zap.Int("total_receipts", summary.TotalReceipts),
		zap.Int("matched_receipts", summary.MatchedReceipts),
		zap.Int64("backfilled_rows", summary.BackfilledRows),
		zap.Int64("flagged_passports", summary.FlaggedPassports))
	return &summary, nil
}

// Results returns the matched customer groups and unmatched receipts
func (s *MatchingService) Results(ctx context.Context, ownerID uuid.UUID) (*reconcile.MatchResults, error) {
	return s.selector.Detect(ctx, ownerID).ReadResults(ctx, s.repos, ownerID)
}

// Statistics returns the session counters
func (s *MatchingService) Statistics(ctx context.Context, ownerID uuid.UUID) (*reconcile.Statistics, error) {
	return s.selector.Detect(ctx, ownerID).Statistics(ctx, s.repos, ownerID)
}

// ReceiptUpdateResult is the corrected receipt with its new decision
type ReceiptUpdateResult struct {
	Receipt  *reconcile.Receipt       `json:"receipt"`
	MatchLog *reconcile.MatchLogEntry `json:"match_log"`
}

// UpdateReceipt corrects a receipt and re-matches it in one transaction.
// The receipt's own variant picks the strategy.
func (s *MatchingService) UpdateReceipt(ctx context.Context, ownerID, receiptID uuid.UUID, update reconcile.ReceiptUpdate) (*ReceiptUpdateResult, error) {
	if update.IsEmpty() {
		return nil, reconcile.ErrEmptyUpdate
	}

	var result ReceiptUpdateResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		receipt, err := repos.ReceiptRepo().FindByID(ctx, ownerID, receiptID)
		if err != nil {
			return err
		}
		if err := receipt.Apply(update); err != nil {
			return err
		}
		if err := repos.ReceiptRepo().Update(ctx, receipt); err != nil {
			return fmt.Errorf("failed to update receipt: %w", err)
		}

		strategy, err := s.selector.For(receipt.Variant)
		if err != nil {
			return err
		}
		entry, err := strategy.MatchOne(ctx, repos, ownerID, receipt)
		if err != nil {
			return err
		}

		result = ReceiptUpdateResult{Receipt: receipt, MatchLog: entry}
		return nil
	})
	if err != nil {
		s.logUpdateFailure("receipt", ownerID, receiptID, err)
		return nil, err
	}
	return &result, nil
}

// PassportUpdateResult is the corrected passport and the log written when its
// new name is found on the ledger
type PassportUpdateResult struct {
	Passport *reconcile.Passport      `json:"passport"`
	MatchLog *reconcile.MatchLogEntry `json:"match_log,omitempty"`
}

// UpdatePassport corrects a passport. When a name is supplied it is looked up
// on the detected variant's ledger and a hit marks the passport matched.
func (s *MatchingService) UpdatePassport(ctx context.Context, ownerID, passportID uuid.UUID, update reconcile.PassportUpdate) (*PassportUpdateResult, error) {
	if update.IsEmpty() {
		return nil, reconcile.ErrEmptyUpdate
	}
	variant := s.selector.Detect(ctx, ownerID).Variant()

	var result PassportUpdateResult
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		passport, err := repos.PassportRepo().FindByID(ctx, ownerID, passportID)
		if err != nil {
			return err
		}
		if err := passport.Apply(update); err != nil {
			return err
		}

		if update.Name != nil {
			row, err := repos.ReferenceRepo().FindByName(ctx, variant, passport.Name)
			if err != nil {
				return fmt.Errorf("failed to look up reference row: %w", err)
			}
			if row != nil {
				passport.MarkMatched()
				entry := reconcile.NewMatchLogEntry(ownerID, row.ReceiptNumber, true)
				entry.ExcelName = row.Name
				entry.PassportNumber = passport.PassportNumber
				entry.Birthday = passport.Birthday
				if err := repos.MatchLogRepo().Create(ctx, entry); err != nil {
					return fmt.Errorf("failed to write match log: %w", err)
				}
				result.MatchLog = entry
			}
		}

		if err := repos.PassportRepo().Update(ctx, passport); err != nil {
			return fmt.Errorf("failed to update passport: %w", err)
		}
		result.Passport = passport
		return nil
	})
	if err != nil {
		s.logUpdateFailure("passport", ownerID, passportID, err)
		return nil, err
	}
	return &result, nil
}

// ListUnmatchedPassports lists unmatched passports whose name is not on the detected ledger
func (s *MatchingService) ListUnmatchedPassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	variant := s.selector.Detect(ctx, ownerID).Variant()
	return s.repos.PassportRepo().FindUnmatchedWithoutReference(ctx, ownerID, variant)
}

// ListAvailablePassports lists every unmatched passport
func (s *MatchingService) ListAvailablePassports(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	return s.repos.PassportRepo().FindUnmatched(ctx, ownerID)
}

// ListUnrecognizedImages lists images the OCR pipeline could not use
func (s *MatchingService) ListUnrecognizedImages(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnrecognizedImage, error) {
	return s.repos.UnrecognizedRepo().FindByOwner(ctx, ownerID)
}

// CountReceiptsByVariant returns the owner's receipt counts per variant
func (s *MatchingService) CountReceiptsByVariant(ctx context.Context, ownerID uuid.UUID) (map[reconcile.Variant]int64, error) {
	return s.repos.ReceiptRepo().CountByVariant(ctx, ownerID)
}

func (s *MatchingService) logUpdateFailure(kind string, ownerID, id uuid.UUID, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return
	}
	s.logger.Error("manual correction failed",
		zap.String("kind", kind),
		zap.String("owner_id", ownerID.String()),
		zap.String("id", id.String()),
		zap.Error(err))
}
