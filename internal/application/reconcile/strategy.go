package reconcile

import (
	"context"
	"fmt"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MatchSummary reports the outcome of a bulk matching run
type MatchSummary struct {
	Variant          reconcile.Variant `json:"duty_free_type"`
	TotalReceipts    int               `json:"total_receipts"`
	MatchedReceipts  int               `json:"matched_receipts"`
	BackfilledRows   int64             `json:"backfilled_rows"`
	FlaggedPassports int64             `json:"flagged_passports"`
}

// VariantStrategy implements matching, result reading and statistics for one
// duty-free variant. Every method runs against the given repositories so the
// caller decides the transaction boundary.
type VariantStrategy interface {
	Variant() reconcile.Variant
	// MatchAll re-evaluates every receipt of the owner and appends one log per receipt
	MatchAll(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (MatchSummary, error)
	// MatchOne re-evaluates a single receipt after a manual correction
	MatchOne(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID, receipt *reconcile.Receipt) (*reconcile.MatchLogEntry, error)
	ReadResults(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.MatchResults, error)
	Statistics(ctx context.Context, repos TransactionalRepositories, ownerID uuid.UUID) (*reconcile.Statistics, error)
}

// StrategySelector picks the strategy of the owner's dominant variant.
// Detection is never cached; every call recounts the receipts.
type StrategySelector struct {
	receipts   reconcile.ReceiptRepository
	strategies map[reconcile.Variant]VariantStrategy
	logger     *zap.Logger
}

// NewStrategySelector creates a selector over the given strategies
func NewStrategySelector(receipts reconcile.ReceiptRepository, logger *zap.Logger, strategies ...VariantStrategy) *StrategySelector {
	s := &StrategySelector{
		receipts:   receipts,
		strategies: make(map[reconcile.Variant]VariantStrategy, len(strategies)),
		logger:     logger,
	}
	for _, strategy := range strategies {
		s.strategies[strategy.Variant()] = strategy
	}
	return s
}

// NewDefaultStrategySelector wires the lotte and shilla strategies
func NewDefaultStrategySelector(receipts reconcile.ReceiptRepository, logger *zap.Logger) *StrategySelector {
	return NewStrategySelector(receipts, logger, NewLotteStrategy(), NewShillaStrategy())
}

// Detect returns the strategy for the owner's current receipts. Shilla wins
// ties. A counting failure falls back to lotte.
func (s *StrategySelector) Detect(ctx context.Context, ownerID uuid.UUID) VariantStrategy {
	counts, err := s.receipts.CountByVariant(ctx, ownerID)
	if err != nil {
		s.logger.Warn("variant detection failed, falling back to lotte",
			zap.String("owner_id", ownerID.String()),
			zap.Error(err))
		return s.mustFor(reconcile.VariantLotte)
	}
	return s.mustFor(reconcile.DetectVariant(counts))
}

// For returns the strategy of an explicit variant
func (s *StrategySelector) For(variant reconcile.Variant) (VariantStrategy, error) {
	strategy, ok := s.strategies[variant]
	if !ok {
		return nil, fmt.Errorf("no matching strategy for variant %q", variant)
	}
	return strategy, nil
}

func (s *StrategySelector) mustFor(variant reconcile.Variant) VariantStrategy {
	strategy, err := s.For(variant)
	if err != nil {
		panic(err)
	}
	return strategy
}
