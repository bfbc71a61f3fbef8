package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PayoutRenderer renders payout documents and bundles them into one archive
type PayoutRenderer interface {
	Render(identity reconcile.PayoutIdentity, issued time.Time) (reconcile.PayoutDocument, error)
	Bundle(docs []reconcile.PayoutDocument) ([]byte, error)
}

// ObjectStore stores generated bundles and hands out download links
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// PayoutResult is a generated bundle. Data is set when no object store is
// configured, DownloadURL otherwise.
type PayoutResult struct {
	FileName    string `json:"file_name"`
	Documents   int    `json:"documents"`
	DownloadURL string `json:"download_url,omitempty"`
	Data        []byte `json:"-"`
}

// PayoutService generates payout documents for matched customers
type PayoutService struct {
	selector *StrategySelector
	repos    TransactionalRepositories
	renderer PayoutRenderer
	store    ObjectStore
	linkTTL  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewPayoutService creates a new PayoutService. store may be nil.
func NewPayoutService(
	selector *StrategySelector,
	repos TransactionalRepositories,
	renderer PayoutRenderer,
	store ObjectStore,
	linkTTL time.Duration,
	logger *zap.Logger,
) *PayoutService {
	if linkTTL <= 0 {
		linkTTL = 15 * time.Minute
	}
	return &PayoutService{
		selector: selector,
		repos:    repos,
		renderer: renderer,
		store:    store,
		linkTTL:  linkTTL,
		now:      time.Now,
		logger:   logger,
	}
}

// GeneratePayoutDocuments renders one document per matched customer with a passport
func (s *PayoutService) GeneratePayoutDocuments(ctx context.Context, ownerID uuid.UUID) (*PayoutResult, error) {
	strategy := s.selector.Detect(ctx, ownerID)
	results, err := strategy.ReadResults(ctx, s.repos, ownerID)
	if err != nil {
		return nil, err
	}

	issued := s.now()
	identities := reconcile.PayoutIdentities(results)
	docs := make([]reconcile.PayoutDocument, 0, len(identities))
	for _, identity := range identities {
		doc, err := s.renderer.Render(identity, issued)
		if err != nil {
			s.logger.Warn("failed to render payout document",
				zap.String("owner_id", ownerID.String()),
				zap.String("name", identity.Name),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil, reconcile.ErrNothingToGenerate
	}

	bundle, err := s.renderer.Bundle(docs)
	if err != nil {
		return nil, fmt.Errorf("failed to bundle payout documents: %w", err)
	}

	result := &PayoutResult{
		FileName:  fmt.Sprintf("payouts_%s.zip", issued.Format("20060102_150405")),
		Documents: len(docs),
	}
	if s.store == nil {
		result.Data = bundle
	} else {
		key := fmt.Sprintf("payouts/%s/%s", ownerID, result.FileName)
		if err := s.store.Put(ctx, key, "application/zip", bundle); err != nil {
			return nil, fmt.Errorf("failed to upload payout bundle: %w", err)
		}
		if result.DownloadURL, err = s.store.PresignGet(ctx, key, s.linkTTL); err != nil {
			return nil, fmt.Errorf("failed to presign payout bundle: %w", err)
		}
	}

	s.logger.Info("payout documents generated",
		zap.String("owner_id", ownerID.String()),
		zap.String("variant", strategy.Variant().String()),
		zap.Int("documents", len(docs)),
		zap.Bool("uploaded", s.store != nil))
	return result, nil
}
