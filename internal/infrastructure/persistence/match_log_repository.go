package persistence

import (
	"context"
	"errors"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const matchLogBatchSize = 500

// GormMatchLogRepository implements MatchLogRepository using GORM.
// The table is append-only; Latest resolves the current decision.
type GormMatchLogRepository struct {
	db *gorm.DB
}

// NewGormMatchLogRepository creates a new GormMatchLogRepository
func NewGormMatchLogRepository(db *gorm.DB) *GormMatchLogRepository {
	return &GormMatchLogRepository{db: db}
}

// Create appends a log entry and fills in its ID
func (r *GormMatchLogRepository) Create(ctx context.Context, entry *reconcile.MatchLogEntry) error {
	model := models.MatchLogModelFromDomain(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	entry.ID = model.ID
	return nil
}

// CreateBatch appends entries in batches
func (r *GormMatchLogRepository) CreateBatch(ctx context.Context, entries []*reconcile.MatchLogEntry) error {
	if len(entries) == 0 {
		return nil
	}
	logModels := make([]*models.MatchLogModel, len(entries))
	for i, entry := range entries {
		logModels[i] = models.MatchLogModelFromDomain(entry)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(logModels, matchLogBatchSize).Error; err != nil {
		return err
	}
	for i := range entries {
		entries[i].ID = logModels[i].ID
	}
	return nil
}

// Latest returns the newest entry for a receipt number, or nil when none exists
func (r *GormMatchLogRepository) Latest(ctx context.Context, ownerID uuid.UUID, receiptNumber string) (*reconcile.MatchLogEntry, error) {
	var model models.MatchLogModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND receipt_number = ?", ownerID, receiptNumber).
		Order("checked_at DESC, id DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// DeleteByOwner removes every log entry of the owner
func (r *GormMatchLogRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.MatchLogModel{})
	return result.RowsAffected, result.Error
}

var _ reconcile.MatchLogRepository = (*GormMatchLogRepository)(nil)
