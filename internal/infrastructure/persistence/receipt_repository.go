package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// Create inserts a receipt
func (r *GormReceiptRepository) Create(ctx context.Context, receipt *reconcile.Receipt) error {
	return r.db.WithContext(ctx).Create(models.ReceiptModelFromDomain(receipt)).Error
}

// FindByID finds a receipt owned by ownerID
func (r *GormReceiptRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrReceiptNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update writes the mutable receipt fields
func (r *GormReceiptRepository) Update(ctx context.Context, receipt *reconcile.Receipt) error {
	result := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("owner_id = ? AND id = ?", receipt.OwnerID, receipt.ID).
		Updates(map[string]interface{}{
			"receipt_number":  receipt.ReceiptNumber,
			"passport_number": receipt.PassportNumber,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reconcile.ErrReceiptNotFound
	}
	return nil
}

// FindByOwner lists the owner's receipts of a variant ordered by receipt number
func (r *GormReceiptRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant) ([]reconcile.Receipt, error) {
	var receiptModels []models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND variant = ?", ownerID, variant).
		Order("receipt_number ASC, created_at ASC").
		Find(&receiptModels).Error; err != nil {
		return nil, err
	}

	receipts := make([]reconcile.Receipt, len(receiptModels))
	for i := range receiptModels {
		receipts[i] = *receiptModels[i].ToDomain()
	}
	return receipts, nil
}

// CountByVariant counts the owner's receipts per variant
func (r *GormReceiptRepository) CountByVariant(ctx context.Context, ownerID uuid.UUID) (map[reconcile.Variant]int64, error) {
	var rows []struct {
		Variant reconcile.Variant
		Count   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Select("variant, COUNT(*) AS count").
		Where("owner_id = ?", ownerID).
		Group("variant").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[reconcile.Variant]int64, len(rows))
	for _, row := range rows {
		counts[row.Variant] = row.Count
	}
	return counts, nil
}

// DeleteByOwner removes every receipt of the owner
func (r *GormReceiptRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.ReceiptModel{})
	return result.RowsAffected, result.Error
}

var _ reconcile.ReceiptRepository = (*GormReceiptRepository)(nil)
