package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	referenceInsertBatchSize = 500
	referenceLookupChunkSize = 500
)

// GormReferenceRepository implements ReferenceRepository using GORM
type GormReferenceRepository struct {
	db *gorm.DB
}

// NewGormReferenceRepository creates a new GormReferenceRepository
func NewGormReferenceRepository(db *gorm.DB) *GormReferenceRepository {
	return &GormReferenceRepository{db: db}
}

// FindByReceiptNumber finds the row for a normalized receipt number
func (r *GormReferenceRepository) FindByReceiptNumber(ctx context.Context, variant reconcile.Variant, receiptNumber string) (*reconcile.ReferenceRow, error) {
	var model models.ReferenceRowModel
	if err := r.db.WithContext(ctx).
		Where("variant = ? AND receipt_number = ?", variant, receiptNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByName returns the first row carrying the customer name
func (r *GormReferenceRepository) FindByName(ctx context.Context, variant reconcile.Variant, name string) (*reconcile.ReferenceRow, error) {
	var model models.ReferenceRowModel
	if err := r.db.WithContext(ctx).
		Where("variant = ? AND name = ?", variant, name).
		Order("receipt_number ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ExistingReceiptNumbers reports which of the given receipt numbers already have rows
func (r *GormReferenceRepository) ExistingReceiptNumbers(ctx context.Context, variant reconcile.Variant, receiptNumbers []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	for start := 0; start < len(receiptNumbers); start += referenceLookupChunkSize {
		end := start + referenceLookupChunkSize
		if end > len(receiptNumbers) {
			end = len(receiptNumbers)
		}

		var found []string
		if err := r.db.WithContext(ctx).
			Model(&models.ReferenceRowModel{}).
			Where("variant = ? AND receipt_number IN ?", variant, receiptNumbers[start:end]).
			Pluck("receipt_number", &found).Error; err != nil {
			return nil, err
		}
		for _, number := range found {
			existing[number] = true
		}
	}
	return existing, nil
}

// CreateBatch inserts rows in batches
func (r *GormReferenceRepository) CreateBatch(ctx context.Context, rows []*reconcile.ReferenceRow) error {
	if len(rows) == 0 {
		return nil
	}
	return translateSchemaError(r.db.WithContext(ctx).CreateInBatches(toReferenceModels(rows), referenceInsertBatchSize).Error)
}

// ReplaceAll drops every row of the variant and inserts rows in one transaction
func (r *GormReferenceRepository) ReplaceAll(ctx context.Context, variant reconcile.Variant, rows []*reconcile.ReferenceRow) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("variant = ?", variant).Delete(&models.ReferenceRowModel{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(toReferenceModels(rows), referenceInsertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// BackfillPassportNumber sets the row's passport number unless it already equals it
func (r *GormReferenceRepository) BackfillPassportNumber(ctx context.Context, variant reconcile.Variant, receiptNumber, passportNumber string) (bool, error) {
	if passportNumber == "" {
		return false, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.ReferenceRowModel{}).
		Where("variant = ? AND receipt_number = ? AND passport_number <> ?", variant, receiptNumber, passportNumber).
		Updates(map[string]interface{}{
			"passport_number": passportNumber,
			"backfilled":      true,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ClearBackfilledPassports resets the passport numbers that were copied from the owner's receipts
func (r *GormReferenceRepository) ClearBackfilledPassports(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	ownerReceipts := r.db.
		Model(&models.ReceiptModel{}).
		Select("receipt_number").
		Where("owner_id = ? AND variant = ?", ownerID, reconcile.VariantShilla)

	result := r.db.WithContext(ctx).
		Model(&models.ReferenceRowModel{}).
		Where("variant = ? AND backfilled = ? AND receipt_number IN (?)", reconcile.VariantShilla, true, ownerReceipts).
		Updates(map[string]interface{}{
			"passport_number": "",
			"backfilled":      false,
		})
	return result.RowsAffected, result.Error
}

// Count returns the number of rows for a variant
func (r *GormReferenceRepository) Count(ctx context.Context, variant reconcile.Variant) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ReferenceRowModel{}).
		Where("variant = ?", variant).
		Count(&count).Error
	return count, err
}

func toReferenceModels(rows []*reconcile.ReferenceRow) []*models.ReferenceRowModel {
	referenceModels := make([]*models.ReferenceRowModel, len(rows))
	for i, row := range rows {
		referenceModels[i] = models.ReferenceRowModelFromDomain(row)
	}
	return referenceModels
}

var _ reconcile.ReferenceRepository = (*GormReferenceRepository)(nil)

// translateSchemaError wraps errors caused by a table shape the insert does not
// fit (postgres class 42, sqlite missing table or column) as ErrReferenceSchema.
func translateSchemaError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "42") {
		return fmt.Errorf("%w: %s", reconcile.ErrReferenceSchema, pgErr.Message)
	}
	msg := err.Error()
	for _, marker := range []string{"no such table", "no such column", "has no column named"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %s", reconcile.ErrReferenceSchema, msg)
		}
	}
	return err
}
