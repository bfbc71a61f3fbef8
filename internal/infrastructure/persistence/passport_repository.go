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

// GormPassportRepository implements PassportRepository using GORM
type GormPassportRepository struct {
	db *gorm.DB
}

// NewGormPassportRepository creates a new GormPassportRepository
func NewGormPassportRepository(db *gorm.DB) *GormPassportRepository {
	return &GormPassportRepository{db: db}
}

// Create inserts a passport
func (r *GormPassportRepository) Create(ctx context.Context, passport *reconcile.Passport) error {
	return r.db.WithContext(ctx).Create(models.PassportModelFromDomain(passport)).Error
}

// FindByID finds a passport owned by ownerID
func (r *GormPassportRepository) FindByID(ctx context.Context, ownerID, id uuid.UUID) (*reconcile.Passport, error) {
	var model models.PassportModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", ownerID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrPassportNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update writes the mutable passport fields including the derived match flag
func (r *GormPassportRepository) Update(ctx context.Context, passport *reconcile.Passport) error {
	result := r.db.WithContext(ctx).
		Model(&models.PassportModel{}).
		Where("owner_id = ? AND id = ?", passport.OwnerID, passport.ID).
		Updates(map[string]interface{}{
			"name":            passport.Name,
			"passport_number": passport.PassportNumber,
			"birthday":        passport.Birthday,
			"is_matched":      passport.IsMatched,
			"updated_at":      time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return reconcile.ErrPassportNotFound
	}
	return nil
}

// FindByName returns the owner's earliest passport with exactly this name
func (r *GormPassportRepository) FindByName(ctx context.Context, ownerID uuid.UUID, name string) (*reconcile.Passport, error) {
	var model models.PassportModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND name = ?", ownerID, name).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrPassportNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber returns the owner's earliest passport carrying passportNumber, or nil
func (r *GormPassportRepository) FindByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (*reconcile.Passport, error) {
	if passportNumber == "" {
		return nil, nil
	}
	var model models.PassportModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND passport_number = ?", ownerID, passportNumber).
		Order("created_at ASC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// MarkMatchedByNumber flags the owner's unmatched passports carrying passportNumber
func (r *GormPassportRepository) MarkMatchedByNumber(ctx context.Context, ownerID uuid.UUID, passportNumber string) (int64, error) {
	if passportNumber == "" {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.PassportModel{}).
		Where("owner_id = ? AND passport_number = ? AND is_matched = ?", ownerID, passportNumber, false).
		Updates(map[string]interface{}{
			"is_matched": true,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// FindUnmatched lists passports not yet matched
func (r *GormPassportRepository) FindUnmatched(ctx context.Context, ownerID uuid.UUID) ([]reconcile.Passport, error) {
	var passportModels []models.PassportModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_matched = ?", ownerID, false).
		Order("created_at ASC").
		Find(&passportModels).Error; err != nil {
		return nil, err
	}
	return toPassports(passportModels), nil
}

// FindUnmatchedWithoutReference lists unmatched passports whose name has no reference row
func (r *GormPassportRepository) FindUnmatchedWithoutReference(ctx context.Context, ownerID uuid.UUID, variant reconcile.Variant) ([]reconcile.Passport, error) {
	var passportModels []models.PassportModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ? AND is_matched = ?", ownerID, false).
		Where("NOT EXISTS (SELECT 1 FROM reference_rows rr WHERE rr.variant = ? AND rr.name = passports.name)", variant).
		Order("created_at ASC").
		Find(&passportModels).Error; err != nil {
		return nil, err
	}
	return toPassports(passportModels), nil
}

// Count returns the owner's total and matched passport counts
func (r *GormPassportRepository) Count(ctx context.Context, ownerID uuid.UUID) (int64, int64, error) {
	var counts struct {
		Total   int64
		Matched int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PassportModel{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN is_matched = ? THEN 1 ELSE 0 END), 0) AS matched", true).
		Where("owner_id = ?", ownerID).
		Scan(&counts).Error; err != nil {
		return 0, 0, err
	}
	return counts.Total, counts.Matched, nil
}

// DeleteByOwner removes every passport of the owner
func (r *GormPassportRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.PassportModel{})
	return result.RowsAffected, result.Error
}

func toPassports(passportModels []models.PassportModel) []reconcile.Passport {
	passports := make([]reconcile.Passport, len(passportModels))
	for i := range passportModels {
		passports[i] = *passportModels[i].ToDomain()
	}
	return passports
}

var _ reconcile.PassportRepository = (*GormPassportRepository)(nil)
