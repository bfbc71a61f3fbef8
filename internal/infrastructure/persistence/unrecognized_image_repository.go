package persistence

import (
	"context"

	"github.com/dutyfree/reconcile/internal/domain/reconcile"
	"github.com/dutyfree/reconcile/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUnrecognizedImageRepository implements UnrecognizedImageRepository using GORM
type GormUnrecognizedImageRepository struct {
	db *gorm.DB
}

// NewGormUnrecognizedImageRepository creates a new GormUnrecognizedImageRepository
func NewGormUnrecognizedImageRepository(db *gorm.DB) *GormUnrecognizedImageRepository {
	return &GormUnrecognizedImageRepository{db: db}
}

// Create inserts an unrecognized image record
func (r *GormUnrecognizedImageRepository) Create(ctx context.Context, image *reconcile.UnrecognizedImage) error {
	return r.db.WithContext(ctx).Create(models.UnrecognizedImageModelFromDomain(image)).Error
}

// FindByOwner lists the owner's unrecognized images, newest first
func (r *GormUnrecognizedImageRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]reconcile.UnrecognizedImage, error) {
	var imageModels []models.UnrecognizedImageModel
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&imageModels).Error; err != nil {
		return nil, err
	}
	images := make([]reconcile.UnrecognizedImage, len(imageModels))
	for i := range imageModels {
		images[i] = *imageModels[i].ToDomain()
	}
	return images, nil
}

// DeleteByOwner removes every unrecognized image record of the owner
func (r *GormUnrecognizedImageRepository) DeleteByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&models.UnrecognizedImageModel{})
	return result.RowsAffected, result.Error
}

var _ reconcile.UnrecognizedImageRepository = (*GormUnrecognizedImageRepository)(nil)
