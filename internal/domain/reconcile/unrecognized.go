package reconcile

import (
	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
)

// UnrecognizedImage is an uploaded image the OCR pipeline could not use
type UnrecognizedImage struct {
	shared.BaseEntity
	FilePath string
	Reason   string
}

// NewUnrecognizedImage records an image with the reason it failed
func NewUnrecognizedImage(ownerID uuid.UUID, filePath, reason string) *UnrecognizedImage {
	if r := []rune(reason); len(r) > 500 {
		reason = string(r[:500])
	}
	return &UnrecognizedImage{
		BaseEntity: shared.NewBaseEntity(ownerID),
		FilePath:   filePath,
		Reason:     reason,
	}
}
