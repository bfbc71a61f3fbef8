package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity provides common fields for owner-scoped entities
type BaseEntity struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity(ownerID uuid.UUID) BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch bumps UpdatedAt
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// OwnedBy reports whether the entity belongs to the given owner
func (e *BaseEntity) OwnedBy(ownerID uuid.UUID) bool {
	return e.OwnerID == ownerID
}
