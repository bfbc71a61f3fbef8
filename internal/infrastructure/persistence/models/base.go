package models

import (
	"time"

	"github.com/dutyfree/reconcile/internal/domain/shared"
	"github.com/google/uuid"
)

// OwnedModel provides common persistence fields for owner-scoped session rows.
// It maps to the domain's BaseEntity.
type OwnedModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts OwnedModel to domain BaseEntity
func (m *OwnedModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates OwnedModel from domain BaseEntity
func (m *OwnedModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.OwnerID = e.OwnerID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}
