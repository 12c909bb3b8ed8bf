package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Material is reference data for everything that moves through the yard,
// e.g. M.SAND measured in MT. Immutable once created.
type Material struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	UnitOfMeasure string    `gorm:"size:20;not null" json:"unitOfMeasure"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
