package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer buys material through sales orders.
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;index;not null" json:"name"`
	Phone     *string   `gorm:"size:20" json:"phone,omitempty"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	GSTIN     *string   `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Vendor supplies material through purchase orders.
type Vendor struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"size:150;index;not null" json:"name"`
	Phone     *string   `gorm:"size:20" json:"phone,omitempty"`
	Address   *string   `gorm:"type:text" json:"address,omitempty"`
	GSTIN     *string   `gorm:"column:gstin;size:15" json:"gstin,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (v *Vendor) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
