package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderOpen      OrderStatus = "OPEN"
	OrderClosed    OrderStatus = "CLOSED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// SalesOrder is the commercial header for an outbound sale. Dispatches
// reference it for reporting; dispatch activity never mutates it.
type SalesOrder struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo    string          `gorm:"size:40;uniqueIndex;not null" json:"orderNo"`
	CustomerID uuid.UUID       `gorm:"type:uuid;index;not null" json:"customerId"`
	Customer   *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	MaterialID uuid.UUID       `gorm:"type:uuid;index;not null" json:"materialId"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"rate"`
	OrderDate  JSONTime        `gorm:"index;not null" json:"orderDate"`
	Status     OrderStatus     `gorm:"size:20;index;not null" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

// PurchaseOrder is the commercial header for an inbound receipt.
type PurchaseOrder struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderNo    string          `gorm:"size:40;uniqueIndex;not null" json:"orderNo"`
	VendorID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"vendorId"`
	Vendor     *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	MaterialID uuid.UUID       `gorm:"type:uuid;index;not null" json:"materialId"`
	Material   *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Quantity   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"quantity"`
	Rate       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"rate"`
	OrderDate  JSONTime        `gorm:"index;not null" json:"orderDate"`
	Status     OrderStatus     `gorm:"size:20;index;not null" json:"status"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (o *SalesOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNo == "" {
		o.OrderNo = DocumentNumber("SO", o.OrderDate.Time(), o.ID)
	}
	if o.Status == "" {
		o.Status = OrderOpen
	}
	return nil
}

func (o *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderNo == "" {
		o.OrderNo = DocumentNumber("PO", o.OrderDate.Time(), o.ID)
	}
	if o.Status == "" {
		o.Status = OrderOpen
	}
	return nil
}

// DocumentNumber builds a human-facing number such as SO-20250516-3F2A9C
// from the document date and the first bytes of its id.
func DocumentNumber(prefix string, date time.Time, id uuid.UUID) string {
	if date.IsZero() {
		date = time.Now()
	}
	return fmt.Sprintf("%s-%s-%s", prefix, date.UTC().Format("20060102"),
		strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6]))
}
