package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
)

// Dispatch is one physical movement of material out of a production run,
// optionally tied to a sales order (outbound) or a purchase order (inbound).
type Dispatch struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DispatchNo      string         `gorm:"size:40;uniqueIndex;not null" json:"dispatchNo"`
	CrusherRunID    uuid.UUID      `gorm:"type:uuid;index;not null" json:"crusherRunId"`
	CrusherRun      *ProductionRun `gorm:"foreignKey:CrusherRunID" json:"crusherRun,omitempty"`
	SalesOrderID    *uuid.UUID     `gorm:"type:uuid;index" json:"salesOrderId,omitempty"`
	SalesOrder      *SalesOrder    `gorm:"foreignKey:SalesOrderID" json:"salesOrder,omitempty"`
	PurchaseOrderID *uuid.UUID     `gorm:"type:uuid;index" json:"purchaseOrderId,omitempty"`
	PurchaseOrder   *PurchaseOrder `gorm:"foreignKey:PurchaseOrderID" json:"purchaseOrder,omitempty"`

	DispatchDate     JSONTime         `gorm:"index;not null" json:"dispatchDate"`
	Quantity         decimal.Decimal  `gorm:"type:numeric(14,3);not null" json:"quantity"`
	Destination      string           `gorm:"size:255;not null" json:"destination"`
	VehicleNo        string           `gorm:"size:20;index;not null" json:"vehicleNo"`
	Driver           *string          `gorm:"size:100" json:"driver,omitempty"`
	PickupQuantity   *decimal.Decimal `gorm:"type:numeric(14,3)" json:"pickupQuantity,omitempty"`
	DropQuantity     *decimal.Decimal `gorm:"type:numeric(14,3)" json:"dropQuantity,omitempty"`
	DeliveryStatus   DeliveryStatus   `gorm:"size:20;index;not null" json:"deliveryStatus"`
	DeliveryDuration *string          `gorm:"size:50" json:"deliveryDuration,omitempty"`
	Notes            *string          `gorm:"type:text" json:"notes,omitempty"`
	Documents        datatypes.JSON   `json:"documents"`

	CancelledAt  *time.Time `gorm:"index" json:"cancelledAt,omitempty"`
	CancelReason *string    `gorm:"size:255" json:"cancelReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (d *Dispatch) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.DispatchNo == "" {
		d.DispatchNo = DocumentNumber("DSP", d.DispatchDate.Time(), d.ID)
	}
	if d.DeliveryStatus == "" {
		d.DeliveryStatus = DeliveryPending
	}
	if len(d.Documents) == 0 {
		d.Documents = datatypes.JSON("[]")
	}
	return nil
}

func (d *Dispatch) IsCancelled() bool { return d.CancelledAt != nil }

// DocumentURLs decodes the stored document list.
func (d *Dispatch) DocumentURLs() []string {
	var urls []string
	if len(d.Documents) == 0 {
		return urls
	}
	_ = json.Unmarshal(d.Documents, &urls)
	return urls
}

// SetDocumentURLs encodes urls into the documents column.
func (d *Dispatch) SetDocumentURLs(urls []string) error {
	if urls == nil {
		urls = []string{}
	}
	b, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	d.Documents = datatypes.JSON(b)
	return nil
}

// IsValidDeliveryStatus reports whether s is a known delivery status.
func IsValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryPending, DeliveryInTransit, DeliveryDelivered:
		return true
	}
	return false
}
