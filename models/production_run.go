package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RunStatus string

const (
	RunPending             RunStatus = "PENDING"
	RunCompleted           RunStatus = "COMPLETED"
	RunPartiallyDispatched RunStatus = "PARTIALLY_DISPATCHED"
	RunFullyDispatched     RunStatus = "FULLY_DISPATCHED"
)

// ProductionRun is one batch of material produced by a crusher machine.
// It owns the produced-quantity budget that dispatches draw down.
//
// DispatchedQty only changes through the dispatch ledger and always stays
// within [0, ProducedQty]. Version guards every write (compare-and-swap).
type ProductionRun struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"materialId"`
	Material        *Material       `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	MachineID       string          `gorm:"size:50;index;not null" json:"machineId"`
	InputQty        decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"inputQty"`
	ProducedQty     decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"producedQty"`
	DispatchedQty   decimal.Decimal `gorm:"type:numeric(14,3);not null" json:"dispatchedQty"`
	RunDate         JSONTime        `gorm:"index;not null" json:"runDate"`
	ProductionState RunStatus       `gorm:"size:20;not null" json:"productionState"`
	Version         int64           `gorm:"not null" json:"version"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`

	// derived, never persisted
	AvailableQty decimal.Decimal `gorm:"-" json:"availableQty"`
	Status       RunStatus       `gorm:"-" json:"status"`
}

func (r *ProductionRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.ProductionState == "" {
		r.ProductionState = RunPending
	}
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}

func (r *ProductionRun) AfterFind(tx *gorm.DB) error {
	r.Refresh()
	return nil
}

// Available is producedQty - dispatchedQty, the budget still open for dispatch.
func (r *ProductionRun) Available() decimal.Decimal {
	return r.ProducedQty.Sub(r.DispatchedQty)
}

// Refresh recomputes the derived fields from the stored quantities.
func (r *ProductionRun) Refresh() {
	r.AvailableQty = r.Available()
	r.Status = DeriveRunStatus(r.ProductionState, r.ProducedQty, r.DispatchedQty)
}

// DeriveRunStatus labels a run from its quantities. The dispatch labels win
// over whatever production state the operator declared.
func DeriveRunStatus(state RunStatus, produced, dispatched decimal.Decimal) RunStatus {
	switch {
	case dispatched.IsPositive() && dispatched.GreaterThanOrEqual(produced):
		return RunFullyDispatched
	case dispatched.IsPositive():
		return RunPartiallyDispatched
	case state == RunCompleted:
		return RunCompleted
	default:
		return RunPending
	}
}

// IsDeclarableState reports whether callers may set s directly.
func IsDeclarableState(s RunStatus) bool {
	return s == RunPending || s == RunCompleted
}
