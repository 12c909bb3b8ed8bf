package crusher

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/storage"
	"p9e.in/crusher/utils"
)

type NewDispatch struct {
	CrusherRunID     uuid.UUID             `json:"crusherRunId" validate:"required"`
	SalesOrderID     *uuid.UUID            `json:"salesOrderId,omitempty"`
	PurchaseOrderID  *uuid.UUID            `json:"purchaseOrderId,omitempty"`
	DispatchDate     models.JSONTime       `json:"dispatchDate" validate:"required"`
	Quantity         decimal.Decimal       `json:"quantity" validate:"gt=0,qty"`
	Destination      string                `json:"destination" validate:"required,max=255"`
	VehicleNo        string                `json:"vehicleNo" validate:"required,max=20"`
	Driver           *string               `json:"driver,omitempty" validate:"omitempty,max=100"`
	PickupQuantity   *decimal.Decimal      `json:"pickupQuantity,omitempty" validate:"omitempty,gte=0,qty"`
	DropQuantity     *decimal.Decimal      `json:"dropQuantity,omitempty" validate:"omitempty,gte=0,qty"`
	DeliveryStatus   models.DeliveryStatus `json:"deliveryStatus,omitempty" validate:"omitempty,oneof=PENDING IN_TRANSIT DELIVERED"`
	DeliveryDuration *string               `json:"deliveryDuration,omitempty" validate:"omitempty,max=50"`
	Notes            *string               `json:"notes,omitempty"`
}

// DispatchPatch is a partial update. A zero UUID in SalesOrderID or
// PurchaseOrderID unlinks the order. JSON null reads the same as an absent
// field; optional details are unset by naming them in Clear.
type DispatchPatch struct {
	CrusherRunID     *uuid.UUID             `json:"crusherRunId,omitempty"`
	SalesOrderID     *uuid.UUID             `json:"salesOrderId,omitempty"`
	PurchaseOrderID  *uuid.UUID             `json:"purchaseOrderId,omitempty"`
	DispatchDate     *models.JSONTime       `json:"dispatchDate,omitempty"`
	Quantity         *decimal.Decimal       `json:"quantity,omitempty" validate:"omitempty,gt=0,qty"`
	Destination      *string                `json:"destination,omitempty" validate:"omitempty,max=255"`
	VehicleNo        *string                `json:"vehicleNo,omitempty" validate:"omitempty,max=20"`
	Driver           *string                `json:"driver,omitempty" validate:"omitempty,max=100"`
	PickupQuantity   *decimal.Decimal       `json:"pickupQuantity,omitempty" validate:"omitempty,gte=0,qty"`
	DropQuantity     *decimal.Decimal       `json:"dropQuantity,omitempty" validate:"omitempty,gte=0,qty"`
	DeliveryStatus   *models.DeliveryStatus `json:"deliveryStatus,omitempty" validate:"omitempty,oneof=PENDING IN_TRANSIT DELIVERED"`
	DeliveryDuration *string                `json:"deliveryDuration,omitempty" validate:"omitempty,max=50"`
	Notes            *string                `json:"notes,omitempty"`
	Clear            []string               `json:"clear,omitempty" validate:"omitempty,dive,oneof=driver pickupQuantity dropQuantity deliveryDuration notes"`
}

// clearableColumns maps the names accepted in DispatchPatch.Clear to columns.
var clearableColumns = map[string]string{
	"driver":           "driver",
	"pickupQuantity":   "pickup_quantity",
	"dropQuantity":     "drop_quantity",
	"deliveryDuration": "delivery_duration",
	"notes":            "notes",
}

type DispatchFilter struct {
	RunID            uuid.UUID
	SalesOrderID     uuid.UUID
	PurchaseOrderID  uuid.UUID
	DeliveryStatus   models.DeliveryStatus
	From             *time.Time
	To               *time.Time
	IncludeCancelled bool
}

type DispatchService struct {
	ledger
	store storage.Store
}

func NewDispatchService(db *gorm.DB, logger *logrus.Logger, store storage.Store, opts Options) *DispatchService {
	return &DispatchService{ledger: newLedger(db, logger, opts), store: store}
}

func validateNewDispatch(in *NewDispatch) error {
	in.Destination = strings.TrimSpace(in.Destination)
	in.VehicleNo = normalizeVehicleNo(in.VehicleNo)
	in.SalesOrderID = nilIfZero(in.SalesOrderID)
	in.PurchaseOrderID = nilIfZero(in.PurchaseOrderID)

	if err := utils.ValidateStruct(*in); err != nil {
		return err
	}
	return checkSingleOrder(in.SalesOrderID, in.PurchaseOrderID)
}

func checkSingleOrder(salesOrderID, purchaseOrderID *uuid.UUID) error {
	if salesOrderID != nil && purchaseOrderID != nil {
		return utils.ValidationError("a dispatch can belong to a sales order or a purchase order, not both",
			map[string]string{
				"salesOrderId":    "cannot be combined with purchaseOrderId",
				"purchaseOrderId": "cannot be combined with salesOrderId",
			})
	}
	return nil
}

func normalizeVehicleNo(v string) string {
	return strings.ToUpper(strings.Join(strings.Fields(v), ""))
}

func nilIfZero(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

func checkOrders(tx *gorm.DB, salesOrderID, purchaseOrderID *uuid.UUID) error {
	if salesOrderID != nil {
		var count int64
		if err := tx.Model(&models.SalesOrder{}).Where("id = ?", *salesOrderID).Count(&count).Error; err != nil {
			return utils.Internal("check sales order", err)
		}
		if count == 0 {
			return utils.NotFound("sales order")
		}
	}
	if purchaseOrderID != nil {
		var count int64
		if err := tx.Model(&models.PurchaseOrder{}).Where("id = ?", *purchaseOrderID).Count(&count).Error; err != nil {
			return utils.Internal("check purchase order", err)
		}
		if count == 0 {
			return utils.NotFound("purchase order")
		}
	}
	return nil
}

// CreateDispatch records a movement out of a run. The capacity check, the
// run counter update and the dispatch insert commit together or not at all.
func (s *DispatchService) CreateDispatch(ctx context.Context, in NewDispatch) (*models.Dispatch, error) {
	if err := validateNewDispatch(&in); err != nil {
		return nil, err
	}

	release, err := s.lockRuns(ctx, in.CrusherRunID)
	if err != nil {
		return nil, err
	}
	defer release()

	var created models.Dispatch
	err = s.transact(ctx, "create dispatch", func(tx *gorm.DB) error {
		run, err := loadRun(tx, in.CrusherRunID)
		if err != nil {
			return err
		}
		if err := checkOrders(tx, in.SalesOrderID, in.PurchaseOrderID); err != nil {
			return err
		}
		if err := reserve(tx, run, in.Quantity, decimal.Zero); err != nil {
			return err
		}

		created = models.Dispatch{
			CrusherRunID:     run.ID,
			SalesOrderID:     in.SalesOrderID,
			PurchaseOrderID:  in.PurchaseOrderID,
			DispatchDate:     in.DispatchDate,
			Quantity:         in.Quantity,
			Destination:      in.Destination,
			VehicleNo:        in.VehicleNo,
			Driver:           in.Driver,
			PickupQuantity:   in.PickupQuantity,
			DropQuantity:     in.DropQuantity,
			DeliveryStatus:   in.DeliveryStatus,
			DeliveryDuration: in.DeliveryDuration,
			Notes:            in.Notes,
		}
		if err := tx.Create(&created).Error; err != nil {
			return utils.Internal("insert dispatch", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"dispatchId": created.ID,
		"dispatchNo": created.DispatchNo,
		"runId":      created.CrusherRunID,
		"quantity":   created.Quantity.String(),
	}).Info("dispatch created")
	return s.GetDispatch(ctx, created.ID)
}

func loadDispatch(tx *gorm.DB, id uuid.UUID) (*models.Dispatch, error) {
	var d models.Dispatch
	err := forUpdate(tx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("dispatch")
	} else if err != nil {
		return nil, utils.Internal("load dispatch", err)
	}
	return &d, nil
}

// UpdateDispatch applies a partial update. A changed quantity or run moves
// the difference between the runs in the same transaction, under the same
// capacity rule as a new dispatch.
func (s *DispatchService) UpdateDispatch(ctx context.Context, id uuid.UUID, patch DispatchPatch) (*models.Dispatch, error) {
	if err := utils.ValidateStruct(patch); err != nil {
		return nil, err
	}
	if err := normalizePatch(&patch); err != nil {
		return nil, err
	}

	current, err := s.GetDispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	runIDs := []uuid.UUID{current.CrusherRunID}
	if patch.CrusherRunID != nil {
		runIDs = append(runIDs, *patch.CrusherRunID)
	}
	release, err := s.lockRuns(ctx, runIDs...)
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.transact(ctx, "update dispatch", func(tx *gorm.DB) error {
		d, err := loadDispatch(tx, id)
		if err != nil {
			return err
		}
		if d.IsCancelled() {
			return utils.ValidationError("a cancelled dispatch cannot be updated", nil)
		}

		salesOrderID, purchaseOrderID := d.SalesOrderID, d.PurchaseOrderID
		if patch.SalesOrderID != nil {
			salesOrderID = nilIfZero(patch.SalesOrderID)
		}
		if patch.PurchaseOrderID != nil {
			purchaseOrderID = nilIfZero(patch.PurchaseOrderID)
		}
		if err := checkSingleOrder(salesOrderID, purchaseOrderID); err != nil {
			return err
		}
		if err := checkOrders(tx, nilIfZero(patch.SalesOrderID), nilIfZero(patch.PurchaseOrderID)); err != nil {
			return err
		}

		newRunID := d.CrusherRunID
		if patch.CrusherRunID != nil {
			newRunID = *patch.CrusherRunID
		}
		newQty := d.Quantity
		if patch.Quantity != nil {
			newQty = *patch.Quantity
		}
		if err := s.moveQuantity(tx, d, newRunID, newQty); err != nil {
			return err
		}

		updates := dispatchUpdates(patch)
		updates["crusher_run_id"] = newRunID
		updates["quantity"] = newQty
		updates["sales_order_id"] = salesOrderID
		updates["purchase_order_id"] = purchaseOrderID
		if err := tx.Model(&models.Dispatch{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return utils.Internal("update dispatch", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"dispatchId": id}).Info("dispatch updated")
	return s.GetDispatch(ctx, id)
}

// moveQuantity credits the dispatch's current run and debits newRunID.
func (s *DispatchService) moveQuantity(tx *gorm.DB, d *models.Dispatch, newRunID uuid.UUID, newQty decimal.Decimal) error {
	if newRunID == d.CrusherRunID {
		if newQty.Equal(d.Quantity) {
			return nil
		}
		run, err := loadRun(tx, d.CrusherRunID)
		if err != nil {
			return err
		}
		return reserve(tx, run, newQty, d.Quantity)
	}

	runs, err := loadRunsOrdered(tx, d.CrusherRunID, newRunID)
	if err != nil {
		return err
	}
	if err := reserve(tx, runs[d.CrusherRunID], decimal.Zero, d.Quantity); err != nil {
		return err
	}
	return reserve(tx, runs[newRunID], newQty, decimal.Zero)
}

func normalizePatch(p *DispatchPatch) error {
	details := map[string]string{}
	if p.Destination != nil {
		v := strings.TrimSpace(*p.Destination)
		if v == "" {
			details["destination"] = "is required"
		}
		p.Destination = &v
	}
	if p.VehicleNo != nil {
		v := normalizeVehicleNo(*p.VehicleNo)
		if v == "" {
			details["vehicleNo"] = "is required"
		}
		p.VehicleNo = &v
	}
	if p.DispatchDate != nil && p.DispatchDate.IsZero() {
		details["dispatchDate"] = "is required"
	}
	if p.CrusherRunID != nil && *p.CrusherRunID == uuid.Nil {
		details["crusherRunId"] = "is required"
	}
	set := map[string]bool{
		"driver":           p.Driver != nil,
		"pickupQuantity":   p.PickupQuantity != nil,
		"dropQuantity":     p.DropQuantity != nil,
		"deliveryDuration": p.DeliveryDuration != nil,
		"notes":            p.Notes != nil,
	}
	for _, name := range p.Clear {
		if set[name] {
			details[name] = "cannot be set and cleared together"
		}
	}
	if len(details) > 0 {
		return utils.ValidationError("validation failed", details)
	}
	if p.SalesOrderID != nil && p.PurchaseOrderID != nil && *p.SalesOrderID != uuid.Nil && *p.PurchaseOrderID != uuid.Nil {
		return checkSingleOrder(p.SalesOrderID, p.PurchaseOrderID)
	}
	return nil
}

func dispatchUpdates(p DispatchPatch) map[string]interface{} {
	updates := map[string]interface{}{}
	if p.DispatchDate != nil {
		updates["dispatch_date"] = *p.DispatchDate
	}
	if p.Destination != nil {
		updates["destination"] = *p.Destination
	}
	if p.VehicleNo != nil {
		updates["vehicle_no"] = *p.VehicleNo
	}
	if p.Driver != nil {
		updates["driver"] = *p.Driver
	}
	if p.PickupQuantity != nil {
		updates["pickup_quantity"] = *p.PickupQuantity
	}
	if p.DropQuantity != nil {
		updates["drop_quantity"] = *p.DropQuantity
	}
	if p.DeliveryStatus != nil {
		updates["delivery_status"] = *p.DeliveryStatus
	}
	if p.DeliveryDuration != nil {
		updates["delivery_duration"] = *p.DeliveryDuration
	}
	if p.Notes != nil {
		updates["notes"] = *p.Notes
	}
	for _, name := range p.Clear {
		updates[clearableColumns[name]] = nil
	}
	return updates
}

// CancelDispatch voids a dispatch and gives its quantity back to the run.
func (s *DispatchService) CancelDispatch(ctx context.Context, id uuid.UUID, reason string) (*models.Dispatch, error) {
	current, err := s.GetDispatch(ctx, id)
	if err != nil {
		return nil, err
	}
	release, err := s.lockRuns(ctx, current.CrusherRunID)
	if err != nil {
		return nil, err
	}
	defer release()

	reason = strings.TrimSpace(reason)
	err = s.transact(ctx, "cancel dispatch", func(tx *gorm.DB) error {
		d, err := loadDispatch(tx, id)
		if err != nil {
			return err
		}
		if d.IsCancelled() {
			return utils.ValidationError("dispatch is already cancelled", nil)
		}
		run, err := loadRun(tx, d.CrusherRunID)
		if err != nil {
			return err
		}
		if err := reserve(tx, run, decimal.Zero, d.Quantity); err != nil {
			return err
		}

		updates := map[string]interface{}{"cancelled_at": time.Now().UTC()}
		if reason != "" {
			updates["cancel_reason"] = reason
		}
		if err := tx.Model(&models.Dispatch{}).Where("id = ?", d.ID).Updates(updates).Error; err != nil {
			return utils.Internal("cancel dispatch", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"dispatchId": id,
		"runId":      current.CrusherRunID,
		"quantity":   current.Quantity.String(),
	}).Info("dispatch cancelled")
	return s.GetDispatch(ctx, id)
}

func (s *DispatchService) withAssociations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("CrusherRun.Material").
		Preload("SalesOrder.Customer").
		Preload("SalesOrder.Material").
		Preload("PurchaseOrder.Vendor").
		Preload("PurchaseOrder.Material")
}

func (s *DispatchService) GetDispatch(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	var d models.Dispatch
	err := s.withAssociations(s.db.WithContext(ctx)).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("dispatch")
	} else if err != nil {
		return nil, utils.Internal("get dispatch", err)
	}
	return &d, nil
}

func (s *DispatchService) ListDispatches(ctx context.Context, f DispatchFilter) ([]models.Dispatch, error) {
	q := s.withAssociations(s.db.WithContext(ctx))
	if f.RunID != uuid.Nil {
		q = q.Where("crusher_run_id = ?", f.RunID)
	}
	if f.SalesOrderID != uuid.Nil {
		q = q.Where("sales_order_id = ?", f.SalesOrderID)
	}
	if f.PurchaseOrderID != uuid.Nil {
		q = q.Where("purchase_order_id = ?", f.PurchaseOrderID)
	}
	if f.DeliveryStatus != "" {
		q = q.Where("delivery_status = ?", f.DeliveryStatus)
	}
	if f.From != nil {
		q = q.Where("dispatch_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("dispatch_date < ?", f.To.UTC())
	}
	if !f.IncludeCancelled {
		q = q.Where("cancelled_at IS NULL")
	}

	var out []models.Dispatch
	if err := q.Order("dispatch_date DESC, dispatch_no").Find(&out).Error; err != nil {
		return nil, utils.Internal("list dispatches", err)
	}
	return out, nil
}

// AttachDocument stores a file and appends its URL to the dispatch.
func (s *DispatchService) AttachDocument(ctx context.Context, id uuid.UUID, filename, contentType string, r io.Reader) (*models.Dispatch, error) {
	if s.store == nil {
		return nil, utils.Internal("document store not configured", errors.New("nil store"))
	}
	if _, err := s.GetDispatch(ctx, id); err != nil {
		return nil, err
	}

	url, err := s.store.Put(ctx, filename, contentType, r)
	if err != nil {
		return nil, utils.Internal("store dispatch document", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := loadDispatch(tx, id)
		if err != nil {
			return err
		}
		if err := d.SetDocumentURLs(append(d.DocumentURLs(), url)); err != nil {
			return utils.Internal("encode documents", err)
		}
		if err := tx.Model(&models.Dispatch{}).Where("id = ?", id).Update("documents", d.Documents).Error; err != nil {
			return utils.Internal("save documents", err)
		}
		return nil
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"dispatchId": id,
			"url":        url,
			"error":      err.Error(),
		}).Warn("stored document is not linked to any dispatch")
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"dispatchId": id, "url": url}).Info("dispatch document attached")
	return s.GetDispatch(ctx, id)
}
