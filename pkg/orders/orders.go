// Package orders keeps the sales and purchase order headers. Dispatches
// point at orders; nothing in dispatch handling writes back to them.
package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/utils"
)

type NewSalesOrder struct {
	CustomerID uuid.UUID       `json:"customerId" validate:"required"`
	MaterialID uuid.UUID       `json:"materialId" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0,qty"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0,money"`
	OrderDate  models.JSONTime `json:"orderDate" validate:"required"`
}

type NewPurchaseOrder struct {
	VendorID   uuid.UUID       `json:"vendorId" validate:"required"`
	MaterialID uuid.UUID       `json:"materialId" validate:"required"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0,qty"`
	Rate       decimal.Decimal `json:"rate" validate:"gte=0,money"`
	OrderDate  models.JSONTime `json:"orderDate" validate:"required"`
}

// OrderFilter narrows a list. Zero values are ignored.
type OrderFilter struct {
	PartyID    uuid.UUID
	MaterialID uuid.UUID
	Status     models.OrderStatus
}

// Fulfillment compares what an order asked for with what moved against it.
// RemainingQty goes negative when an order is over-dispatched.
type Fulfillment struct {
	OrderID       uuid.UUID       `json:"orderId"`
	OrderNo       string          `json:"orderNo"`
	OrderedQty    decimal.Decimal `json:"orderedQty"`
	DispatchedQty decimal.Decimal `json:"dispatchedQty"`
	DeliveredQty  decimal.Decimal `json:"deliveredQty"`
	RemainingQty  decimal.Decimal `json:"remainingQty"`
	DispatchCount int             `json:"dispatchCount"`
}

type OrderService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewOrderService(db *gorm.DB, logger *logrus.Logger) *OrderService {
	return &OrderService{db: db, logger: logger}
}

func (s *OrderService) CreateSalesOrder(ctx context.Context, in NewSalesOrder) (*models.SalesOrder, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := mustExist(db, &models.Customer{}, in.CustomerID, "customer"); err != nil {
		return nil, err
	}
	if err := mustExist(db, &models.Material{}, in.MaterialID, "material"); err != nil {
		return nil, err
	}

	order := models.SalesOrder{
		CustomerID: in.CustomerID,
		MaterialID: in.MaterialID,
		Quantity:   in.Quantity,
		Rate:       in.Rate,
		OrderDate:  in.OrderDate,
	}
	if err := db.Create(&order).Error; err != nil {
		return nil, utils.Internal("create sales order", err)
	}
	s.logger.WithFields(logrus.Fields{"orderId": order.ID, "orderNo": order.OrderNo}).Info("sales order created")
	return s.GetSalesOrder(ctx, order.ID)
}

func (s *OrderService) CreatePurchaseOrder(ctx context.Context, in NewPurchaseOrder) (*models.PurchaseOrder, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	if err := mustExist(db, &models.Vendor{}, in.VendorID, "vendor"); err != nil {
		return nil, err
	}
	if err := mustExist(db, &models.Material{}, in.MaterialID, "material"); err != nil {
		return nil, err
	}

	order := models.PurchaseOrder{
		VendorID:   in.VendorID,
		MaterialID: in.MaterialID,
		Quantity:   in.Quantity,
		Rate:       in.Rate,
		OrderDate:  in.OrderDate,
	}
	if err := db.Create(&order).Error; err != nil {
		return nil, utils.Internal("create purchase order", err)
	}
	s.logger.WithFields(logrus.Fields{"orderId": order.ID, "orderNo": order.OrderNo}).Info("purchase order created")
	return s.GetPurchaseOrder(ctx, order.ID)
}

func (s *OrderService) GetSalesOrder(ctx context.Context, id uuid.UUID) (*models.SalesOrder, error) {
	var order models.SalesOrder
	err := s.db.WithContext(ctx).Preload("Customer").Preload("Material").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("sales order")
	} else if err != nil {
		return nil, utils.Internal("get sales order", err)
	}
	return &order, nil
}

func (s *OrderService) GetPurchaseOrder(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	err := s.db.WithContext(ctx).Preload("Vendor").Preload("Material").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.NotFound("purchase order")
	} else if err != nil {
		return nil, utils.Internal("get purchase order", err)
	}
	return &order, nil
}

func (s *OrderService) ListSalesOrders(ctx context.Context, f OrderFilter) ([]models.SalesOrder, error) {
	q := s.db.WithContext(ctx).Preload("Customer").Preload("Material")
	if f.PartyID != uuid.Nil {
		q = q.Where("customer_id = ?", f.PartyID)
	}
	q = applyCommonFilter(q, f)

	var out []models.SalesOrder
	if err := q.Order("order_date DESC, order_no").Find(&out).Error; err != nil {
		return nil, utils.Internal("list sales orders", err)
	}
	return out, nil
}

func (s *OrderService) ListPurchaseOrders(ctx context.Context, f OrderFilter) ([]models.PurchaseOrder, error) {
	q := s.db.WithContext(ctx).Preload("Vendor").Preload("Material")
	if f.PartyID != uuid.Nil {
		q = q.Where("vendor_id = ?", f.PartyID)
	}
	q = applyCommonFilter(q, f)

	var out []models.PurchaseOrder
	if err := q.Order("order_date DESC, order_no").Find(&out).Error; err != nil {
		return nil, utils.Internal("list purchase orders", err)
	}
	return out, nil
}

func applyCommonFilter(q *gorm.DB, f OrderFilter) *gorm.DB {
	if f.MaterialID != uuid.Nil {
		q = q.Where("material_id = ?", f.MaterialID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	return q
}

func (s *OrderService) SalesOrderFulfillment(ctx context.Context, id uuid.UUID) (*Fulfillment, error) {
	order, err := s.GetSalesOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fulfillment(ctx, "sales_order_id", order.ID, order.OrderNo, order.Quantity)
}

func (s *OrderService) PurchaseOrderFulfillment(ctx context.Context, id uuid.UUID) (*Fulfillment, error) {
	order, err := s.GetPurchaseOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.fulfillment(ctx, "purchase_order_id", order.ID, order.OrderNo, order.Quantity)
}

func (s *OrderService) fulfillment(ctx context.Context, column string, id uuid.UUID, orderNo string, ordered decimal.Decimal) (*Fulfillment, error) {
	var dispatches []models.Dispatch
	err := s.db.WithContext(ctx).
		Where(column+" = ? AND cancelled_at IS NULL", id).
		Find(&dispatches).Error
	if err != nil {
		return nil, utils.Internal("load order dispatches", err)
	}

	f := &Fulfillment{
		OrderID:       id,
		OrderNo:       orderNo,
		OrderedQty:    ordered,
		DispatchedQty: decimal.Zero,
		DeliveredQty:  decimal.Zero,
		DispatchCount: len(dispatches),
	}
	for _, d := range dispatches {
		f.DispatchedQty = f.DispatchedQty.Add(d.Quantity)
		if d.DeliveryStatus == models.DeliveryDelivered {
			if d.DropQuantity != nil {
				f.DeliveredQty = f.DeliveredQty.Add(*d.DropQuantity)
			} else {
				f.DeliveredQty = f.DeliveredQty.Add(d.Quantity)
			}
		}
	}
	f.RemainingQty = ordered.Sub(f.DispatchedQty)
	return f, nil
}

func mustExist(db *gorm.DB, model interface{}, id uuid.UUID, entity string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return utils.Internal("check "+entity, err)
	}
	if count == 0 {
		return utils.NotFound(entity)
	}
	return nil
}
