// Package reports aggregates dispatches into the delivery report and
// renders it as XLSX or CSV.
package reports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/utils"
)

const dateLayout = "2006-01-02"

const (
	OrderTypeSale     = "SALE"
	OrderTypePurchase = "PURCHASE"
)

// DeliveryQuery selects dispatches by calendar day, both ends inclusive.
type DeliveryQuery struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// DeliveryRow is one dispatch flattened with its run, order and party.
// Difference needs both weighbridge readings; Amount needs a linked order.
type DeliveryRow struct {
	DispatchID       uuid.UUID             `json:"dispatchId"`
	DispatchNo       string                `json:"dispatchNo"`
	DispatchDate     models.JSONTime       `json:"dispatchDate"`
	VehicleNo        string                `json:"vehicleNo"`
	Driver           string                `json:"driver,omitempty"`
	Destination      string                `json:"destination"`
	RunID            uuid.UUID             `json:"runId"`
	MachineID        string                `json:"machineId"`
	Material         string                `json:"material"`
	UnitOfMeasure    string                `json:"unitOfMeasure"`
	OrderType        string                `json:"orderType"`
	OrderID          *uuid.UUID            `json:"orderId,omitempty"`
	OrderNo          string                `json:"orderNo,omitempty"`
	Party            string                `json:"party,omitempty"`
	Rate             *decimal.Decimal      `json:"rate,omitempty"`
	Quantity         decimal.Decimal       `json:"quantity"`
	PickupQuantity   *decimal.Decimal      `json:"pickupQuantity,omitempty"`
	DropQuantity     *decimal.Decimal      `json:"dropQuantity,omitempty"`
	Difference       *decimal.Decimal      `json:"difference,omitempty"`
	Amount           *decimal.Decimal      `json:"amount,omitempty"`
	DeliveryStatus   models.DeliveryStatus `json:"deliveryStatus"`
	DeliveryDuration string                `json:"deliveryDuration,omitempty"`
}

type DeliverySummary struct {
	Rows            int                           `json:"rows"`
	TotalQuantity   decimal.Decimal               `json:"totalQuantity"`
	TotalAmount     decimal.Decimal               `json:"totalAmount"`
	TotalDifference decimal.Decimal               `json:"totalDifference"`
	ByStatus        map[models.DeliveryStatus]int `json:"byStatus"`
}

type DeliveryReport struct {
	StartDate   string          `json:"startDate"`
	EndDate     string          `json:"endDate"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Rows        []DeliveryRow   `json:"rows"`
	Summary     DeliverySummary `json:"summary"`
}

type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// ParseRange validates q and returns [start 00:00, end+1 00:00) in UTC.
func (q DeliveryQuery) ParseRange() (time.Time, time.Time, error) {
	details := map[string]string{}
	start, err := time.Parse(dateLayout, q.StartDate)
	if q.StartDate == "" {
		details["startDate"] = "is required"
	} else if err != nil {
		details["startDate"] = "must be YYYY-MM-DD"
	}
	end, err := time.Parse(dateLayout, q.EndDate)
	if q.EndDate == "" {
		details["endDate"] = "is required"
	} else if err != nil {
		details["endDate"] = "must be YYYY-MM-DD"
	}
	if len(details) > 0 {
		return time.Time{}, time.Time{}, utils.ValidationError("invalid report range", details)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, utils.ValidationError("invalid report range",
			map[string]string{"endDate": "must not be before startDate"})
	}
	return start.UTC(), end.UTC().AddDate(0, 0, 1), nil
}

// Deliveries builds the delivery report for the live dispatches in range.
func (s *ReportService) Deliveries(ctx context.Context, q DeliveryQuery) (*DeliveryReport, error) {
	from, to, err := q.ParseRange()
	if err != nil {
		return nil, err
	}

	var dispatches []models.Dispatch
	err = s.db.WithContext(ctx).
		Preload("CrusherRun.Material").
		Preload("SalesOrder.Customer").
		Preload("PurchaseOrder.Vendor").
		Preload("PurchaseOrder.Material").
		Where("dispatch_date >= ? AND dispatch_date < ?", from, to).
		Where("cancelled_at IS NULL").
		Order("dispatch_date, dispatch_no").
		Find(&dispatches).Error
	if err != nil {
		return nil, utils.Internal("load report dispatches", err)
	}

	report := &DeliveryReport{
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		GeneratedAt: time.Now().UTC(),
		Rows:        make([]DeliveryRow, 0, len(dispatches)),
		Summary: DeliverySummary{
			TotalQuantity:   decimal.Zero,
			TotalAmount:     decimal.Zero,
			TotalDifference: decimal.Zero,
			ByStatus:        map[models.DeliveryStatus]int{},
		},
	}
	for i := range dispatches {
		row := BuildRow(&dispatches[i])
		report.Rows = append(report.Rows, row)

		sum := &report.Summary
		sum.Rows++
		sum.TotalQuantity = sum.TotalQuantity.Add(row.Quantity)
		if row.Amount != nil {
			sum.TotalAmount = sum.TotalAmount.Add(*row.Amount)
		}
		if row.Difference != nil {
			sum.TotalDifference = sum.TotalDifference.Add(*row.Difference)
		}
		sum.ByStatus[row.DeliveryStatus]++
	}
	return report, nil
}

// BuildRow flattens a dispatch loaded with its associations.
func BuildRow(d *models.Dispatch) DeliveryRow {
	row := DeliveryRow{
		DispatchID:     d.ID,
		DispatchNo:     d.DispatchNo,
		DispatchDate:   d.DispatchDate,
		VehicleNo:      d.VehicleNo,
		Destination:    d.Destination,
		RunID:          d.CrusherRunID,
		Quantity:       d.Quantity,
		PickupQuantity: d.PickupQuantity,
		DropQuantity:   d.DropQuantity,
		DeliveryStatus: d.DeliveryStatus,
	}
	if d.Driver != nil {
		row.Driver = *d.Driver
	}
	if d.DeliveryDuration != nil {
		row.DeliveryDuration = *d.DeliveryDuration
	}
	if run := d.CrusherRun; run != nil {
		row.MachineID = run.MachineID
		if run.Material != nil {
			row.Material = run.Material.Name
			row.UnitOfMeasure = run.Material.UnitOfMeasure
		}
	}

	switch {
	case d.SalesOrder != nil:
		so := d.SalesOrder
		row.OrderType = OrderTypeSale
		row.OrderID = &so.ID
		row.OrderNo = so.OrderNo
		row.Rate = models.DecimalPtr(so.Rate)
		if so.Customer != nil {
			row.Party = so.Customer.Name
		}
	case d.PurchaseOrder != nil:
		po := d.PurchaseOrder
		row.OrderType = OrderTypePurchase
		row.OrderID = &po.ID
		row.OrderNo = po.OrderNo
		row.Rate = models.DecimalPtr(po.Rate)
		if po.Vendor != nil {
			row.Party = po.Vendor.Name
		}
		if po.Material != nil {
			row.Material = po.Material.Name
			row.UnitOfMeasure = po.Material.UnitOfMeasure
		}
	}

	if d.PickupQuantity != nil && d.DropQuantity != nil {
		row.Difference = models.DecimalPtr(d.DropQuantity.Sub(*d.PickupQuantity))
	}
	if row.Rate != nil {
		row.Amount = models.DecimalPtr(row.Rate.Mul(d.Quantity))
	}
	return row
}
