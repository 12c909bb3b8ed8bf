package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/testutil"
	"p9e.in/crusher/utils"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var orderDay = models.JSONTime(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))

type fixture struct {
	db       *gorm.DB
	svc      *OrderService
	material models.Material
	customer models.Customer
	vendor   models.Vendor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	f := &fixture{db: db, svc: NewOrderService(db, testutil.NewLogger())}
	if err := db.Where("name = ?", "20MM").First(&f.material).Error; err != nil {
		t.Fatal(err)
	}
	f.customer = models.Customer{Name: "Ramky Infra"}
	f.vendor = models.Vendor{Name: "Shankar Quarry"}
	if err := db.Create(&f.customer).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&f.vendor).Error; err != nil {
		t.Fatal(err)
	}
	return f
}

func TestCreateSalesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	so, err := f.svc.CreateSalesOrder(ctx, NewSalesOrder{
		CustomerID: f.customer.ID,
		MaterialID: f.material.ID,
		Quantity:   d("250"),
		Rate:       d("1150.50"),
		OrderDate:  orderDay,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(so.OrderNo) == 0 || so.OrderNo[:12] != "SO-20250401-" {
		t.Errorf("order no = %q", so.OrderNo)
	}
	if so.Status != models.OrderOpen {
		t.Errorf("status = %s", so.Status)
	}
	if so.Customer == nil || so.Customer.Name != "Ramky Infra" || so.Material == nil || so.Material.Name != "20MM" {
		t.Errorf("associations not loaded: %+v %+v", so.Customer, so.Material)
	}

	tests := []struct {
		name string
		in   NewSalesOrder
		kind utils.ErrorKind
	}{
		{"zero quantity", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Rate: d("1"), OrderDate: orderDay}, utils.KindValidation},
		{"negative rate", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("1"), Rate: d("-1"), OrderDate: orderDay}, utils.KindValidation},
		{"missing date", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("1")}, utils.KindValidation},
		{"quantity below stored scale", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("0.0004"), Rate: d("1"), OrderDate: orderDay}, utils.KindValidation},
		{"rate below stored scale", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("1"), Rate: d("950.12345"), OrderDate: orderDay}, utils.KindValidation},
		{"rate overflows column", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("1"), Rate: d("1e17"), OrderDate: orderDay}, utils.KindValidation},
		{"unknown customer", NewSalesOrder{CustomerID: uuid.New(), MaterialID: f.material.ID, Quantity: d("1"), OrderDate: orderDay}, utils.KindNotFound},
		{"vendor as customer", NewSalesOrder{CustomerID: f.vendor.ID, MaterialID: f.material.ID, Quantity: d("1"), OrderDate: orderDay}, utils.KindNotFound},
		{"unknown material", NewSalesOrder{CustomerID: f.customer.ID, MaterialID: uuid.New(), Quantity: d("1"), OrderDate: orderDay}, utils.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.CreateSalesOrder(ctx, tt.in); !utils.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestPurchaseOrderListAndGet(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	po, err := f.svc.CreatePurchaseOrder(ctx, NewPurchaseOrder{
		VendorID:   f.vendor.ID,
		MaterialID: f.material.ID,
		Quantity:   d("80"),
		Rate:       d("0"),
		OrderDate:  orderDay,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if po.Vendor == nil || po.Vendor.Name != "Shankar Quarry" {
		t.Errorf("vendor not loaded")
	}

	list, err := f.svc.ListPurchaseOrders(ctx, OrderFilter{PartyID: f.vendor.ID, Status: models.OrderOpen})
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %d (%v)", len(list), err)
	}
	none, _ := f.svc.ListPurchaseOrders(ctx, OrderFilter{Status: models.OrderClosed})
	if len(none) != 0 {
		t.Errorf("closed orders = %d", len(none))
	}
	if _, err := f.svc.GetPurchaseOrder(ctx, uuid.New()); !utils.IsKind(err, utils.KindNotFound) {
		t.Errorf("missing order err = %v", err)
	}
	if _, err := f.svc.GetSalesOrder(ctx, po.ID); !utils.IsKind(err, utils.KindNotFound) {
		t.Errorf("purchase id as sales order err = %v", err)
	}
}

func TestSalesOrderFulfillment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	so, err := f.svc.CreateSalesOrder(ctx, NewSalesOrder{
		CustomerID: f.customer.ID, MaterialID: f.material.ID, Quantity: d("50"), Rate: d("900"), OrderDate: orderDay,
	})
	if err != nil {
		t.Fatal(err)
	}
	run := models.ProductionRun{
		MaterialID: f.material.ID, MachineID: "CR-01", InputQty: d("200"), ProducedQty: d("180"),
		DispatchedQty: d("0"), RunDate: orderDay,
	}
	if err := f.db.Create(&run).Error; err != nil {
		t.Fatal(err)
	}

	drop := d("19.75")
	now := time.Now()
	dispatches := []models.Dispatch{
		{Quantity: d("20"), DropQuantity: &drop, DeliveryStatus: models.DeliveryDelivered},
		{Quantity: d("15"), DeliveryStatus: models.DeliveryDelivered},
		{Quantity: d("25"), DeliveryStatus: models.DeliveryInTransit},
		{Quantity: d("5"), DeliveryStatus: models.DeliveryDelivered, CancelledAt: &now},
	}
	for i := range dispatches {
		dispatches[i].CrusherRunID = run.ID
		dispatches[i].SalesOrderID = &so.ID
		dispatches[i].DispatchDate = orderDay
		dispatches[i].Destination = "Gachibowli"
		dispatches[i].VehicleNo = "AP29TB0001"
		if err := f.db.Create(&dispatches[i]).Error; err != nil {
			t.Fatal(err)
		}
	}

	got, err := f.svc.SalesOrderFulfillment(ctx, so.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.DispatchCount != 3 {
		t.Errorf("count = %d", got.DispatchCount)
	}
	if !got.DispatchedQty.Equal(d("60")) || !got.DeliveredQty.Equal(d("34.75")) || !got.RemainingQty.Equal(d("-10")) {
		t.Errorf("fulfillment = dispatched %s delivered %s remaining %s", got.DispatchedQty, got.DeliveredQty, got.RemainingQty)
	}

	if _, err := f.svc.PurchaseOrderFulfillment(ctx, so.ID); !utils.IsKind(err, utils.KindNotFound) {
		t.Errorf("wrong ledger err = %v", err)
	}
}
