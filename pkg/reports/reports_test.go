package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"p9e.in/crusher/models"
	"p9e.in/crusher/pkg/testutil"
	"p9e.in/crusher/utils"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func at(day, hour, min, sec int) models.JSONTime {
	return models.JSONTime(time.Date(2025, 3, day, hour, min, sec, 0, time.UTC))
}

func material(t *testing.T, db *gorm.DB, name string) models.Material {
	t.Helper()
	var m models.Material
	if err := db.Where("name = ?", name).First(&m).Error; err != nil {
		t.Fatal(err)
	}
	return m
}

// seedReport creates one run, a sales and a purchase order and dispatches
// around the 10th-11th March window.
func seedReport(t *testing.T, db *gorm.DB) {
	t.Helper()
	msand := material(t, db, "M.SAND")
	mm20 := material(t, db, "20MM")

	customer := models.Customer{Name: "Aparna Constructions"}
	vendor := models.Vendor{Name: "Sai Stone Crushers"}
	mustCreate(t, db, &customer)
	mustCreate(t, db, &vendor)

	run := models.ProductionRun{MaterialID: msand.ID, MachineID: "CR-07", InputQty: d("500"), ProducedQty: d("480"),
		DispatchedQty: d("0"), RunDate: at(9, 6, 0, 0)}
	mustCreate(t, db, &run)

	so := models.SalesOrder{CustomerID: customer.ID, MaterialID: msand.ID, Quantity: d("100"), Rate: d("1000"), OrderDate: at(1, 0, 0, 0)}
	po := models.PurchaseOrder{VendorID: vendor.ID, MaterialID: mm20.ID, Quantity: d("40"), Rate: d("750.5"), OrderDate: at(1, 0, 0, 0)}
	mustCreate(t, db, &so)
	mustCreate(t, db, &po)

	cancelled := time.Now()
	driver := "Ramesh"
	dispatches := []models.Dispatch{
		{DispatchNo: "D-BEFORE", DispatchDate: at(9, 23, 59, 59), Quantity: d("1"), SalesOrderID: &so.ID},
		{DispatchNo: "D-001", DispatchDate: at(10, 0, 0, 0), Quantity: d("10.5"), SalesOrderID: &so.ID,
			PickupQuantity: dp("10.5"), DropQuantity: dp("10.2"), DeliveryStatus: models.DeliveryDelivered, Driver: &driver},
		{DispatchNo: "D-002", DispatchDate: at(10, 14, 0, 0), Quantity: d("8"), PurchaseOrderID: &po.ID,
			PickupQuantity: dp("8")},
		{DispatchNo: "D-003", DispatchDate: at(11, 23, 59, 59), Quantity: d("4"), DeliveryStatus: models.DeliveryInTransit},
		{DispatchNo: "D-VOID", DispatchDate: at(11, 9, 0, 0), Quantity: d("3"), SalesOrderID: &so.ID, CancelledAt: &cancelled},
		{DispatchNo: "D-AFTER", DispatchDate: at(12, 0, 0, 0), Quantity: d("2")},
	}
	for i := range dispatches {
		dispatches[i].CrusherRunID = run.ID
		dispatches[i].Destination = "Narsingi"
		dispatches[i].VehicleNo = "TS07UA4455"
		mustCreate(t, db, &dispatches[i])
	}
}

func mustCreate(t *testing.T, db *gorm.DB, v interface{}) {
	t.Helper()
	if err := db.Create(v).Error; err != nil {
		t.Fatalf("create %T: %v", v, err)
	}
}

func TestDeliveriesRowsAndSummary(t *testing.T) {
	db := testutil.NewDB(t)
	seedReport(t, db)

	report, err := NewReportService(db).Deliveries(context.Background(), DeliveryQuery{StartDate: "2025-03-10", EndDate: "2025-03-11"})
	if err != nil {
		t.Fatal(err)
	}

	var nos []string
	for _, r := range report.Rows {
		nos = append(nos, r.DispatchNo)
	}
	if strings.Join(nos, ",") != "D-001,D-002,D-003" {
		t.Fatalf("rows = %v", nos)
	}

	sale := report.Rows[0]
	if sale.OrderType != OrderTypeSale || sale.Party != "Aparna Constructions" || sale.Material != "M.SAND" || sale.Driver != "Ramesh" {
		t.Errorf("sale row = %+v", sale)
	}
	if sale.Difference == nil || !sale.Difference.Equal(d("-0.3")) {
		t.Errorf("difference = %v", sale.Difference)
	}
	if sale.Amount == nil || !sale.Amount.Equal(d("10500")) {
		t.Errorf("amount = %v", sale.Amount)
	}

	purchase := report.Rows[1]
	if purchase.OrderType != OrderTypePurchase || purchase.Party != "Sai Stone Crushers" || purchase.Material != "20MM" {
		t.Errorf("purchase row = %+v", purchase)
	}
	if purchase.Difference != nil {
		t.Errorf("difference without drop quantity = %s", purchase.Difference)
	}
	if purchase.Amount == nil || !purchase.Amount.Equal(d("6004")) {
		t.Errorf("purchase amount = %v", purchase.Amount)
	}

	unlinked := report.Rows[2]
	if unlinked.OrderType != "" || unlinked.Amount != nil || unlinked.Rate != nil || unlinked.MachineID != "CR-07" {
		t.Errorf("unlinked row = %+v", unlinked)
	}

	sum := report.Summary
	if sum.Rows != 3 || !sum.TotalQuantity.Equal(d("22.5")) || !sum.TotalAmount.Equal(d("16504")) || !sum.TotalDifference.Equal(d("-0.3")) {
		t.Errorf("summary = %+v", sum)
	}
	if sum.ByStatus[models.DeliveryPending] != 1 || sum.ByStatus[models.DeliveryDelivered] != 1 || sum.ByStatus[models.DeliveryInTransit] != 1 {
		t.Errorf("by status = %v", sum.ByStatus)
	}
}

func TestDeliveriesSingleDay(t *testing.T) {
	db := testutil.NewDB(t)
	seedReport(t, db)

	report, err := NewReportService(db).Deliveries(context.Background(), DeliveryQuery{StartDate: "2025-03-12", EndDate: "2025-03-12"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Rows) != 1 || report.Rows[0].DispatchNo != "D-AFTER" {
		t.Errorf("rows = %+v", report.Rows)
	}
}

func TestDeliveryQueryValidation(t *testing.T) {
	tests := []struct {
		name  string
		q     DeliveryQuery
		field string
	}{
		{"missing start", DeliveryQuery{EndDate: "2025-03-10"}, "startDate"},
		{"missing end", DeliveryQuery{StartDate: "2025-03-10"}, "endDate"},
		{"bad format", DeliveryQuery{StartDate: "10/03/2025", EndDate: "2025-03-10"}, "startDate"},
		{"reversed", DeliveryQuery{StartDate: "2025-03-11", EndDate: "2025-03-10"}, "endDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.q.ParseRange()
			if !utils.IsKind(err, utils.KindValidation) {
				t.Fatalf("err = %v", err)
			}
			if _, ok := utils.AsAppError(err).Details[tt.field]; !ok {
				t.Errorf("details %v missing %s", utils.AsAppError(err).Details, tt.field)
			}
		})
	}

	from, to, err := DeliveryQuery{StartDate: "2025-03-10", EndDate: "2025-03-10"}.ParseRange()
	if err != nil {
		t.Fatal(err)
	}
	if to.Sub(from) != 24*time.Hour {
		t.Errorf("range = %s .. %s", from, to)
	}
}

func TestExportXLSX(t *testing.T) {
	db := testutil.NewDB(t)
	seedReport(t, db)
	report, err := NewReportService(db).Deliveries(context.Background(), DeliveryQuery{StartDate: "2025-03-10", EndDate: "2025-03-11"})
	if err != nil {
		t.Fatal(err)
	}

	data, err := ExportXLSX(report)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	checks := map[string]string{
		"A1":  "Delivery Report 2025-03-10 to 2025-03-11",
		"A4":  "Dispatch No",
		"P4":  "Difference",
		"A5":  "D-001",
		"K5":  "Aparna Constructions",
		"A7":  "D-003",
		"A10": "Summary",
		"A11": "Dispatches",
		"B11": "3",
	}
	for cell, want := range checks {
		got, err := f.GetCellValue("Deliveries", cell)
		if err != nil {
			t.Fatalf("%s: %v", cell, err)
		}
		if got != want {
			t.Errorf("%s = %q, want %q", cell, got, want)
		}
	}
	if got, _ := f.GetCellValue("Deliveries", "Q5"); got != "10500" {
		t.Errorf("amount cell = %q", got)
	}
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		t.Error("default sheet should be removed")
	}
}

func TestExportCSV(t *testing.T) {
	report := &DeliveryReport{
		StartDate: "2025-03-10",
		EndDate:   "2025-03-10",
		Rows: []DeliveryRow{{
			DispatchNo:     "D-001",
			DispatchDate:   at(10, 8, 15, 0),
			Quantity:       d("12.345"),
			DropQuantity:   dp("12.3"),
			DeliveryStatus: models.DeliveryPending,
		}},
		Summary: DeliverySummary{Rows: 1, TotalQuantity: d("12.345"), ByStatus: map[models.DeliveryStatus]int{models.DeliveryPending: 1}},
	}

	data, err := ExportCSV(report)
	if err != nil {
		t.Fatal(err)
	}
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2+1+7 {
		t.Errorf("records = %d", len(records))
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != strings.Join(deliveryHeaders, ",") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "D-001,2025-03-10 08:15,") || !strings.Contains(lines[1], ",12.345,,12.3,,,PENDING,") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.Contains(string(data), "Total Quantity,12.345") {
		t.Errorf("summary missing: %s", data)
	}
}
