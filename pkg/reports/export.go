package reports

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"p9e.in/crusher/models"
)

var deliveryHeaders = []string{
	"Dispatch No", "Date", "Vehicle No", "Driver", "Destination", "Machine", "Material", "UOM",
	"Order Type", "Order No", "Party", "Rate", "Quantity", "Pickup Qty", "Drop Qty", "Difference",
	"Amount", "Delivery Status", "Duration",
}

// cells returns the row in header order. Decimals stay decimal so each
// writer can choose its own number form.
func (r DeliveryRow) cells() []interface{} {
	return []interface{}{
		r.DispatchNo,
		r.DispatchDate.Time().Format("2006-01-02 15:04"),
		r.VehicleNo,
		r.Driver,
		r.Destination,
		r.MachineID,
		r.Material,
		r.UnitOfMeasure,
		r.OrderType,
		r.OrderNo,
		r.Party,
		r.Rate,
		r.Quantity,
		r.PickupQuantity,
		r.DropQuantity,
		r.Difference,
		r.Amount,
		string(r.DeliveryStatus),
		r.DeliveryDuration,
	}
}

type summaryLine struct {
	label string
	value interface{}
}

func (s DeliverySummary) lines() []summaryLine {
	lines := []summaryLine{
		{"Dispatches", s.Rows},
		{"Total Quantity", s.TotalQuantity},
		{"Total Amount", s.TotalAmount},
		{"Total Difference", s.TotalDifference},
	}
	for _, st := range []models.DeliveryStatus{models.DeliveryPending, models.DeliveryInTransit, models.DeliveryDelivered} {
		lines = append(lines, summaryLine{string(st), s.ByStatus[st]})
	}
	return lines
}

func xlsxValue(v interface{}) interface{} {
	switch x := v.(type) {
	case decimal.Decimal:
		f, _ := x.Float64()
		return f
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		f, _ := x.Float64()
		return f
	}
	return v
}

func csvValue(v interface{}) string {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.String()
	case *decimal.Decimal:
		if x == nil {
			return ""
		}
		return x.String()
	}
	return fmt.Sprintf("%v", v)
}

// ExportXLSX renders the report: title, timestamp, header on row 4, data
// from row 5 and a summary block two rows below the data.
func ExportXLSX(report *DeliveryReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Deliveries"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Delivery Report %s to %s", report.StartDate, report.EndDate))
	f.SetCellStyle(sheetName, "A1", "A1", titleStyle)
	f.SetRowHeight(sheetName, 1, 30)
	f.SetCellValue(sheetName, "A2", fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04:05")))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for colIdx, header := range deliveryHeaders {
		cell, _ := excelize.CoordinatesToCellName(colIdx+1, 4)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
		col, _ := excelize.ColumnNumberToName(colIdx + 1)
		f.SetColWidth(sheetName, col, col, 16)
	}

	dataStyle, _ := f.NewStyle(&excelize.Style{
		Border: []excelize.Border{
			{Type: "left", Color: "CCCCCC", Style: 1},
			{Type: "right", Color: "CCCCCC", Style: 1},
			{Type: "top", Color: "CCCCCC", Style: 1},
			{Type: "bottom", Color: "CCCCCC", Style: 1},
		},
	})
	for rowIdx, row := range report.Rows {
		for colIdx, value := range row.cells() {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+5)
			f.SetCellValue(sheetName, cell, xlsxValue(value))
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}

	summaryRow := len(report.Rows) + 7
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E7E6E6"}, Pattern: 1},
	})
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	f.SetCellValue(sheetName, cell, "Summary")
	f.SetCellStyle(sheetName, cell, cell, summaryStyle)
	for _, line := range report.Summary.lines() {
		summaryRow++
		keyCell, _ := excelize.CoordinatesToCellName(1, summaryRow)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow)
		f.SetCellValue(sheetName, keyCell, line.label)
		f.SetCellValue(sheetName, valueCell, xlsxValue(line.value))
	}

	f.DeleteSheet("Sheet1")

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportCSV renders the same columns and summary as ExportXLSX.
func ExportCSV(report *DeliveryReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	writer.Write(deliveryHeaders)
	for _, row := range report.Rows {
		cells := row.cells()
		record := make([]string, 0, len(cells))
		for _, value := range cells {
			record = append(record, csvValue(value))
		}
		writer.Write(record)
	}

	writer.Write([]string{})
	writer.Write([]string{"Summary"})
	for _, line := range report.Summary.lines() {
		writer.Write([]string{line.label, csvValue(line.value)})
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}
