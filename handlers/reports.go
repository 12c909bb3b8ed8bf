package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"p9e.in/crusher/pkg/reports"
	"p9e.in/crusher/utils"
)

type ReportHandler struct {
	reports *reports.ReportService
	logger  *logrus.Logger
}

func NewReportHandler(svc *reports.ReportService, logger *logrus.Logger) *ReportHandler {
	return &ReportHandler{reports: svc, logger: logger}
}

func deliveryQuery(r *http.Request) reports.DeliveryQuery {
	q := r.URL.Query()
	return reports.DeliveryQuery{
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
	}
}

// Deliveries returns the delivery report for ?startDate=&endDate=
func (h *ReportHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Deliveries(r.Context(), deliveryQuery(r))
	if err != nil {
		writeError(w, r, h.logger, "Deliveries", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ExportDeliveries renders the delivery report as a download, xlsx by default
func (h *ReportHandler) ExportDeliveries(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "csv" {
		writeError(w, r, h.logger, "ExportDeliveries",
			utils.ValidationError("unsupported export format", map[string]string{"format": "must be one of xlsx csv"}))
		return
	}

	report, err := h.reports.Deliveries(r.Context(), deliveryQuery(r))
	if err != nil {
		writeError(w, r, h.logger, "ExportDeliveries", err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "csv":
		data, err = reports.ExportCSV(report)
		contentType = "text/csv"
	default:
		data, err = reports.ExportXLSX(report)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		writeError(w, r, h.logger, "ExportDeliveries", utils.Internal("export delivery report", err))
		return
	}

	filename := fmt.Sprintf("deliveries_%s_%s_%s.%s", report.StartDate, report.EndDate,
		time.Now().UTC().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	h.logger.WithFields(logrus.Fields{
		"format": format,
		"rows":   report.Summary.Rows,
	}).Info("delivery report exported")
}
