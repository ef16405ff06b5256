package api

import (
	"bytes"
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/report"
	"github.com/erazemk/inventura/internal/store"
)

// ReportsHandler serves the tabular asset report.
type ReportsHandler struct {
	DB *sql.DB
}

func (h *ReportsHandler) rows(w http.ResponseWriter, r *http.Request) ([]model.ReportRow, bool) {
	employeeID, err := queryInt(r, "employee_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	warehouseID, err := queryInt(r, "warehouse_id")
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	rows, err := store.ReportRows(r.Context(), h.DB, model.ReportFilter{
		DeviceTypeCode: r.URL.Query().Get("device_type"),
		EmployeeID:     employeeID,
		WarehouseID:    warehouseID,
	})
	if err != nil {
		writeStoreError(w, err, "build report")
		return nil, false
	}
	if rows == nil {
		rows = []model.ReportRow{}
	}
	return rows, true
}

// Data handles GET /api/reports/data.
func (h *ReportsHandler) Data(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, rows)
}

// Export handles GET /api/reports/export and returns an XLSX workbook.
func (h *ReportsHandler) Export(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.rows(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteXLSX(&buf, rows); err != nil {
		slog.Error("failed to export report", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to export report")
		return
	}

	slog.Info("report exported", "user", username(r), "rows", len(rows))
	w.Header().Set("Content-Type", report.MIME)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", "attachment; filename="+report.Filename)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
