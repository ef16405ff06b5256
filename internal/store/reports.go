package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// ReportRows returns one row per asset for tabular reports, ordered by
// device type and inventory number.
func ReportRows(ctx context.Context, db *sql.DB, f model.ReportFilter) ([]model.ReportRow, error) {
	var where []string
	var args []any

	if f.DeviceTypeCode != "" {
		where = append(where, `a.device_type_code = ?`)
		args = append(args, f.DeviceTypeCode)
	}
	if f.EmployeeID != 0 {
		where = append(where, `a.location_type = 'employee' AND a.location_id = ?`)
		args = append(args, f.EmployeeID)
	}
	if f.WarehouseID != 0 {
		where = append(where, `a.location_type = 'warehouse' AND a.location_id = ?`)
		args = append(args, f.WarehouseID)
	}

	query := `SELECT dt.name, a.vendor, a.model, a.serial_number, a.inventory_number,
	                 ` + locationNameExpr("a.location_type", "a.location_id") + `,
	                 COALESCE(e.phone, '')
	          FROM assets a
	          JOIN device_types dt ON dt.code = a.device_type_code
	          LEFT JOIN employees e ON a.location_type = 'employee' AND e.id = a.location_id`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY a.device_type_code, a.inventory_number`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	defer rows.Close()

	var report []model.ReportRow
	for rows.Next() {
		var r model.ReportRow
		var vendor, modelName string
		if err := rows.Scan(&r.DeviceType, &vendor, &modelName, &r.Serial, &r.Inventory, &r.Location, &r.Phone); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		r.VendorModel = strings.TrimSpace(vendor + " " + modelName)
		report = append(report, r)
	}
	return report, rows.Err()
}
