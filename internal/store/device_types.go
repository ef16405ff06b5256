package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// CreateDeviceType creates a device type. The code is immutable afterwards.
func CreateDeviceType(ctx context.Context, db *sql.DB, code, name string) (*model.DeviceType, error) {
	name = strings.TrimSpace(name)
	if !model.ValidDeviceTypeCode(code) {
		return nil, invalid("device type code must be exactly 2 digits")
	}
	if name == "" {
		return nil, invalid("device type name required")
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO device_types (code, name) VALUES (?, ?)`,
		code, name,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, "device type code already exists", "creating device type")
	}

	return GetDeviceType(ctx, db, code)
}

// GetDeviceType returns a device type by code.
func GetDeviceType(ctx context.Context, db *sql.DB, code string) (*model.DeviceType, error) {
	dt := &model.DeviceType{}
	err := db.QueryRowContext(ctx,
		`SELECT id, code, name FROM device_types WHERE code = ?`, code,
	).Scan(&dt.ID, &dt.Code, &dt.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting device type: %w", err)
	}
	return dt, nil
}

// ListDeviceTypes returns all device types ordered by code.
func ListDeviceTypes(ctx context.Context, db *sql.DB) ([]model.DeviceType, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, code, name FROM device_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing device types: %w", err)
	}
	defer rows.Close()

	var types []model.DeviceType
	for rows.Next() {
		var dt model.DeviceType
		if err := rows.Scan(&dt.ID, &dt.Code, &dt.Name); err != nil {
			return nil, fmt.Errorf("scanning device type: %w", err)
		}
		types = append(types, dt)
	}
	return types, rows.Err()
}

// RenameDeviceType updates a device type's name.
func RenameDeviceType(ctx context.Context, db *sql.DB, code, name string) (*model.DeviceType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("device type name required")
	}

	result, err := db.ExecContext(ctx, `UPDATE device_types SET name = ? WHERE code = ?`, name, code)
	if err != nil {
		return nil, fmt.Errorf("renaming device type: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("device type %s not found", code)
	}
	return GetDeviceType(ctx, db, code)
}

// DeleteDeviceType deletes a device type. Fails while any asset or
// inventory session scope references it.
func DeleteDeviceType(ctx context.Context, db *sql.DB, code string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM assets WHERE device_type_code = ?)
		      + (SELECT COUNT(*) FROM inventory_session_device_types WHERE device_type_code = ?)`,
		code, code,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking device type references: %w", err)
	}
	if count > 0 {
		return inUse("device type "+code, count)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM device_types WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("deleting device type: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("device type %s not found", code)
	}
	return tx.Commit()
}
