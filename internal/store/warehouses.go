package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// CreateWarehouse creates a warehouse.
func CreateWarehouse(ctx context.Context, db *sql.DB, name, address string) (*model.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("warehouse name required")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO warehouses (name, address) VALUES (?, ?)`,
		name, nullString(strings.TrimSpace(address)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating warehouse: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting warehouse id: %w", err)
	}
	return GetWarehouse(ctx, db, id)
}

// GetWarehouse returns a warehouse by ID.
func GetWarehouse(ctx context.Context, db *sql.DB, id int64) (*model.Warehouse, error) {
	w := &model.Warehouse{}
	var address sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, name, address FROM warehouses WHERE id = ?`, id,
	).Scan(&w.ID, &w.Name, &address)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting warehouse: %w", err)
	}
	w.Address = address.String
	return w, nil
}

// ListWarehouses returns all warehouses ordered by name.
func ListWarehouses(ctx context.Context, db *sql.DB) ([]model.Warehouse, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, address FROM warehouses ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("listing warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []model.Warehouse
	for rows.Next() {
		var w model.Warehouse
		var address sql.NullString
		if err := rows.Scan(&w.ID, &w.Name, &address); err != nil {
			return nil, fmt.Errorf("scanning warehouse: %w", err)
		}
		w.Address = address.String
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// UpdateWarehouse updates a warehouse's name and address.
func UpdateWarehouse(ctx context.Context, db *sql.DB, id int64, name, address string) (*model.Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("warehouse name required")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE warehouses SET name = ?, address = ? WHERE id = ?`,
		name, nullString(strings.TrimSpace(address)), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating warehouse: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("warehouse %d not found", id)
	}
	return GetWarehouse(ctx, db, id)
}

// DeleteWarehouse deletes a warehouse. Fails while assets are stored there.
func DeleteWarehouse(ctx context.Context, db *sql.DB, id int64) error {
	return deleteLocation(ctx, db, model.Location{Type: model.LocationWarehouse, ID: id}, `DELETE FROM warehouses WHERE id = ?`)
}

// deleteLocation removes an employee or warehouse row unless an asset is
// currently located there.
func deleteLocation(ctx context.Context, db *sql.DB, loc model.Location, query string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE location_type = ? AND location_id = ?`,
		loc.Type, loc.ID,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking %s assets: %w", loc.Type, err)
	}
	if count > 0 {
		return inUse(fmt.Sprintf("%s %d", loc.Type, loc.ID), count)
	}

	result, err := tx.ExecContext(ctx, query, loc.ID)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", loc.Type, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("%s %d not found", loc.Type, loc.ID)
	}
	return tx.Commit()
}
