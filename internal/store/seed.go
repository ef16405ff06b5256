package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SeedReferenceData inserts the starter company, device types, warehouse and
// employee of a fresh installation. Existing rows are left alone, so it is
// safe to run more than once.
func SeedReferenceData(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []struct {
		query string
		args  []any
	}{
		{`INSERT OR IGNORE INTO companies (code, name) VALUES (?, ?)`, []any{"WWP", "World Wide Products"}},
		{`INSERT OR IGNORE INTO device_types (code, name) VALUES (?, ?)`, []any{"01", "Monitor"}},
		{`INSERT OR IGNORE INTO device_types (code, name) VALUES (?, ?)`, []any{"02", "Laptop"}},
		{`INSERT OR IGNORE INTO device_types (code, name) VALUES (?, ?)`, []any{"03", "Phone"}},
		{`INSERT INTO warehouses (name, address)
		  SELECT ?, ? WHERE NOT EXISTS (SELECT 1 FROM warehouses WHERE name = ?)`,
			[]any{"Main Warehouse", "123 Main St", "Main Warehouse"}},
		{`INSERT OR IGNORE INTO employees (name, phone, position) VALUES (?, ?, ?)`,
			[]any{"John Doe", "001", "Manager"}},
	}

	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s.query, s.args...); err != nil {
			return fmt.Errorf("seeding reference data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing seed data: %w", err)
	}
	return nil
}
