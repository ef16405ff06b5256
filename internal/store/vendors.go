package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

const vendorColumns = `id, name, created_at, updated_at`

func scanVendor(row interface{ Scan(...any) error }) (*model.Vendor, error) {
	v := &model.Vendor{}
	if err := row.Scan(&v.ID, &v.Name, &v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return v, nil
}

// CreateVendor creates a vendor with a trimmed, unique name.
func CreateVendor(ctx context.Context, db *sql.DB, name string) (*model.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("vendor name required")
	}

	result, err := db.ExecContext(ctx, `INSERT INTO vendors (name) VALUES (?)`, name)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, fmt.Sprintf("vendor %q already exists", name), "creating vendor")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting vendor id: %w", err)
	}
	return GetVendor(ctx, db, id)
}

// GetVendor returns a vendor by ID.
func GetVendor(ctx context.Context, db *sql.DB, id int64) (*model.Vendor, error) {
	return getVendor(ctx, db, id)
}

func getVendor(ctx context.Context, q querier, id int64) (*model.Vendor, error) {
	v, err := scanVendor(q.QueryRowContext(ctx,
		`SELECT `+vendorColumns+` FROM vendors WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting vendor: %w", err)
	}
	return v, nil
}

// ListVendors returns all vendors ordered by name.
func ListVendors(ctx context.Context, db *sql.DB) ([]model.Vendor, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing vendors: %w", err)
	}
	defer rows.Close()

	var vendors []model.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vendor: %w", err)
		}
		vendors = append(vendors, *v)
	}
	return vendors, rows.Err()
}

// RenameVendor renames a vendor and rewrites the vendor name copied onto
// its assets in the same transaction.
func RenameVendor(ctx context.Context, db *sql.DB, id int64, name string) (*model.Vendor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("vendor name required")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE vendors SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, id,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, fmt.Sprintf("vendor %q already exists", name), "renaming vendor")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("vendor %d not found", id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET vendor = ?, updated_at = CURRENT_TIMESTAMP WHERE vendor_id = ?`,
		name, id,
	); err != nil {
		return nil, fmt.Errorf("updating asset vendor names: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing vendor rename: %w", err)
	}
	return GetVendor(ctx, db, id)
}

// DeleteVendor deletes a vendor. Fails while any asset references it.
func DeleteVendor(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE vendor_id = ?`, id,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking vendor assets: %w", err)
	}
	if count > 0 {
		return inUse(fmt.Sprintf("vendor %d", id), count)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM vendors WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting vendor: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("vendor %d not found", id)
	}
	return tx.Commit()
}
