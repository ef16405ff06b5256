package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// Asset listing page sizes.
const (
	DefaultAssetLimit = 100
	MaxAssetLimit     = 1000
)

var assetColumns = `a.id, a.company_code, a.device_type_code, a.inventory_number, a.serial_number,
	        a.vendor_id, a.vendor, a.model, a.location_type, a.location_id, a.created_at, a.updated_at,
	        ` + locationNameExpr("a.location_type", "a.location_id")

// assetDest returns scan destinations matching assetColumns.
func assetDest(a *model.Asset) []any {
	return []any{&a.ID, &a.CompanyCode, &a.DeviceTypeCode, &a.InventoryNumber, &a.SerialNumber,
		&a.VendorID, &a.Vendor, &a.Model, &a.LocationType, &a.LocationID, &a.CreatedAt, &a.UpdatedAt,
		&a.LocationName}
}

func scanAsset(row interface{ Scan(...any) error }) (*model.Asset, error) {
	a := &model.Asset{}
	if err := row.Scan(assetDest(a)...); err != nil {
		return nil, err
	}
	return a, nil
}

func scanAssets(rows *sql.Rows) ([]model.Asset, error) {
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// CreateAsset registers an asset and assigns it the next inventory number
// for its company and device type.
func CreateAsset(ctx context.Context, db *sql.DB, in model.NewAsset) (*model.Asset, error) {
	serial := strings.TrimSpace(in.SerialNumber)
	modelName := strings.TrimSpace(in.Model)
	if serial == "" {
		return nil, invalid("serial number required")
	}
	if modelName == "" {
		return nil, invalid("model required")
	}
	if !model.ValidLocationType(in.LocationType) {
		return nil, invalid("invalid location type %q", in.LocationType)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkCodes(ctx, tx, in.CompanyCode, in.DeviceTypeCode); err != nil {
		return nil, err
	}

	vendor, err := getVendor(ctx, tx, in.VendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, notFound("vendor %d not found", in.VendorID)
	}

	if err := checkLocation(ctx, tx, model.Location{Type: in.LocationType, ID: in.LocationID}); err != nil {
		return nil, err
	}

	if err := checkSerialFree(ctx, tx, serial, 0); err != nil {
		return nil, err
	}

	number, err := allocate(ctx, tx, in.CompanyCode, in.DeviceTypeCode)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO assets (company_code, device_type_code, inventory_number, serial_number,
		                     vendor_id, vendor, model, location_type, location_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.CompanyCode, in.DeviceTypeCode, number, serial,
		vendor.ID, vendor.Name, modelName, in.LocationType, in.LocationID,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, "serial or inventory number already registered", "creating asset")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting asset id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, asConflict(err, ReasonDuplicate, "serial or inventory number already registered", "committing asset")
	}
	return GetAsset(ctx, db, id)
}

func checkSerialFree(ctx context.Context, q querier, serial string, exceptID int64) error {
	taken, err := exists(ctx, q,
		`SELECT COUNT(*) FROM assets WHERE serial_number = ? AND id <> ?`, serial, exceptID,
	)
	if err != nil {
		return fmt.Errorf("checking serial number: %w", err)
	}
	if taken {
		return conflict(ReasonDuplicate, "serial number %s already registered", serial)
	}
	return nil
}

// GetAsset returns an asset by ID, with its location name resolved.
func GetAsset(ctx context.Context, db *sql.DB, id int64) (*model.Asset, error) {
	return getAsset(ctx, db, id)
}

func getAsset(ctx context.Context, q querier, id int64) (*model.Asset, error) {
	a, err := scanAsset(q.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// GetAssetByInventoryNumber looks up an asset by its exact inventory number,
// as printed on its label.
func GetAssetByInventoryNumber(ctx context.Context, db *sql.DB, number string) (*model.Asset, error) {
	a, err := scanAsset(db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM assets a WHERE a.inventory_number = ?`,
		strings.TrimSpace(number),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset by inventory number: %w", err)
	}
	return a, nil
}

// ListAssets returns assets matching the filter, ordered by inventory number.
func ListAssets(ctx context.Context, db *sql.DB, f model.AssetFilter) ([]model.Asset, error) {
	var where []string
	var args []any

	if f.DeviceTypeCode != "" {
		where = append(where, `a.device_type_code = ?`)
		args = append(args, f.DeviceTypeCode)
	}
	if f.LocationType != "" {
		if !model.ValidLocationType(f.LocationType) {
			return nil, invalid("invalid location type %q", f.LocationType)
		}
		where = append(where, `a.location_type = ?`)
		args = append(args, f.LocationType)
	}
	if f.LocationID != 0 {
		if f.LocationType == "" {
			return nil, invalid("location_id filter requires location_type")
		}
		where = append(where, `a.location_id = ?`)
		args = append(args, f.LocationID)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		pattern := "%" + escapeLike(strings.ToLower(s)) + "%"
		where = append(where, `(lower(a.inventory_number) LIKE ? ESCAPE '\'
		    OR lower(a.serial_number) LIKE ? ESCAPE '\'
		    OR lower(a.vendor) LIKE ? ESCAPE '\'
		    OR lower(a.model) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern, pattern)
	}

	limit := f.Limit
	switch {
	case limit < 0 || f.Offset < 0:
		return nil, invalid("limit and offset must not be negative")
	case limit == 0:
		limit = DefaultAssetLimit
	case limit > MaxAssetLimit:
		limit = MaxAssetLimit
	}

	query := `SELECT ` + assetColumns + ` FROM assets a`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY a.inventory_number LIMIT ? OFFSET ?`
	args = append(args, limit, f.Offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	return scanAssets(rows)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// assetsAt returns every asset currently at loc.
func assetsAt(ctx context.Context, q querier, loc model.Location) ([]model.Asset, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets a
		 WHERE a.location_type = ? AND a.location_id = ?
		 ORDER BY a.inventory_number`,
		loc.Type, loc.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assets at %s %d: %w", loc.Type, loc.ID, err)
	}
	return scanAssets(rows)
}

// UpdateAsset applies a partial update. The inventory number and codes never
// change. Location fields are handled according to policy: with
// model.LocationUpdateLedger the relocation is recorded as a movement in the
// same transaction, with model.LocationUpdateReject they are refused.
func UpdateAsset(ctx context.Context, db *sql.DB, id int64, upd model.AssetUpdate, policy string, movedBy *int64) (*model.Asset, error) {
	relocate := upd.LocationType != nil || upd.LocationID != nil
	if relocate {
		if policy != model.LocationUpdateLedger {
			return nil, invalid("location cannot be changed by update; record a movement instead")
		}
		if upd.LocationType == nil || upd.LocationID == nil {
			return nil, invalid("location_type and location_id must be given together")
		}
		if !model.ValidLocationType(*upd.LocationType) {
			return nil, invalid("invalid location type %q", *upd.LocationType)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := getAsset(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("asset %d not found", id)
	}

	if upd.SerialNumber != nil {
		serial := strings.TrimSpace(*upd.SerialNumber)
		if serial == "" {
			return nil, invalid("serial number required")
		}
		if serial != a.SerialNumber {
			if err := checkSerialFree(ctx, tx, serial, id); err != nil {
				return nil, err
			}
		}
		a.SerialNumber = serial
	}
	if upd.Model != nil {
		modelName := strings.TrimSpace(*upd.Model)
		if modelName == "" {
			return nil, invalid("model required")
		}
		a.Model = modelName
	}
	if upd.VendorID != nil {
		vendor, err := getVendor(ctx, tx, *upd.VendorID)
		if err != nil {
			return nil, err
		}
		if vendor == nil {
			return nil, notFound("vendor %d not found", *upd.VendorID)
		}
		a.VendorID, a.Vendor = vendor.ID, vendor.Name
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET serial_number = ?, vendor_id = ?, vendor = ?, model = ?,
		                   updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		a.SerialNumber, a.VendorID, a.Vendor, a.Model, id,
	); err != nil {
		return nil, asConflict(err, ReasonDuplicate, "serial number already registered", "updating asset")
	}

	if relocate {
		to := model.Location{Type: *upd.LocationType, ID: *upd.LocationID}
		if err := checkLocation(ctx, tx, to); err != nil {
			return nil, err
		}
		if to != a.Location() {
			if _, err := relocateAsset(ctx, tx, a, to, movedBy); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing asset update: %w", err)
	}
	return GetAsset(ctx, db, id)
}

// DeleteAsset hard-deletes an asset together with its movements and
// inventory results.
func DeleteAsset(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("asset %d not found", id)
	}
	return nil
}
