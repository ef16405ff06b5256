package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/inventura/internal/model"
)

var movementColumns = `m.id, m.asset_id, m.from_type, m.from_id, m.to_type, m.to_id, m.moved_at, m.moved_by,
	        a.inventory_number,
	        ` + locationNameExpr("m.from_type", "m.from_id") + `,
	        ` + locationNameExpr("m.to_type", "m.to_id")

func scanMovement(row interface{ Scan(...any) error }) (*model.Movement, error) {
	m := &model.Movement{}
	var movedBy sql.NullInt64
	err := row.Scan(&m.ID, &m.AssetID, &m.FromType, &m.FromID, &m.ToType, &m.ToID, &m.MovedAt, &movedBy,
		&m.InventoryNumber, &m.FromName, &m.ToName)
	if err != nil {
		return nil, err
	}
	if movedBy.Valid {
		m.MovedBy = &movedBy.Int64
	}
	return m, nil
}

// MoveAsset relocates an asset and appends the transition to its movement
// history. Both writes happen in one transaction. Moving an asset to where
// it already is fails with ErrNoOpMove.
func MoveAsset(ctx context.Context, db *sql.DB, assetID int64, to model.Location, movedBy *int64) (*model.Movement, error) {
	if !model.ValidLocationType(to.Type) {
		return nil, invalid("invalid location type %q", to.Type)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := getAsset(ctx, tx, assetID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("asset %d not found", assetID)
	}

	if err := checkLocation(ctx, tx, to); err != nil {
		return nil, err
	}

	if a.Location() == to {
		return nil, stateConflict(ReasonNoOpMove, "asset %s is already at %s %d", a.InventoryNumber, to.Type, to.ID)
	}

	id, err := relocateAsset(ctx, tx, a, to, movedBy)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing movement: %w", err)
	}
	return GetMovement(ctx, db, id)
}

// relocateAsset appends a movement from the asset's current location to
// "to" and points the asset at its new location. The asset row is only
// updated if it is still where a says it is; otherwise the move lost a race
// and fails with a Conflict.
func relocateAsset(ctx context.Context, q querier, a *model.Asset, to model.Location, movedBy *int64) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO movements (asset_id, from_type, from_id, to_type, to_id, moved_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.LocationType, a.LocationID, to.Type, to.ID, movedBy,
	)
	if err != nil {
		return 0, fmt.Errorf("recording movement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting movement id: %w", err)
	}

	result, err = q.ExecContext(ctx,
		`UPDATE assets SET location_type = ?, location_id = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND location_type = ? AND location_id = ?`,
		to.Type, to.ID, a.ID, a.LocationType, a.LocationID,
	)
	if err != nil {
		return 0, fmt.Errorf("updating asset location: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("updating asset location: %w", err)
	}
	if n == 0 {
		return 0, conflict(ReasonConcurrentUpdate, "asset %s was moved concurrently", a.InventoryNumber)
	}

	a.LocationType, a.LocationID = to.Type, to.ID
	return id, nil
}

// GetMovement returns a movement by ID.
func GetMovement(ctx context.Context, db *sql.DB, id int64) (*model.Movement, error) {
	m, err := scanMovement(db.QueryRowContext(ctx,
		`SELECT `+movementColumns+`
		 FROM movements m
		 JOIN assets a ON a.id = m.asset_id
		 WHERE m.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting movement: %w", err)
	}
	return m, nil
}

// ListAssetMovements returns an asset's movement history, most recent first.
func ListAssetMovements(ctx context.Context, db *sql.DB, assetID int64) ([]model.Movement, error) {
	ok, err := exists(ctx, db, `SELECT COUNT(*) FROM assets WHERE id = ?`, assetID)
	if err != nil {
		return nil, fmt.Errorf("checking asset: %w", err)
	}
	if !ok {
		return nil, notFound("asset %d not found", assetID)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+movementColumns+`
		 FROM movements m
		 JOIN assets a ON a.id = m.asset_id
		 WHERE m.asset_id = ?
		 ORDER BY m.moved_at DESC, m.id DESC`, assetID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing movements: %w", err)
	}
	defer rows.Close()

	var movements []model.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		movements = append(movements, *m)
	}
	return movements, rows.Err()
}
