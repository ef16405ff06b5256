package store

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// inScope restricts an assets query aliased "a" to the device types of a
// session; a session without scope rows covers every asset. It takes the
// session ID twice.
const inScope = `(NOT EXISTS (SELECT 1 FROM inventory_session_device_types st WHERE st.session_id = ?)
	  OR a.device_type_code IN (SELECT st.device_type_code FROM inventory_session_device_types st WHERE st.session_id = ?))`

// CreateSession opens an inventory session. An empty codes list scopes the
// session to all device types. Unknown codes fail with ErrUnknownDeviceTypes
// listing every offending code.
func CreateSession(ctx context.Context, db *sql.DB, description string, codes []string) (*model.InventorySession, error) {
	scope := make([]string, 0, len(codes))
	for _, c := range codes {
		scope = append(scope, strings.TrimSpace(c))
	}
	slices.Sort(scope)
	scope = slices.Compact(scope)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var unknown []string
	for _, code := range scope {
		ok, err := exists(ctx, tx, `SELECT COUNT(*) FROM device_types WHERE code = ?`, code)
		if err != nil {
			return nil, fmt.Errorf("checking device type: %w", err)
		}
		if !ok {
			unknown = append(unknown, code)
		}
	}
	if len(unknown) > 0 {
		return nil, &Error{
			Kind:    KindNotFound,
			Reason:  ReasonUnknownDeviceTypes,
			Message: "unknown device types: " + strings.Join(unknown, ", "),
			Codes:   unknown,
		}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_sessions (description) VALUES (?)`,
		nullString(strings.TrimSpace(description)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting session id: %w", err)
	}

	for _, code := range scope {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory_session_device_types (session_id, device_type_code) VALUES (?, ?)`,
			id, code,
		); err != nil {
			return nil, fmt.Errorf("adding session scope: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session: %w", err)
	}
	return GetSession(ctx, db, id)
}

func scanSession(row interface{ Scan(...any) error }) (*model.InventorySession, error) {
	s := &model.InventorySession{DeviceTypeCodes: []string{}}
	var description sql.NullString
	if err := row.Scan(&s.ID, &s.StartedAt, &s.CompletedAt, &description); err != nil {
		return nil, err
	}
	s.Description = description.String
	return s, nil
}

// GetSession returns a session with its scope.
func GetSession(ctx context.Context, db *sql.DB, id int64) (*model.InventorySession, error) {
	s, err := getSession(ctx, db, id)
	if err != nil || s == nil {
		return s, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT device_type_code FROM inventory_session_device_types
		 WHERE session_id = ? ORDER BY device_type_code`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("getting session scope: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scanning session scope: %w", err)
		}
		s.DeviceTypeCodes = append(s.DeviceTypeCodes, code)
	}
	return s, rows.Err()
}

// getSession returns a session without its scope.
func getSession(ctx context.Context, q querier, id int64) (*model.InventorySession, error) {
	s, err := scanSession(q.QueryRowContext(ctx,
		`SELECT id, started_at, completed_at, description FROM inventory_sessions WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return s, nil
}

// ListSessions returns all sessions, most recent first.
func ListSessions(ctx context.Context, db *sql.DB) ([]model.InventorySession, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, started_at, completed_at, description FROM inventory_sessions
		 ORDER BY started_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.InventorySession
	index := make(map[int64]int)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		index[s.ID] = len(sessions)
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	scopeRows, err := db.QueryContext(ctx,
		`SELECT session_id, device_type_code FROM inventory_session_device_types
		 ORDER BY session_id, device_type_code`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing session scopes: %w", err)
	}
	defer scopeRows.Close()

	for scopeRows.Next() {
		var id int64
		var code string
		if err := scopeRows.Scan(&id, &code); err != nil {
			return nil, fmt.Errorf("scanning session scope: %w", err)
		}
		if i, ok := index[id]; ok {
			sessions[i].DeviceTypeCodes = append(sessions[i].DeviceTypeCodes, code)
		}
	}
	return sessions, scopeRows.Err()
}

// CompleteSession closes an open session. Completing a session twice fails
// with ErrAlreadyCompleted.
func CompleteSession(ctx context.Context, db *sql.DB, id int64) (*model.InventorySession, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := getSession(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("inventory session %d not found", id)
	}
	if !s.Open() {
		return nil, stateConflict(ReasonAlreadyCompleted, "inventory session %d is already completed", id)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE inventory_sessions SET completed_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND completed_at IS NULL`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("completing session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, stateConflict(ReasonAlreadyCompleted, "inventory session %d is already completed", id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing session completion: %w", err)
	}
	return GetSession(ctx, db, id)
}

// DeleteSession deletes a session with its scope and results.
func DeleteSession(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM inventory_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("inventory session %d not found", id)
	}
	return nil
}

// RecordResult records whether an asset was found during a session. Each
// asset can be confirmed once per session.
func RecordResult(ctx context.Context, db *sql.DB, sessionID int64, in model.NewResult) (*model.InventoryResult, error) {
	var actual *model.Location
	switch {
	case in.ActualLocationType == "" && in.ActualLocationID == nil:
	case in.ActualLocationType == "" || in.ActualLocationID == nil:
		return nil, invalid("actual_location_type and actual_location_id must be given together")
	case !model.ValidLocationType(in.ActualLocationType):
		return nil, invalid("invalid location type %q", in.ActualLocationType)
	default:
		actual = &model.Location{Type: in.ActualLocationType, ID: *in.ActualLocationID}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	s, err := getSession(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("inventory session %d not found", sessionID)
	}
	if !s.Open() {
		return nil, stateConflict(ReasonSessionCompleted, "inventory session %d is completed", sessionID)
	}

	a, err := getAsset(ctx, tx, in.AssetID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, notFound("asset %d not found", in.AssetID)
	}

	ok, err := exists(ctx, tx,
		`SELECT COUNT(*) FROM assets a WHERE a.id = ? AND `+inScope,
		a.ID, sessionID, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("checking session scope: %w", err)
	}
	if !ok {
		return nil, &Error{
			Kind:    KindOutOfScope,
			Message: fmt.Sprintf("device type %s is not audited by inventory session %d", a.DeviceTypeCode, sessionID),
		}
	}

	if actual != nil {
		if err := checkLocation(ctx, tx, *actual); err != nil {
			return nil, err
		}
	}

	dup, err := exists(ctx, tx,
		`SELECT COUNT(*) FROM inventory_results WHERE session_id = ? AND asset_id = ?`,
		sessionID, a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("checking existing result: %w", err)
	}
	if dup {
		return nil, duplicateResult(a)
	}

	var actualType sql.NullString
	var actualID sql.NullInt64
	if actual != nil {
		actualType = sql.NullString{String: actual.Type, Valid: true}
		actualID = sql.NullInt64{Int64: actual.ID, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO inventory_results (session_id, asset_id, found, actual_location_type, actual_location_id, confirmed_by)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, a.ID, in.Found, actualType, actualID, in.ConfirmedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, duplicateResult(a)
		}
		return nil, fmt.Errorf("recording result: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting result id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing result: %w", err)
	}
	return getResult(ctx, db, id)
}

func duplicateResult(a *model.Asset) *Error {
	return conflict(ReasonDuplicateResult, "asset %s was already checked in this session", a.InventoryNumber)
}

var resultColumns = `r.id, r.session_id, r.asset_id, r.found, r.actual_location_type, r.actual_location_id,
	        r.confirmed_at, r.confirmed_by`

// resultRow holds the nullable columns of an inventory result while scanning.
type resultRow struct {
	model.InventoryResult
	actualType  sql.NullString
	actualID    sql.NullInt64
	confirmedBy sql.NullInt64
}

func (row *resultRow) dest() []any {
	return []any{&row.ID, &row.SessionID, &row.AssetID, &row.Found, &row.actualType, &row.actualID,
		&row.ConfirmedAt, &row.confirmedBy}
}

func (row *resultRow) result() model.InventoryResult {
	r := row.InventoryResult
	r.ActualLocationType = row.actualType.String
	if row.actualID.Valid {
		id := row.actualID.Int64
		r.ActualLocationID = &id
	}
	if row.confirmedBy.Valid {
		by := row.confirmedBy.Int64
		r.ConfirmedBy = &by
	}
	return r
}

func getResult(ctx context.Context, db *sql.DB, id int64) (*model.InventoryResult, error) {
	var row resultRow
	err := db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM inventory_results r WHERE r.id = ?`, id,
	).Scan(row.dest()...)
	if err != nil {
		return nil, fmt.Errorf("getting result: %w", err)
	}
	r := row.result()
	return &r, nil
}

// requireSession fails with a NotFound error if the session does not exist.
func requireSession(ctx context.Context, db *sql.DB, id int64) error {
	ok, err := exists(ctx, db, `SELECT COUNT(*) FROM inventory_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("checking session: %w", err)
	}
	if !ok {
		return notFound("inventory session %d not found", id)
	}
	return nil
}

// SessionProgress counts the in-scope assets and how many of them have been
// checked. Remaining never drops below zero.
func SessionProgress(ctx context.Context, db *sql.DB, id int64) (*model.SessionProgress, error) {
	if err := requireSession(ctx, db, id); err != nil {
		return nil, err
	}

	p := &model.SessionProgress{SessionID: id}
	err := db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM assets a WHERE `+inScope+`),
		    (SELECT COUNT(*) FROM inventory_results r
		     JOIN assets a ON a.id = r.asset_id
		     WHERE r.session_id = ? AND `+inScope+`)`,
		id, id, id, id, id,
	).Scan(&p.Total, &p.Checked)
	if err != nil {
		return nil, fmt.Errorf("computing session progress: %w", err)
	}

	p.Remaining = max(p.Total-p.Checked, 0)
	return p, nil
}

// CheckedItems returns the session's in-scope results with their assets,
// most recently confirmed first.
func CheckedItems(ctx context.Context, db *sql.DB, id int64) ([]model.InventoryResult, error) {
	if err := requireSession(ctx, db, id); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+resultColumns+`, `+assetColumns+`
		 FROM inventory_results r
		 JOIN assets a ON a.id = r.asset_id
		 WHERE r.session_id = ? AND `+inScope+`
		 ORDER BY r.confirmed_at DESC, r.id DESC`,
		id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing checked items: %w", err)
	}
	defer rows.Close()

	var results []model.InventoryResult
	for rows.Next() {
		var row resultRow
		a := &model.Asset{}
		if err := rows.Scan(append(row.dest(), assetDest(a)...)...); err != nil {
			return nil, fmt.Errorf("scanning checked item: %w", err)
		}
		r := row.result()
		r.Asset = a
		results = append(results, r)
	}
	return results, rows.Err()
}

// RemainingAssets returns the in-scope assets not yet checked in the
// session, ordered by inventory number.
func RemainingAssets(ctx context.Context, db *sql.DB, id int64) ([]model.Asset, error) {
	if err := requireSession(ctx, db, id); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a
		 WHERE `+inScope+`
		   AND NOT EXISTS (SELECT 1 FROM inventory_results r WHERE r.session_id = ? AND r.asset_id = a.id)
		 ORDER BY a.inventory_number`,
		id, id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing remaining assets: %w", err)
	}
	return scanAssets(rows)
}
