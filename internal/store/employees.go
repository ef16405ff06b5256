package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

const employeeColumns = `id, name, phone, position, status`

func scanEmployee(row interface{ Scan(...any) error }) (*model.Employee, error) {
	e := &model.Employee{}
	var position sql.NullString
	if err := row.Scan(&e.ID, &e.Name, &e.Phone, &position, &e.Status); err != nil {
		return nil, err
	}
	e.Position = position.String
	return e, nil
}

// CreateEmployee creates a working employee. The phone number must already
// be normalised by the caller (see model.NormalizePhone).
func CreateEmployee(ctx context.Context, db *sql.DB, name, phone, position string) (*model.Employee, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return nil, invalid("employee name required")
	}
	if phone == "" {
		return nil, invalid("employee phone required")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO employees (name, phone, position) VALUES (?, ?, ?)`,
		name, phone, nullString(strings.TrimSpace(position)),
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, fmt.Sprintf("phone %s already in use", phone), "creating employee")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting employee id: %w", err)
	}
	return GetEmployee(ctx, db, id)
}

// GetEmployee returns an employee by ID.
func GetEmployee(ctx context.Context, db *sql.DB, id int64) (*model.Employee, error) {
	e, err := scanEmployee(db.QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting employee: %w", err)
	}
	return e, nil
}

// ListEmployees returns employees ordered by name, optionally filtered by
// status.
func ListEmployees(ctx context.Context, db *sql.DB, status string) ([]model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees`
	var args []any
	if status != "" {
		if !model.ValidEmployeeStatus(status) {
			return nil, invalid("invalid employee status %q", status)
		}
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing employees: %w", err)
	}
	defer rows.Close()

	var employees []model.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning employee: %w", err)
		}
		employees = append(employees, *e)
	}
	return employees, rows.Err()
}

// UpdateEmployee updates an employee's name, phone and position. Status
// changes go through SetEmployeeStatus.
func UpdateEmployee(ctx context.Context, db *sql.DB, id int64, name, phone, position string) (*model.Employee, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return nil, invalid("employee name required")
	}
	if phone == "" {
		return nil, invalid("employee phone required")
	}

	result, err := db.ExecContext(ctx,
		`UPDATE employees SET name = ?, phone = ?, position = ? WHERE id = ?`,
		name, phone, nullString(strings.TrimSpace(position)), id,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, fmt.Sprintf("phone %s already in use", phone), "updating employee")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("employee %d not found", id)
	}
	return GetEmployee(ctx, db, id)
}

// SetEmployeeStatus changes an employee's status. Termination is refused
// while assets are assigned to the employee; the error lists them.
func SetEmployeeStatus(ctx context.Context, db *sql.DB, id int64, status string) (*model.Employee, error) {
	if !model.ValidEmployeeStatus(status) {
		return nil, invalid("invalid employee status %q", status)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	loc := model.Location{Type: model.LocationEmployee, ID: id}
	if err := checkLocation(ctx, tx, loc); err != nil {
		return nil, err
	}

	if status == model.EmployeeTerminated {
		assets, err := assetsAt(ctx, tx, loc)
		if err != nil {
			return nil, err
		}
		if len(assets) > 0 {
			return nil, &Error{
				Kind:    KindStateConflict,
				Reason:  ReasonEmployeeHasAssets,
				Message: fmt.Sprintf("employee %d still has %d assigned asset(s)", id, len(assets)),
				Assets:  assets,
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE employees SET status = ? WHERE id = ?`, status, id,
	); err != nil {
		return nil, fmt.Errorf("updating employee status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing employee status: %w", err)
	}
	return GetEmployee(ctx, db, id)
}

// DeleteEmployee deletes an employee. Fails while assets are assigned.
func DeleteEmployee(ctx context.Context, db *sql.DB, id int64) error {
	return deleteLocation(ctx, db, model.Location{Type: model.LocationEmployee, ID: id}, `DELETE FROM employees WHERE id = ?`)
}

// EmployeeAssets returns the assets currently assigned to an employee.
func EmployeeAssets(ctx context.Context, db *sql.DB, id int64) ([]model.Asset, error) {
	loc := model.Location{Type: model.LocationEmployee, ID: id}
	if err := checkLocation(ctx, db, loc); err != nil {
		return nil, err
	}
	return assetsAt(ctx, db, loc)
}

// EmployeeAssignmentHistory returns every movement into or out of an
// employee, most recent first, tagged assigned or unassigned.
func EmployeeAssignmentHistory(ctx context.Context, db *sql.DB, id int64) ([]model.AssignmentEvent, error) {
	if err := checkLocation(ctx, db, model.Location{Type: model.LocationEmployee, ID: id}); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+movementColumns+`
		 FROM movements m
		 JOIN assets a ON a.id = m.asset_id
		 WHERE (m.from_type = 'employee' AND m.from_id = ?)
		    OR (m.to_type = 'employee' AND m.to_id = ?)
		 ORDER BY m.moved_at DESC, m.id DESC`,
		id, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing assignment history: %w", err)
	}
	defer rows.Close()

	var events []model.AssignmentEvent
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning movement: %w", err)
		}
		event := model.AssignmentUnassigned
		if m.ToType == model.LocationEmployee && m.ToID == id {
			event = model.AssignmentAssigned
		}
		events = append(events, model.AssignmentEvent{Movement: *m, Event: event})
	}
	return events, rows.Err()
}
