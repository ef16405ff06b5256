package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/inventura/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exists runs a COUNT query and reports whether it found anything.
func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var n int
	if err := q.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// checkLocation verifies that loc names an existing employee or warehouse.
func checkLocation(ctx context.Context, q querier, loc model.Location) error {
	var query string
	switch loc.Type {
	case model.LocationEmployee:
		query = `SELECT COUNT(*) FROM employees WHERE id = ?`
	case model.LocationWarehouse:
		query = `SELECT COUNT(*) FROM warehouses WHERE id = ?`
	default:
		return invalid("invalid location type %q", loc.Type)
	}

	ok, err := exists(ctx, q, query, loc.ID)
	if err != nil {
		return fmt.Errorf("checking location: %w", err)
	}
	if !ok {
		return notFound("%s with id %d not found", loc.Type, loc.ID)
	}
	return nil
}

// locationNameExpr resolves the display name of a (type, id) column pair.
func locationNameExpr(typeCol, idCol string) string {
	return `COALESCE(CASE ` + typeCol + `
	            WHEN 'employee'  THEN (SELECT name FROM employees  WHERE id = ` + idCol + `)
	            WHEN 'warehouse' THEN (SELECT name FROM warehouses WHERE id = ` + idCol + `)
	        END, '')`
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
