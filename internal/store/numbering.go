package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// NextInventoryNumber returns the number the next asset of a company and
// device type would receive. Nothing is reserved: a concurrent CreateAsset
// may take it first.
func NextInventoryNumber(ctx context.Context, db *sql.DB, companyCode, deviceTypeCode string) (string, error) {
	if err := checkCodes(ctx, db, companyCode, deviceTypeCode); err != nil {
		return "", err
	}
	next, err := nextSequence(ctx, db, companyCode, deviceTypeCode)
	if err != nil {
		return "", err
	}
	return model.FormatInventoryNumber(companyCode, deviceTypeCode, next), nil
}

// checkCodes validates the format and existence of a company and device
// type code pair.
func checkCodes(ctx context.Context, q querier, companyCode, deviceTypeCode string) error {
	if !model.ValidCompanyCode(companyCode) {
		return invalid("company code must be exactly 3 uppercase letters")
	}
	if !model.ValidDeviceTypeCode(deviceTypeCode) {
		return invalid("device type code must be exactly 2 digits")
	}

	ok, err := exists(ctx, q, `SELECT COUNT(*) FROM companies WHERE code = ?`, companyCode)
	if err != nil {
		return fmt.Errorf("checking company: %w", err)
	}
	if !ok {
		return notFound("company %s not found", companyCode)
	}

	ok, err = exists(ctx, q, `SELECT COUNT(*) FROM device_types WHERE code = ?`, deviceTypeCode)
	if err != nil {
		return fmt.Errorf("checking device type: %w", err)
	}
	if !ok {
		return notFound("device type %s not found", deviceTypeCode)
	}
	return nil
}

// allocate takes the next sequence for the prefix and records it in the
// counter table. It must run inside a write transaction: the counter row
// update is what serialises concurrent allocations for the same prefix.
func allocate(ctx context.Context, q querier, companyCode, deviceTypeCode string) (string, error) {
	next, err := nextSequence(ctx, q, companyCode, deviceTypeCode)
	if err != nil {
		return "", err
	}

	if _, err := q.ExecContext(ctx,
		`INSERT INTO inventory_counters (prefix, last_number) VALUES (?, ?)
		 ON CONFLICT (prefix) DO UPDATE SET last_number = excluded.last_number`,
		counterKey(companyCode, deviceTypeCode), next,
	); err != nil {
		return "", fmt.Errorf("updating inventory counter: %w", err)
	}

	return model.FormatInventoryNumber(companyCode, deviceTypeCode, next), nil
}

// nextSequence is one past the larger of the stored counter and the highest
// well-formed number already on an asset, so numbers are never reused even
// after assets are deleted.
func nextSequence(ctx context.Context, q querier, companyCode, deviceTypeCode string) (int, error) {
	key := counterKey(companyCode, deviceTypeCode)

	var last int
	err := q.QueryRowContext(ctx,
		`SELECT last_number FROM inventory_counters WHERE prefix = ?`, key,
	).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("reading inventory counter: %w", err)
	}

	highest, err := highestSequence(ctx, q, model.InventoryPrefix(companyCode, deviceTypeCode))
	if err != nil {
		return 0, err
	}

	next := max(last, highest) + 1
	if next > model.MaxSequence {
		return 0, &Error{
			Kind:    KindCapacityExceeded,
			Message: fmt.Sprintf("inventory numbers for %s are exhausted", key),
		}
	}
	return next, nil
}

// counterKey is the inventory_counters key, the prefix without its slash.
func counterKey(companyCode, deviceTypeCode string) string {
	return strings.TrimSuffix(model.InventoryPrefix(companyCode, deviceTypeCode), "/")
}

// highestSequence returns the largest four-digit suffix among asset numbers
// with the given prefix. Malformed suffixes are ignored.
func highestSequence(ctx context.Context, q querier, prefix string) (int, error) {
	var number string
	err := q.QueryRowContext(ctx,
		`SELECT inventory_number FROM assets
		 WHERE inventory_number GLOB ? || '[0-9][0-9][0-9][0-9]'
		 ORDER BY inventory_number DESC LIMIT 1`,
		prefix,
	).Scan(&number)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("finding highest inventory number: %w", err)
	}

	seq, ok := model.ParseSequence(number, prefix)
	if !ok {
		return 0, nil
	}
	return seq, nil
}
