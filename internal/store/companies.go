package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

// CreateCompany creates a company. The code is immutable afterwards.
func CreateCompany(ctx context.Context, db *sql.DB, code, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if !model.ValidCompanyCode(code) {
		return nil, invalid("company code must be exactly 3 uppercase letters")
	}
	if name == "" {
		return nil, invalid("company name required")
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO companies (code, name) VALUES (?, ?)`,
		code, name,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, "company code already exists", "creating company")
	}

	return GetCompany(ctx, db, code)
}

// GetCompany returns a company by code.
func GetCompany(ctx context.Context, db *sql.DB, code string) (*model.Company, error) {
	c := &model.Company{}
	err := db.QueryRowContext(ctx,
		`SELECT id, code, name FROM companies WHERE code = ?`, code,
	).Scan(&c.ID, &c.Code, &c.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company: %w", err)
	}
	return c, nil
}

// ListCompanies returns all companies ordered by code.
func ListCompanies(ctx context.Context, db *sql.DB) ([]model.Company, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, code, name FROM companies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		var c model.Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// RenameCompany updates a company's name.
func RenameCompany(ctx context.Context, db *sql.DB, code, name string) (*model.Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("company name required")
	}

	result, err := db.ExecContext(ctx, `UPDATE companies SET name = ? WHERE code = ?`, name, code)
	if err != nil {
		return nil, fmt.Errorf("renaming company: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, notFound("company %s not found", code)
	}
	return GetCompany(ctx, db, code)
}

// DeleteCompany deletes a company. Fails while any asset belongs to it.
func DeleteCompany(ctx context.Context, db *sql.DB, code string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE company_code = ?`, code,
	).Scan(&count); err != nil {
		return fmt.Errorf("checking company assets: %w", err)
	}
	if count > 0 {
		return inUse("company "+code, count)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE code = ?`, code)
	if err != nil {
		return fmt.Errorf("deleting company: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("company %s not found", code)
	}
	return tx.Commit()
}
