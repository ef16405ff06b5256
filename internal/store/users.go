package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/inventura/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates an account. Usernames are unique among active users;
// a deleted user's name can be reused.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalid("username is required")
	}
	if !model.ValidRole(role) {
		return nil, invalid("invalid role %q", role)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if err != nil {
		return nil, asConflict(err, ReasonDuplicate, fmt.Sprintf("username %q already taken", username), "creating user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}
	return GetUser(ctx, db, id)
}

// GetUser returns a user by id, deleted or not. It returns nil if there is
// no such user.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given name, or the most
// recently deleted one when none is active, so that login can tell a
// deleted account from an unknown one.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NOT NULL, id DESC LIMIT 1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns active users ordered by id.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// updateActiveUser runs an UPDATE against one active user and reports
// NotFound when nothing matched.
func updateActiveUser(ctx context.Context, db *sql.DB, id int64, action, set string, args ...any) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET `+set+` WHERE id = ? AND deleted_at IS NULL`,
		append(args, id)...)
	if err != nil {
		return fmt.Errorf("%s: %w", action, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound("user %d not found", id)
	}
	return nil
}

// UpdateUserRole changes a user's role.
func UpdateUserRole(ctx context.Context, db *sql.DB, id int64, role string) error {
	if !model.ValidRole(role) {
		return invalid("invalid role %q", role)
	}
	return updateActiveUser(ctx, db, id, "updating user role", "role = ?", role)
}

// UpdateUserPassword stores a new password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	return updateActiveUser(ctx, db, id, "updating user password", "password_hash = ?", passwordHash)
}

// DeleteUser soft-deletes a user. Movements and results recorded by the user
// keep pointing at the row.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	return updateActiveUser(ctx, db, id, "deleting user", "deleted_at = CURRENT_TIMESTAMP")
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}
