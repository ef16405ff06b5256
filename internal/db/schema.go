package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'user' CHECK (role IN ('admin', 'manager', 'user')),
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS companies (
    id   INTEGER PRIMARY KEY,
    code TEXT NOT NULL UNIQUE CHECK (length(code) = 3),
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS device_types (
    id   INTEGER PRIMARY KEY,
    code TEXT NOT NULL UNIQUE CHECK (length(code) = 2),
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS vendors (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE CHECK (name <> ''),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

-- Asset and location ids are never reused: movements keep referring to
-- them after the row is gone.
CREATE TABLE IF NOT EXISTS warehouses (
    id      INTEGER PRIMARY KEY AUTOINCREMENT,
    name    TEXT NOT NULL,
    address TEXT
);

CREATE TABLE IF NOT EXISTS employees (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    name     TEXT NOT NULL,
    phone    TEXT NOT NULL UNIQUE,
    position TEXT,
    status   TEXT NOT NULL DEFAULT 'working' CHECK (status IN ('working', 'terminated'))
);

CREATE INDEX IF NOT EXISTS idx_employees_status ON employees(status);

CREATE TABLE IF NOT EXISTS assets (
    id               INTEGER PRIMARY KEY AUTOINCREMENT,
    company_code     TEXT NOT NULL REFERENCES companies(code),
    device_type_code TEXT NOT NULL REFERENCES device_types(code),
    inventory_number TEXT NOT NULL UNIQUE,
    serial_number    TEXT NOT NULL UNIQUE,
    vendor_id        INTEGER NOT NULL REFERENCES vendors(id),
    vendor           TEXT NOT NULL,
    model            TEXT NOT NULL,
    location_type    TEXT NOT NULL CHECK (location_type IN ('employee', 'warehouse')),
    location_id      INTEGER NOT NULL,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_assets_location ON assets(location_type, location_id);
CREATE INDEX IF NOT EXISTS idx_assets_device_type ON assets(device_type_code);
CREATE INDEX IF NOT EXISTS idx_assets_vendor ON assets(vendor_id);

-- Last allocated sequence number per "CCC-DD" prefix.
CREATE TABLE IF NOT EXISTS inventory_counters (
    prefix      TEXT PRIMARY KEY,
    last_number INTEGER NOT NULL CHECK (last_number BETWEEN 0 AND 9999)
);

CREATE TABLE IF NOT EXISTS movements (
    id        INTEGER PRIMARY KEY,
    asset_id  INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    from_type TEXT NOT NULL CHECK (from_type IN ('employee', 'warehouse')),
    from_id   INTEGER NOT NULL,
    to_type   TEXT NOT NULL CHECK (to_type IN ('employee', 'warehouse')),
    to_id     INTEGER NOT NULL,
    moved_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    moved_by  INTEGER REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_movements_asset ON movements(asset_id, moved_at);

CREATE TABLE IF NOT EXISTS inventory_sessions (
    id           INTEGER PRIMARY KEY,
    started_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME,
    description  TEXT
);

CREATE TABLE IF NOT EXISTS inventory_session_device_types (
    session_id       INTEGER NOT NULL REFERENCES inventory_sessions(id) ON DELETE CASCADE,
    device_type_code TEXT NOT NULL REFERENCES device_types(code),
    PRIMARY KEY (session_id, device_type_code)
);

CREATE TABLE IF NOT EXISTS inventory_results (
    id                   INTEGER PRIMARY KEY,
    session_id           INTEGER NOT NULL REFERENCES inventory_sessions(id) ON DELETE CASCADE,
    asset_id             INTEGER NOT NULL REFERENCES assets(id) ON DELETE CASCADE,
    found                INTEGER NOT NULL,
    actual_location_type TEXT CHECK (actual_location_type IN ('employee', 'warehouse')),
    actual_location_id   INTEGER,
    confirmed_at         DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    confirmed_by         INTEGER REFERENCES users(id),
    UNIQUE (session_id, asset_id)
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
