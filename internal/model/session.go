package model

import "time"

// InventorySession is an audit campaign. An empty DeviceTypeCodes scope
// covers all device types.
type InventorySession struct {
	ID              int64      `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Description     string     `json:"description,omitempty"`
	DeviceTypeCodes []string   `json:"device_type_codes"`
}

// Open reports whether results can still be recorded.
func (s *InventorySession) Open() bool {
	return s.CompletedAt == nil
}

// InventoryResult records whether an asset was found during a session.
type InventoryResult struct {
	ID                 int64     `json:"id"`
	SessionID          int64     `json:"session_id"`
	AssetID            int64     `json:"asset_id"`
	Found              bool      `json:"found"`
	ActualLocationType string    `json:"actual_location_type,omitempty"`
	ActualLocationID   *int64    `json:"actual_location_id,omitempty"`
	ConfirmedAt        time.Time `json:"confirmed_at"`
	ConfirmedBy        *int64    `json:"confirmed_by,omitempty"`

	// Joined field (populated by checked item listings).
	Asset *Asset `json:"asset,omitempty"`
}

// NewResult holds the fields of a result to be recorded.
type NewResult struct {
	AssetID            int64
	Found              bool
	ActualLocationType string
	ActualLocationID   *int64
	ConfirmedBy        *int64
}

// SessionProgress summarises how much of a session's scope was checked.
type SessionProgress struct {
	SessionID int64 `json:"session_id"`
	Checked   int   `json:"checked"`
	Total     int   `json:"total"`
	Remaining int   `json:"remaining"`
}
