package model

import "time"

// Movement is one append-only relocation record.
type Movement struct {
	ID       int64     `json:"id"`
	AssetID  int64     `json:"asset_id"`
	FromType string    `json:"from_type"`
	FromID   int64     `json:"from_id"`
	ToType   string    `json:"to_type"`
	ToID     int64     `json:"to_id"`
	MovedAt  time.Time `json:"moved_at"`
	MovedBy  *int64    `json:"moved_by,omitempty"`

	// Joined fields (not always populated).
	InventoryNumber string `json:"inventory_number,omitempty"`
	FromName        string `json:"from_name,omitempty"`
	ToName          string `json:"to_name,omitempty"`
}

// Assignment event kinds.
const (
	AssignmentAssigned   = "assigned"
	AssignmentUnassigned = "unassigned"
)

// AssignmentEvent is a movement seen from one employee's perspective.
type AssignmentEvent struct {
	Movement
	Event string `json:"event"`
}
