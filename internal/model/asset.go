package model

import "time"

// Location types.
const (
	LocationEmployee  = "employee"
	LocationWarehouse = "warehouse"
)

// ValidLocationType reports whether t names a location kind.
func ValidLocationType(t string) bool {
	return t == LocationEmployee || t == LocationWarehouse
}

// Location points at an employee or a warehouse.
type Location struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

// Asset is an individually tracked device.
type Asset struct {
	ID              int64     `json:"id"`
	CompanyCode     string    `json:"company_code"`
	DeviceTypeCode  string    `json:"device_type_code"`
	InventoryNumber string    `json:"inventory_number"`
	SerialNumber    string    `json:"serial_number"`
	VendorID        int64     `json:"vendor_id"`
	Vendor          string    `json:"vendor"`
	Model           string    `json:"model"`
	LocationType    string    `json:"location_type"`
	LocationID      int64     `json:"location_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Joined field (not always populated).
	LocationName string `json:"location_name,omitempty"`
}

// Location returns the asset's current location.
func (a *Asset) Location() Location {
	return Location{Type: a.LocationType, ID: a.LocationID}
}

// NewAsset holds the caller-supplied fields of an asset to be registered.
type NewAsset struct {
	CompanyCode    string
	DeviceTypeCode string
	SerialNumber   string
	VendorID       int64
	Model          string
	LocationType   string
	LocationID     int64
}

// AssetUpdate is a partial update; nil fields are left unchanged.
type AssetUpdate struct {
	SerialNumber *string
	VendorID     *int64
	Model        *string
	LocationType *string
	LocationID   *int64
}

// AssetFilter narrows asset listings. Zero values mean "no filter".
type AssetFilter struct {
	DeviceTypeCode string
	LocationType   string
	LocationID     int64
	Search         string
	Limit          int
	Offset         int
}

// Location update policies for AssetUpdate.
const (
	// LocationUpdateLedger relocates through the movement ledger.
	LocationUpdateLedger = "ledger"
	// LocationUpdateReject refuses location fields in updates.
	LocationUpdateReject = "reject"
)

// ValidLocationUpdatePolicy reports whether p is a known policy.
func ValidLocationUpdatePolicy(p string) bool {
	return p == LocationUpdateLedger || p == LocationUpdateReject
}
