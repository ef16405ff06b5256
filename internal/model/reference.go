package model

import "time"

// Company owns assets; its code is the first segment of inventory numbers.
type Company struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// DeviceType classifies assets; its code is the second segment of
// inventory numbers.
type DeviceType struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Vendor is a manufacturer. Assets keep a copy of the name in Asset.Vendor.
type Vendor struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Warehouse is a storage location for assets.
type Warehouse struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Employee is a person assets can be assigned to.
type Employee struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Position string `json:"position,omitempty"`
	Status   string `json:"status"`
}

// Employee statuses.
const (
	EmployeeWorking    = "working"
	EmployeeTerminated = "terminated"
)

// ValidEmployeeStatus reports whether s is a known employee status.
func ValidEmployeeStatus(s string) bool {
	return s == EmployeeWorking || s == EmployeeTerminated
}
