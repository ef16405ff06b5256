package model

// ReportRow is one line of the tabular asset report.
type ReportRow struct {
	DeviceType  string `json:"device_type"`
	VendorModel string `json:"vendor_model"`
	Serial      string `json:"serial"`
	Inventory   string `json:"inventory"`
	Location    string `json:"location"`
	Phone       string `json:"phone"`
}

// ReportFilter narrows a report to one device type and/or one location.
// Zero values mean "no filter".
type ReportFilter struct {
	DeviceTypeCode string
	EmployeeID     int64
	WarehouseID    int64
}
