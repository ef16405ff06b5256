package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/inventura/internal/db"
	"github.com/erazemk/inventura/internal/model"
)

// fixture is a database with one company (WWP), two device types
// (01 Monitor, 02 Laptop), a vendor, a warehouse and two employees.
type fixture struct {
	db        *sql.DB
	ctx       context.Context
	vendor    *model.Vendor
	warehouse *model.Warehouse
	alice     *model.Employee
	bob       *model.Employee
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{db: db.NewTestDB(t), ctx: context.Background()}
	var err error

	_, err = CreateCompany(f.ctx, f.db, "WWP", "World Wide Products")
	require.NoError(t, err)
	_, err = CreateDeviceType(f.ctx, f.db, "01", "Monitor")
	require.NoError(t, err)
	_, err = CreateDeviceType(f.ctx, f.db, "02", "Laptop")
	require.NoError(t, err)

	f.vendor, err = CreateVendor(f.ctx, f.db, "Dell")
	require.NoError(t, err)
	f.warehouse, err = CreateWarehouse(f.ctx, f.db, "Main Warehouse", "123 Main St")
	require.NoError(t, err)
	f.alice, err = CreateEmployee(f.ctx, f.db, "Alice", "001", "Engineer")
	require.NoError(t, err)
	f.bob, err = CreateEmployee(f.ctx, f.db, "Bob", "002", "")
	require.NoError(t, err)

	return f
}

func (f *fixture) inWarehouse() model.Location {
	return model.Location{Type: model.LocationWarehouse, ID: f.warehouse.ID}
}

func (f *fixture) withAlice() model.Location {
	return model.Location{Type: model.LocationEmployee, ID: f.alice.ID}
}

func (f *fixture) withBob() model.Location {
	return model.Location{Type: model.LocationEmployee, ID: f.bob.ID}
}

// newAsset registers an asset of the given device type in the warehouse.
func (f *fixture) newAsset(t *testing.T, deviceType, serial string) *model.Asset {
	t.Helper()

	a, err := CreateAsset(f.ctx, f.db, model.NewAsset{
		CompanyCode:    "WWP",
		DeviceTypeCode: deviceType,
		SerialNumber:   serial,
		VendorID:       f.vendor.ID,
		Model:          "P2419H",
		LocationType:   model.LocationWarehouse,
		LocationID:     f.warehouse.ID,
	})
	require.NoError(t, err)
	return a
}

// insertRawAsset stores an asset row with an arbitrary inventory number,
// bypassing allocation.
func (f *fixture) insertRawAsset(t *testing.T, number, serial string) {
	t.Helper()

	_, err := f.db.ExecContext(f.ctx,
		`INSERT INTO assets (company_code, device_type_code, inventory_number, serial_number,
		                     vendor_id, vendor, model, location_type, location_id)
		 VALUES ('WWP', '01', ?, ?, ?, ?, 'Legacy', 'warehouse', ?)`,
		number, serial, f.vendor.ID, f.vendor.Name, f.warehouse.ID,
	)
	require.NoError(t, err)
}

func requireKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()

	require.Error(t, err)
	var se *Error
	require.ErrorAs(t, err, &se)
	require.Equal(t, kind, se.Kind, "error: %v", err)
	return se
}
