package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventura/internal/model"
)

func TestWriteXLSX(t *testing.T) {
	rows := []model.ReportRow{
		{DeviceType: "Monitor", VendorModel: "Dell P2419H", Serial: "SN-1", Inventory: "WWP-01/0001", Location: "Alice", Phone: "001"},
		{DeviceType: "Laptop", VendorModel: "Lenovo T14", Serial: "SN-2", Inventory: "WWP-02/0001", Location: "Main Warehouse"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Header, got[0])
	assert.Equal(t, []string{"Monitor", "Dell P2419H", "SN-1", "WWP-01/0001", "Alice", "001"}, got[1])
	// Trailing empty cells are dropped by GetRows.
	assert.Equal(t, []string{"Laptop", "Lenovo T14", "SN-2", "WWP-02/0001", "Main Warehouse"}, got[2])

	styleID, err := f.GetCellStyle(SheetName, "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, Header, got[0])
}

func TestWriteXLSXColumnWidthCapped(t *testing.T) {
	long := string(bytes.Repeat([]byte("x"), 200))
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, []model.ReportRow{{DeviceType: "Monitor", VendorModel: long}}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	width, err := f.GetColWidth(SheetName, "B")
	require.NoError(t, err)
	assert.Equal(t, float64(maxColumnWidth), width)
}
