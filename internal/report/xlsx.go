package report

import (
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/erazemk/inventura/internal/model"
)

// SheetName is the worksheet holding the report.
const SheetName = "Assets Report"

// MIME is the content type of exported workbooks.
const MIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Filename is the suggested download name.
const Filename = "assets_report.xlsx"

// Header is the first row of the report.
var Header = []string{"Device Type", "Vendor+Model", "Serial", "Inventory", "Location", "Phone"}

// maxColumnWidth caps auto-sized columns.
const maxColumnWidth = 50

func values(r model.ReportRow) []string {
	return []string{r.DeviceType, r.VendorModel, r.Serial, r.Inventory, r.Location, r.Phone}
}

// WriteXLSX writes rows as a single-sheet workbook with a bold header and
// columns sized to their content.
func WriteXLSX(w io.Writer, rows []model.ReportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	// Rename the default sheet so the workbook has exactly one.
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	widths := make([]int, len(Header))
	for col, h := range Header {
		widths[col] = utf8.RuneCountInString(h)
	}

	if err := setRow(f, 1, Header); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return fmt.Errorf("converting coordinates: %w", err)
	}
	if err := f.SetCellStyle(SheetName, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, r := range rows {
		vals := values(r)
		if err := setRow(f, i+2, vals); err != nil {
			return err
		}
		for col, v := range vals {
			widths[col] = max(widths[col], utf8.RuneCountInString(v))
		}
	}

	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return fmt.Errorf("converting column number: %w", err)
		}
		if err := f.SetColWidth(SheetName, name, name, float64(min(width+2, maxColumnWidth))); err != nil {
			return fmt.Errorf("setting column width: %w", err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, vals []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("converting coordinates: %w", err)
	}
	cells := make([]any, len(vals))
	for i, v := range vals {
		cells[i] = v
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}
