// Package report renders leave records for download.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/warp/leave-service/leave"
)

const (
	// SheetName is the only sheet in an export.
	SheetName = "Leaves"

	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Headers is the first row of every export.
var Headers = []string{
	"ID", "Employee ID", "Name", "Email", "Leave Type",
	"From Date", "To Date", "From Hour", "To Hour", "Days",
	"Reason", "Status", "Created At",
}

// WriteLeaves writes records as a single-sheet workbook to w, in the
// order given.
func WriteLeaves(w io.Writer, records []leave.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := writeRow(f, 1, toAny(Headers)); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Headers), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	for i, r := range records {
		row := []any{
			r.ID, r.EmpID, r.Name, r.Email, string(r.LeaveType),
			r.From.String(), r.To.String(), clock(r.FromHour), clock(r.ToHour),
			r.Range().Days(), r.Reason, string(r.Status),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func clock(c *leave.Clock) string {
	if c == nil {
		return ""
	}
	return c.String()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
