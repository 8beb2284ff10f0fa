// Package export writes attendance sheets and invoices as XLSX workbooks.
package export

import (
	"bytes"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	attendanceSheet = "Attendance"
	invoiceSheet    = "Invoice"
	notMarked       = "not marked"
)

// AttendanceXLSX lists the roster of one occurrence with its marks.
func AttendanceXLSX(inst model.ResolvedInstance, roster []model.RosterEntry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), attendanceSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	title := fmt.Sprintf("%s, %s %s-%s", inst.Name, inst.Date.Format("Mon Jan 2 2006"), inst.StartTime, inst.EndTime)
	rows := [][]any{
		{title},
		{"Teacher", inst.TeacherName, "Location", inst.LocationName},
		{},
		{"Student", "Status", "Notes", "Updated"},
	}
	for _, e := range roster {
		if e.Attendance == nil {
			rows = append(rows, []any{e.StudentName, notMarked, "", ""})
			continue
		}
		rows = append(rows, []any{
			e.StudentName,
			string(e.Attendance.Status),
			e.Attendance.Notes,
			e.Attendance.UpdatedAt.Format("2006-01-02 15:04"),
		})
	}

	if err := writeRows(f, attendanceSheet, rows); err != nil {
		return nil, err
	}
	if err := boldRow(f, attendanceSheet, 4, "D"); err != nil {
		return nil, err
	}
	_ = f.SetColWidth(attendanceSheet, "A", "A", 28)
	_ = f.SetColWidth(attendanceSheet, "C", "C", 40)

	return encode(f)
}

// InvoiceXLSX lays out the invoice header, its items and totals.
func InvoiceXLSX(inv *model.Invoice) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), invoiceSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{"Invoice", inv.Number},
		{"Status", string(inv.Status)},
		{"Bill to", inv.ParentName, inv.ParentEmail},
		{"Due date", inv.DueDate.Format("2006-01-02")},
		{},
		{"Description", "Type", "Quantity", "Unit price", "Total"},
	}
	header := len(rows)
	for _, it := range inv.Items {
		rows = append(rows, []any{it.Description, string(it.Type), it.Quantity, it.UnitPrice.Float(), it.Total.Float()})
	}
	rows = append(rows,
		[]any{},
		[]any{"", "", "", "Subtotal", inv.Subtotal.Float()},
		[]any{"", "", "", "Tax", inv.Tax.Float()},
		[]any{"", "", "", "Total", inv.Total.Float()},
	)
	if inv.Notes != "" {
		rows = append(rows, []any{}, []any{"Notes", inv.Notes})
	}

	if err := writeRows(f, invoiceSheet, rows); err != nil {
		return nil, err
	}
	if err := boldRow(f, invoiceSheet, header, "E"); err != nil {
		return nil, err
	}

	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}
	last := len(rows)
	if err := f.SetCellStyle(invoiceSheet, cell("D", header+1), cell("E", last), money); err != nil {
		return nil, fmt.Errorf("style amounts: %w", err)
	}
	_ = f.SetColWidth(invoiceSheet, "A", "A", 36)

	return encode(f)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := f.SetSheetRow(sheet, cell("A", i+1), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}

func boldRow(f *excelize.File, sheet string, row int, lastCol string) error {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetCellStyle(sheet, cell("A", row), cell(lastCol, row), style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func encode(f *excelize.File) ([]byte, error) {
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
