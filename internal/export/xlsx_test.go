package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAttendanceXLSX(t *testing.T) {
	inst := model.ResolvedInstance{
		Name:         "Ballet I",
		Date:         time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		TeacherName:  "Ana",
		LocationName: "Studio A",
		StartTime:    model.NewTimeOfDay(16, 0),
		EndTime:      model.NewTimeOfDay(17, 0),
	}
	roster := []model.RosterEntry{
		{EnrollmentID: uuid.New(), StudentName: "Mia"},
		{EnrollmentID: uuid.New(), StudentName: "Leo", Attendance: &model.AttendanceRecord{
			Status: model.AttendanceLate, Notes: "bus", UpdatedAt: time.Date(2024, 1, 10, 16, 5, 0, 0, time.UTC),
		}},
	}

	data, err := AttendanceXLSX(inst, roster)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(attendanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, []string{"Student", "Status", "Notes", "Updated"}, rows[3])
	assert.Equal(t, "Mia", rows[4][0])
	assert.Equal(t, notMarked, rows[4][1])
	assert.Equal(t, []string{"Leo", "late", "bus", "2024-01-10 16:05"}, rows[5])
}

func TestInvoiceXLSX(t *testing.T) {
	inv := &model.Invoice{
		Number:     "INV-20240101-ABC123",
		Status:     model.InvoiceDraft,
		ParentName: "Sam",
		DueDate:    time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Subtotal:   4550,
		Total:      4550,
		Items: []model.InvoiceItem{
			{Description: "Ballet Tuition", Type: model.ItemTuition, Quantity: 2, UnitPrice: 1000, Total: 2000},
			{Description: "Costume", Type: model.ItemCostume, Quantity: 1, UnitPrice: 2550, Total: 2550},
		},
	}

	data, err := InvoiceXLSX(inv)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	number, err := f.GetCellValue(invoiceSheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, inv.Number, number)

	total, err := f.GetCellValue(invoiceSheet, "E12", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "45.5", total)
}
