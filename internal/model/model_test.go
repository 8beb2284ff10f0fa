package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionsFor(t *testing.T) {
	assert.Equal(t, []Section{
		SectionOverview, SectionClasses, SectionMessages, SectionChannels,
		SectionStudio, SectionTeachers, SectionStudents, SectionPayments, SectionInvoices,
	}, SectionsFor(RoleOwner))
	assert.Equal(t, []Section{
		SectionOverview, SectionClasses, SectionMessages, SectionChannels,
	}, SectionsFor(RoleTeacher))
	assert.Equal(t, []Section{
		SectionOverview, SectionClasses, SectionMessages, SectionChannels, SectionMyStudents,
	}, SectionsFor(RoleParent))
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("teacher")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)
	assert.Equal(t, "teachers", r.ProfileTable())

	_, err = ParseRole("admin")
	assert.Error(t, err)
	assert.False(t, RoleOwner.NeedsStudio())
	assert.True(t, RoleParent.NeedsStudio())
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		in   string
		want TimeOfDay
		ok   bool
	}{
		{"16:00", NewTimeOfDay(16, 0), true},
		{"09:05:00", NewTimeOfDay(9, 5), true},
		{"24:00", 0, false},
		{"7", 0, false},
		{"10:60", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	data, err := json.Marshal(NewTimeOfDay(9, 30))
	require.NoError(t, err)
	assert.JSONEq(t, `"09:30"`, string(data))

	var back TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"17:45"`), &back))
	assert.Equal(t, NewTimeOfDay(17, 45), back)
	assert.Error(t, json.Unmarshal([]byte(`1745`), &back))

	pg := NewTimeOfDay(16, 30).PG()
	fromPG, ok := TimeOfDayFromPG(pg)
	assert.True(t, ok)
	assert.Equal(t, NewTimeOfDay(16, 30), fromPG)
	assert.Nil(t, OptionalTimeOfDay(PGOptional(nil)))
}

func TestInvoiceTransitions(t *testing.T) {
	allowed := map[[2]InvoiceStatus]bool{
		{InvoiceDraft, InvoiceSent}:        true,
		{InvoiceDraft, InvoiceCancelled}:   true,
		{InvoiceSent, InvoicePaid}:         true,
		{InvoiceSent, InvoiceOverdue}:      true,
		{InvoiceSent, InvoiceCancelled}:    true,
		{InvoiceOverdue, InvoicePaid}:      true,
		{InvoiceOverdue, InvoiceCancelled}: true,
	}
	for _, from := range InvoiceStatuses {
		for _, to := range InvoiceStatuses {
			assert.Equal(t, allowed[[2]InvoiceStatus{from, to}], from.CanTransition(to), "%s -> %s", from, to)
		}
	}
}

func TestCentsString(t *testing.T) {
	assert.Equal(t, "45.50", Cents(4550).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "-12.00", Cents(-1200).String())
	assert.InDelta(t, 45.5, Cents(4550).Float(), 1e-9)
}

func TestResolveInstance(t *testing.T) {
	wed := time.Wednesday
	class := &Class{
		ID:          uuid.New(),
		Name:        "Ballet I",
		TeacherID:   uuid.New(),
		LocationID:  uuid.New(),
		StartTime:   NewTimeOfDay(16, 0),
		EndTime:     NewTimeOfDay(17, 0),
		IsRecurring: true,
		DayOfWeek:   &wed,
	}
	plain := &ClassInstance{ID: uuid.New(), ClassID: class.ID}
	r := plain.Resolve(class)
	assert.Equal(t, "Ballet I", r.Name)
	assert.False(t, r.Overridden)

	name, start := "Ballet I (recital)", NewTimeOfDay(18, 0)
	changed := &ClassInstance{ID: uuid.New(), ClassID: class.ID, Name: &name, StartTime: &start}
	r = changed.Resolve(class)
	assert.Equal(t, name, r.Name)
	assert.Equal(t, start, r.StartTime)
	assert.Equal(t, class.EndTime, r.EndTime)
	assert.Equal(t, class.TeacherID, r.TeacherID)
	assert.True(t, r.Overridden)
}

func TestClassChangesApply(t *testing.T) {
	oneOff := &Class{Name: "Showcase", StartDate: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	oneOff.EndDate = oneOff.StartDate
	fri := time.Friday
	later := oneOff.StartDate.AddDate(0, 1, 0)

	ch := ClassChanges{DayOfWeek: &fri, EndDate: &later}
	assert.True(t, ch.ShapeChanged())
	assert.False(t, ch.InstanceFieldsChanged())

	ch.Apply(oneOff)
	assert.Nil(t, oneOff.DayOfWeek, "one-off classes have no weekday")
	assert.Equal(t, oneOff.StartDate, oneOff.EndDate)
}
