package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type studioFixture struct {
	studioID   uuid.UUID
	teacherID  uuid.UUID
	locationID uuid.UUID
	parentID   uuid.UUID

	studios  *fakeStudioStore
	students *fakeStudentStore
	classes  *fakeClassStore
	cache    *ReferenceCache

	studio *StudioService
	svc    *ClassService
}

func newStudioFixture(t *testing.T) *studioFixture {
	t.Helper()

	f := &studioFixture{
		studioID:   uuid.New(),
		teacherID:  uuid.New(),
		locationID: uuid.New(),
		parentID:   uuid.New(),
		students:   newFakeStudentStore(),
		cache:      NewReferenceCache(time.Hour),
	}
	f.studios = newFakeStudioStore(f.studioID)
	f.studios.teachers = []model.Teacher{{ID: f.teacherID, StudioID: f.studioID, Name: "Tara"}}
	f.studios.locations = []model.Location{{ID: f.locationID, StudioID: f.studioID, Name: "Studio A"}}
	f.studios.parents = []model.Parent{{ID: f.parentID, StudioID: f.studioID, Name: "Pat", Email: "pat@example.com"}}

	f.classes = newFakeClassStore(f.students)
	f.classes.teachers[f.teacherID] = "Tara"
	f.classes.locations[f.locationID] = "Studio A"

	f.studio = NewStudioService(f.studios, f.students, f.cache, testLogger)
	f.svc = NewClassService(f.classes, f.students, f.studio, testLogger)
	f.svc.now = func() time.Time { return mustDate("2024-01-01") }
	return f
}

func (f *studioFixture) weekly(name, until string, students ...uuid.UUID) ClassInput {
	wed := time.Wednesday
	return ClassInput{
		Name:        name,
		TeacherID:   f.teacherID,
		LocationID:  f.locationID,
		StartTime:   model.NewTimeOfDay(16, 0),
		EndTime:     model.NewTimeOfDay(17, 0),
		IsRecurring: true,
		DayOfWeek:   &wed,
		StartDate:   "2024-01-01",
		EndDate:     until,
		StudentIDs:  students,
	}
}

func TestCreateClass_Recurring(t *testing.T) {
	f := newStudioFixture(t)
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(context.Background(), owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	dates, err := f.classes.InstanceDates(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		mustDate("2024-01-03"), mustDate("2024-01-10"), mustDate("2024-01-17"), mustDate("2024-01-24"), mustDate("2024-01-31"),
	}, dates)
}

func TestCreateClass_OneOff(t *testing.T) {
	f := newStudioFixture(t)
	owner := ownerSession(f.studioID)

	in := f.weekly("Showcase", "")
	in.IsRecurring, in.DayOfWeek, in.Date = false, nil, "2024-02-01"

	c, err := f.svc.CreateClass(context.Background(), owner, in)
	require.NoError(t, err)
	assert.Equal(t, c.StartDate, c.EndDate)

	dates, err := f.classes.InstanceDates(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{mustDate("2024-02-01")}, dates)
}

func TestCreateClass_Validation(t *testing.T) {
	f := newStudioFixture(t)
	owner := ownerSession(f.studioID)

	tests := []struct {
		name   string
		mutate func(*ClassInput)
		field  string
	}{
		{"blank name", func(in *ClassInput) { in.Name = "  " }, "name"},
		{"no teacher", func(in *ClassInput) { in.TeacherID = uuid.Nil }, "teacher_id"},
		{"foreign teacher", func(in *ClassInput) { in.TeacherID = uuid.New() }, "teacher_id"},
		{"foreign location", func(in *ClassInput) { in.LocationID = uuid.New() }, "location_id"},
		{"end before start", func(in *ClassInput) { in.EndTime = model.NewTimeOfDay(15, 0) }, "end_time"},
		{"no day", func(in *ClassInput) { in.DayOfWeek = nil }, "day_of_week"},
		{"no end date", func(in *ClassInput) { in.EndDate = "" }, "end_date"},
		{"bad end date", func(in *ClassInput) { in.EndDate = "31/01/2024" }, "end_date"},
		{"end date before start", func(in *ClassInput) { in.EndDate = "2023-12-01" }, "end_date"},
		{"unknown student", func(in *ClassInput) { in.StudentIDs = []uuid.UUID{uuid.New()} }, "student_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.weekly("Ballet", "2024-03-01")
			tt.mutate(&in)

			_, err := f.svc.CreateClass(context.Background(), owner, in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, f.classes.classes)
		})
	}
}

func TestCreateClass_OwnerOnly(t *testing.T) {
	f := newStudioFixture(t)

	_, err := f.svc.CreateClass(context.Background(), teacherSession(f.studioID, f.teacherID), f.weekly("Ballet", "2024-03-01"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestWeekCalendar_RecurringAndOneOff(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	_, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-03-01"))
	require.NoError(t, err)
	oneOff := f.weekly("Showcase", "")
	oneOff.IsRecurring, oneOff.DayOfWeek, oneOff.Date = false, nil, "2024-02-01"
	_, err = f.svc.CreateClass(ctx, owner, oneOff)
	require.NoError(t, err)

	week, err := f.svc.WeekCalendar(ctx, owner, mustDate("2024-01-09"))
	require.NoError(t, err)
	assert.Equal(t, mustDate("2024-01-07"), week.Start)
	require.Equal(t, 1, week.Count())
	assert.Len(t, week.Days[3].Occurrences, 1)
	assert.Equal(t, mustDate("2024-01-10"), week.Days[3].Occurrences[0].Date)
	assert.Equal(t, "Tara", week.Days[3].Occurrences[0].TeacherName)

	week, err = f.svc.WeekCalendar(ctx, owner, mustDate("2024-02-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, week.Count())
	require.Len(t, week.Days[4].Occurrences, 1)
	assert.Equal(t, "Showcase", week.Days[4].Occurrences[0].Name)
	assert.False(t, week.Days[4].Occurrences[0].IsRecurring)
}

func TestWeekCalendar_RoleScoping(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	otherTeacher := uuid.New()
	f.studios.teachers = append(f.studios.teachers, model.Teacher{ID: otherTeacher, StudioID: f.studioID, Name: "Otto"})
	f.classes.teachers[otherTeacher] = "Otto"

	child := f.students.add(f.studioID, f.parentID, "Mia")
	_, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-03-01", child))
	require.NoError(t, err)
	jazz := f.weekly("Jazz", "2024-03-01")
	jazz.TeacherID = otherTeacher
	_, err = f.svc.CreateClass(ctx, owner, jazz)
	require.NoError(t, err)

	week, err := f.svc.WeekCalendar(ctx, owner, mustDate("2024-01-10"))
	require.NoError(t, err)
	assert.Equal(t, 2, week.Count())

	week, err = f.svc.WeekCalendar(ctx, teacherSession(f.studioID, otherTeacher), mustDate("2024-01-10"))
	require.NoError(t, err)
	require.Equal(t, 1, week.Count())
	assert.Equal(t, "Jazz", week.Days[3].Occurrences[0].Name)

	week, err = f.svc.WeekCalendar(ctx, parentSession(f.studioID, f.parentID), mustDate("2024-01-10"))
	require.NoError(t, err)
	require.Equal(t, 1, week.Count())
	assert.Equal(t, "Ballet I", week.Days[3].Occurrences[0].Name)
	assert.Equal(t, []string{"Mia"}, week.Days[3].Occurrences[0].EnrolledStudents)

	week, err = f.svc.WeekCalendar(ctx, parentSession(f.studioID, uuid.New()), mustDate("2024-01-10"))
	require.NoError(t, err)
	assert.Zero(t, week.Count())
	assert.Len(t, week.Days, schedule.DaysInWeek)
}

func TestEditClass_ScopeRowCounts(t *testing.T) {
	// Five Wednesdays: 01-03, 01-10, 01-17, 01-24, 01-31.
	renamed := "Ballet II"
	tests := []struct {
		scope string
		date  string
		want  int64
	}{
		{"single", "2024-01-17", 1},
		{"", "2024-01-17", 1},
		{"future", "2024-01-17", 3},
		{"future", "2024-01-03", 5},
		{"all", "2024-01-24", 5},
	}
	for _, tt := range tests {
		t.Run(tt.scope+" "+tt.date, func(t *testing.T) {
			f := newStudioFixture(t)
			ctx := context.Background()
			owner := ownerSession(f.studioID)

			c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
			require.NoError(t, err)

			n, err := f.svc.EditClass(ctx, owner, c.ID, mustDate(tt.date), tt.scope, model.ClassChanges{Name: &renamed})
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestEditClass_SingleThenAllResetsOverride(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	late := model.NewTimeOfDay(18, 0)
	later := model.NewTimeOfDay(19, 0)
	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{StartTime: &late, EndTime: &later})
	require.NoError(t, err)

	inst := f.classes.instanceOn(c.ID, mustDate("2024-01-10"))
	require.NotNil(t, inst)
	assert.True(t, inst.Overridden())
	assert.False(t, f.classes.instanceOn(c.ID, mustDate("2024-01-17")).Overridden())

	early := model.NewTimeOfDay(15, 0)
	n, err := f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-03"), "all", model.ClassChanges{StartTime: &early})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.False(t, f.classes.instanceOn(c.ID, mustDate("2024-01-10")).Overridden())
	assert.Equal(t, early, f.classes.classes[c.ID].StartTime)
}

func TestEditClass_TimesCheckedPerOccurrence(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	at := func(h, m int) *model.TimeOfDay {
		v := model.NewTimeOfDay(h, m)
		return &v
	}
	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{StartTime: at(18, 0), EndTime: at(19, 0)})
	require.NoError(t, err)

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{EndTime: at(16, 30)})
	assert.True(t, IsValidation(err), "moved occurrence starts at 18:00")

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-03"), "future", model.ClassChanges{EndTime: at(16, 30)})
	assert.True(t, IsValidation(err), "one selected occurrence would end before it starts")

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-17"), "future", model.ClassChanges{EndTime: at(16, 30)})
	require.NoError(t, err, "later occurrences still follow the template")

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-31"), "single", model.ClassChanges{StartTime: at(10, 0), EndTime: at(11, 0)})
	require.NoError(t, err)
	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-31"), "single", model.ClassChanges{EndTime: at(12, 0)})
	require.NoError(t, err, "checked against the occurrence, not the 16:00 template")

	week, err := f.svc.WeekCalendar(ctx, owner, mustDate("2024-01-10"))
	require.NoError(t, err)
	var moved []model.ResolvedInstance
	for _, d := range week.Days {
		moved = append(moved, d.Occurrences...)
	}
	require.Len(t, moved, 1)
	assert.Equal(t, *at(18, 0), moved[0].StartTime)
	assert.Equal(t, *at(19, 0), moved[0].EndTime)
}

func TestEditClass_AllReshapesInstances(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	fri := time.Friday
	_, err = f.svc.EditClass(ctx, owner, c.ID, time.Time{}, "all", model.ClassChanges{DayOfWeek: &fri})
	require.NoError(t, err)

	dates, err := f.classes.InstanceDates(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		mustDate("2024-01-05"), mustDate("2024-01-12"), mustDate("2024-01-19"), mustDate("2024-01-26"),
	}, dates)
}

func TestEditClass_Rejections(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)
	name := "x"

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-11"), "single", model.ClassChanges{Name: &name})
	assert.True(t, IsValidation(err), "not an occurrence date")

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "weekly", model.ClassChanges{Name: &name})
	assert.True(t, IsValidation(err), "unknown scope")

	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{})
	assert.True(t, IsValidation(err), "empty change")

	fri := time.Friday
	_, err = f.svc.EditClass(ctx, owner, c.ID, mustDate("2024-01-10"), "future", model.ClassChanges{DayOfWeek: &fri})
	assert.True(t, IsValidation(err), "shape change needs scope all")

	_, err = f.svc.EditClass(ctx, ownerSession(uuid.New()), c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.EditClass(ctx, teacherSession(f.studioID, f.teacherID), c.ID, mustDate("2024-01-10"), "single", model.ClassChanges{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteClass(t *testing.T) {
	tests := []struct {
		name         string
		scope        string
		date         string
		keepTemplate bool
		removed      int64
		left         int
		classGone    bool
		endDate      string
	}{
		{name: "single", scope: "single", date: "2024-01-17", removed: 1, left: 4},
		{name: "future", scope: "future", date: "2024-01-17", removed: 3, left: 2, endDate: "2024-01-16"},
		{name: "future from first", scope: "future", date: "2024-01-03", removed: 5, classGone: true},
		{name: "all", scope: "all", date: "2024-01-03", removed: 5, classGone: true},
		{name: "all keep template", scope: "all", date: "2024-01-03", keepTemplate: true, removed: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStudioFixture(t)
			ctx := context.Background()
			owner := ownerSession(f.studioID)

			c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
			require.NoError(t, err)

			n, err := f.svc.DeleteClass(ctx, owner, c.ID, mustDate(tt.date), tt.scope, tt.keepTemplate)
			require.NoError(t, err)
			assert.Equal(t, tt.removed, n)
			assert.Len(t, f.classes.instancesOf(c.ID), tt.left)

			_, exists := f.classes.classes[c.ID]
			assert.Equal(t, !tt.classGone, exists)
			if tt.endDate != "" {
				assert.Equal(t, mustDate(tt.endDate), f.classes.classes[c.ID].EndDate)
			}
		})
	}
}

func TestDeleteClass_OneOffRemovesTemplate(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	in := f.weekly("Showcase", "")
	in.IsRecurring, in.DayOfWeek, in.Date = false, nil, "2024-02-01"
	c, err := f.svc.CreateClass(ctx, owner, in)
	require.NoError(t, err)

	n, err := f.svc.DeleteClass(ctx, owner, c.ID, time.Time{}, "future", false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NotContains(t, f.classes.classes, c.ID)
}

func TestReconcileAll_KeepsDeletedDates(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	c, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)
	_, err = f.svc.DeleteClass(ctx, owner, c.ID, mustDate("2024-01-17"), "single", false)
	require.NoError(t, err)

	// An instance lost outside the service is restored; the deleted one is not.
	lost := f.classes.instanceOn(c.ID, mustDate("2024-01-24"))
	delete(f.classes.instances, lost.ID)

	created, deleted, err := f.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), created)
	assert.Zero(t, deleted)
	assert.Nil(t, f.classes.instanceOn(c.ID, mustDate("2024-01-17")))
	assert.NotNil(t, f.classes.instanceOn(c.ID, mustDate("2024-01-24")))
}

func TestRenderWeek(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	_, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	img, err := f.svc.RenderWeek(ctx, owner, mustDate("2024-01-10"))
	require.NoError(t, err)
	assert.NotEmpty(t, img)
}

func TestInstancesOn(t *testing.T) {
	f := newStudioFixture(t)
	ctx := context.Background()
	owner := ownerSession(f.studioID)

	_, err := f.svc.CreateClass(ctx, owner, f.weekly("Ballet I", "2024-01-31"))
	require.NoError(t, err)

	got, err := f.svc.InstancesOn(ctx, owner, mustDate("2024-01-10"))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = f.svc.InstancesOn(ctx, owner, mustDate("2024-01-11"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolvePlan_WrapsNoOccurrence(t *testing.T) {
	wed := time.Wednesday
	c := &model.Class{IsRecurring: true, DayOfWeek: &wed, StartDate: mustDate("2024-01-01"), EndDate: mustDate("2024-01-31")}

	_, err := resolvePlan(c, mustDate("2024-01-11"), schedule.ScopeSingle)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "date", verr.Field)
}
