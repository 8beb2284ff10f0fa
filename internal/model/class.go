package model

import (
	"time"

	"github.com/google/uuid"
)

// Class is a scheduling template: a weekly recurring class or a one-off session.
type Class struct {
	ID          uuid.UUID     `json:"id"`
	StudioID    uuid.UUID     `json:"studio_id"`
	Name        string        `json:"name"`
	TeacherID   uuid.UUID     `json:"teacher_id"`
	LocationID  uuid.UUID     `json:"location_id"`
	StartTime   TimeOfDay     `json:"start_time"`
	EndTime     TimeOfDay     `json:"end_time"`
	IsRecurring bool          `json:"is_recurring"`
	DayOfWeek   *time.Weekday `json:"day_of_week,omitempty"` // recurring only, 0 = Sunday
	StartDate   time.Time     `json:"start_date"`            // the session date for a one-off
	EndDate     time.Time     `json:"end_date"`              // inclusive, equals StartDate for a one-off
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	StudentIDs []uuid.UUID `json:"student_ids,omitempty"`
}

// ClassInstance is one dated occurrence of a class. Override fields left nil
// inherit the template value.
type ClassInstance struct {
	ID         uuid.UUID  `json:"id"`
	ClassID    uuid.UUID  `json:"class_id"`
	Date       time.Time  `json:"date"`
	Name       *string    `json:"-"`
	TeacherID  *uuid.UUID `json:"-"`
	LocationID *uuid.UUID `json:"-"`
	StartTime  *TimeOfDay `json:"-"`
	EndTime    *TimeOfDay `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Overridden reports whether any field differs from the template.
func (i *ClassInstance) Overridden() bool {
	return i.Name != nil || i.TeacherID != nil || i.LocationID != nil || i.StartTime != nil || i.EndTime != nil
}

// Resolve merges the instance overrides with its template.
func (i *ClassInstance) Resolve(c *Class) ResolvedInstance {
	r := ResolvedInstance{
		ID:          i.ID,
		ClassID:     c.ID,
		Date:        i.Date,
		Name:        c.Name,
		TeacherID:   c.TeacherID,
		LocationID:  c.LocationID,
		StartTime:   c.StartTime,
		EndTime:     c.EndTime,
		IsRecurring: c.IsRecurring,
		Overridden:  i.Overridden(),
	}
	if i.Name != nil {
		r.Name = *i.Name
	}
	if i.TeacherID != nil {
		r.TeacherID = *i.TeacherID
	}
	if i.LocationID != nil {
		r.LocationID = *i.LocationID
	}
	if i.StartTime != nil {
		r.StartTime = *i.StartTime
	}
	if i.EndTime != nil {
		r.EndTime = *i.EndTime
	}
	return r
}

// ResolvedInstance is what the calendar shows for one occurrence.
type ResolvedInstance struct {
	ID           uuid.UUID `json:"id"`
	ClassID      uuid.UUID `json:"class_id"`
	Date         time.Time `json:"date"`
	Name         string    `json:"name"`
	TeacherID    uuid.UUID `json:"teacher_id"`
	TeacherName  string    `json:"teacher_name,omitempty"`
	LocationID   uuid.UUID `json:"location_id"`
	LocationName string    `json:"location_name,omitempty"`
	StartTime    TimeOfDay `json:"start_time"`
	EndTime      TimeOfDay `json:"end_time"`
	IsRecurring  bool      `json:"is_recurring"`
	Overridden   bool      `json:"overridden"`

	// Children of the requesting parent enrolled in the class.
	EnrolledStudents []string `json:"enrolled_students,omitempty"`
}

// ClassChanges carries an edit. Nil fields stay untouched.
type ClassChanges struct {
	Name       *string      `json:"name,omitempty"`
	TeacherID  *uuid.UUID   `json:"teacher_id,omitempty"`
	LocationID *uuid.UUID   `json:"location_id,omitempty"`
	StartTime  *TimeOfDay   `json:"start_time,omitempty"`
	EndTime    *TimeOfDay   `json:"end_time,omitempty"`
	StudentIDs *[]uuid.UUID `json:"student_ids,omitempty"`

	// Template-only fields, honoured with scope "all".
	DayOfWeek *time.Weekday `json:"day_of_week,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`
}

// InstanceFieldsChanged reports whether any per-occurrence field is set.
func (c ClassChanges) InstanceFieldsChanged() bool {
	return c.Name != nil || c.TeacherID != nil || c.LocationID != nil || c.StartTime != nil || c.EndTime != nil
}

// ShapeChanged reports whether the set of occurrence dates may change.
func (c ClassChanges) ShapeChanged() bool {
	return c.DayOfWeek != nil || c.EndDate != nil
}

// Apply writes the changes into the template.
func (c ClassChanges) Apply(class *Class) {
	if c.Name != nil {
		class.Name = *c.Name
	}
	if c.TeacherID != nil {
		class.TeacherID = *c.TeacherID
	}
	if c.LocationID != nil {
		class.LocationID = *c.LocationID
	}
	if c.StartTime != nil {
		class.StartTime = *c.StartTime
	}
	if c.EndTime != nil {
		class.EndTime = *c.EndTime
	}
	if c.DayOfWeek != nil && class.IsRecurring {
		d := *c.DayOfWeek
		class.DayOfWeek = &d
	}
	if c.EndDate != nil && class.IsRecurring {
		class.EndDate = *c.EndDate
	}
	if c.StudentIDs != nil {
		class.StudentIDs = *c.StudentIDs
	}
}
