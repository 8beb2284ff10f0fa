package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendancePresent      AttendanceStatus = "present"
	AttendanceLate         AttendanceStatus = "late"
	AttendanceAuthorised   AttendanceStatus = "authorised"
	AttendanceUnauthorised AttendanceStatus = "unauthorised"
)

// ParseAttendanceStatus accepts only the closed status set.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch AttendanceStatus(s) {
	case AttendancePresent, AttendanceLate, AttendanceAuthorised, AttendanceUnauthorised:
		return AttendanceStatus(s), nil
	}
	return "", fmt.Errorf("unknown attendance status %q", s)
}

// InstanceEnrollment joins a class instance to a student.
type InstanceEnrollment struct {
	ID              uuid.UUID `json:"id"`
	ClassInstanceID uuid.UUID `json:"class_instance_id"`
	StudentID       uuid.UUID `json:"student_id"`
}

type AttendanceRecord struct {
	InstanceEnrollmentID uuid.UUID        `json:"instance_enrollment_id"`
	Status               AttendanceStatus `json:"status"`
	Notes                string           `json:"notes"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// RosterEntry is one student line of the attendance sheet. Attendance is nil
// until marked.
type RosterEntry struct {
	EnrollmentID uuid.UUID         `json:"enrollment_id"`
	StudentID    uuid.UUID         `json:"student_id"`
	StudentName  string            `json:"student_name"`
	ParentID     uuid.UUID         `json:"parent_id"`
	Attendance   *AttendanceRecord `json:"attendance"`
}

// AttendanceMark is one line of a save request.
type AttendanceMark struct {
	EnrollmentID uuid.UUID        `json:"enrollment_id" validate:"required"`
	Status       AttendanceStatus `json:"status" validate:"required"`
	Notes        string           `json:"notes" validate:"max=1000"`
}
