package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
)

type AttendanceRepository struct {
	*base.Repository
}

func NewAttendanceRepository(b *base.Repository) *AttendanceRepository {
	return &AttendanceRepository{Repository: b}
}

// EnsureEnrollments copies the class roster onto the instance when the
// instance has no enrollments yet. Returns the number of rows created.
func (r *AttendanceRepository) EnsureEnrollments(ctx context.Context, instanceID, classID uuid.UUID) (int64, error) {
	n, err := base.ExecAffected(ctx, r.Pool(), `
		INSERT INTO instance_enrollments (class_instance_id, student_id)
		SELECT $1, cs.student_id
		FROM class_students cs
		WHERE cs.class_id = $2
			AND NOT EXISTS (SELECT 1 FROM instance_enrollments WHERE class_instance_id = $1)
		ON CONFLICT (class_instance_id, student_id) DO NOTHING
	`, instanceID, classID)
	if err != nil {
		return 0, fmt.Errorf("create instance enrollments: %w", err)
	}
	return n, nil
}

// Roster lists the instance's enrolled students with their attendance.
func (r *AttendanceRepository) Roster(ctx context.Context, instanceID uuid.UUID) ([]model.RosterEntry, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT ie.id, s.id, s.name, s.parent_id, ar.status, ar.notes, ar.updated_at
		FROM instance_enrollments ie
		JOIN students s ON s.id = ie.student_id
		LEFT JOIN attendance_records ar ON ar.instance_enrollment_id = ie.id
		WHERE ie.class_instance_id = $1
		ORDER BY s.name
	`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list roster: %w", err)
	}
	defer rows.Close()

	var roster []model.RosterEntry
	for rows.Next() {
		var e model.RosterEntry
		var status, notes *string
		var updatedAt *time.Time
		if err := rows.Scan(&e.EnrollmentID, &e.StudentID, &e.StudentName, &e.ParentID, &status, &notes, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan roster entry: %w", err)
		}
		if status != nil {
			e.Attendance = &model.AttendanceRecord{
				InstanceEnrollmentID: e.EnrollmentID,
				Status:               model.AttendanceStatus(*status),
				Notes:                *notes,
				UpdatedAt:            *updatedAt,
			}
		}
		roster = append(roster, e)
	}
	return roster, rows.Err()
}

// SaveMarks upserts every mark in one transaction. All enrollment ids must
// belong to the instance or nothing is written.
func (r *AttendanceRepository) SaveMarks(ctx context.Context, instanceID uuid.UUID, marks []model.AttendanceMark) error {
	ids := make([]uuid.UUID, len(marks))
	for i, m := range marks {
		ids[i] = m.EnrollmentID
	}

	return r.InTx(ctx, func(q base.Querier) error {
		var owned int
		err := q.QueryRow(ctx, `
			SELECT count(*) FROM instance_enrollments WHERE class_instance_id = $1 AND id = ANY($2)
		`, instanceID, ids).Scan(&owned)
		if err != nil {
			return fmt.Errorf("check enrollments: %w", err)
		}
		if owned != len(distinct(ids)) {
			return fmt.Errorf("enrollment does not belong to the class instance")
		}

		for _, m := range marks {
			_, err := q.Exec(ctx, `
				INSERT INTO attendance_records (instance_enrollment_id, status, notes, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (instance_enrollment_id)
				DO UPDATE SET status = EXCLUDED.status, notes = EXCLUDED.notes, updated_at = now()
			`, m.EnrollmentID, string(m.Status), m.Notes)
			if err != nil {
				return fmt.Errorf("save attendance: %w", err)
			}
		}
		return nil
	})
}

func distinct(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
