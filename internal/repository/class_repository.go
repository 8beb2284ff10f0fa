package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const classColumns = `id, studio_id, name, teacher_id, location_id, start_time, end_time,
	is_recurring, day_of_week, start_date, end_date, created_at, updated_at`

type ClassRepository struct {
	*base.Repository
}

func NewClassRepository(b *base.Repository) *ClassRepository {
	return &ClassRepository{Repository: b}
}

// InstanceFilter selects instances of a studio within a date window.
type InstanceFilter struct {
	StudioID  uuid.UUID
	TeacherID *uuid.UUID
	ClassID   *uuid.UUID
	From, To  time.Time
}

// Create inserts the template, its roster and the instances for dates.
func (r *ClassRepository) Create(ctx context.Context, c *model.Class, dates []time.Time) error {
	return r.InTx(ctx, func(q base.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO classes (studio_id, name, teacher_id, location_id, start_time, end_time,
				is_recurring, day_of_week, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, updated_at
		`,
			c.StudioID, c.Name, c.TeacherID, c.LocationID, c.StartTime.PG(), c.EndTime.PG(),
			c.IsRecurring, weekdayArg(c.DayOfWeek), c.StartDate, c.EndDate,
		).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create class: %w", err)
		}

		if err := replaceRoster(ctx, q, c.ID, c.StudentIDs); err != nil {
			return err
		}
		if _, err := insertInstances(ctx, q, c.ID, dates); err != nil {
			return err
		}
		return nil
	})
}

// GetByID returns the template with its roster, or nil when missing.
func (r *ClassRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error) {
	c, err := scanClass(r.Pool().QueryRow(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get class: %w", err)
	}

	rows, err := r.Pool().Query(ctx, `SELECT student_id FROM class_students WHERE class_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get class roster: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var sid uuid.UUID
		if err := rows.Scan(&sid); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		c.StudentIDs = append(c.StudentIDs, sid)
	}
	return c, rows.Err()
}

func (r *ClassRepository) ListByStudio(ctx context.Context, studioID uuid.UUID) ([]model.Class, error) {
	rows, err := r.Pool().Query(ctx, `SELECT `+classColumns+` FROM classes WHERE studio_id = $1 ORDER BY name`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	return scanClasses(rows)
}

// ListRecurring returns recurring templates still running on or after since.
func (r *ClassRepository) ListRecurring(ctx context.Context, since time.Time) ([]model.Class, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT `+classColumns+`
		FROM classes
		WHERE is_recurring AND end_date >= $1
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list recurring classes: %w", err)
	}
	return scanClasses(rows)
}

// ListInstances returns the effective instances in the window, ordered by
// date and start time.
func (r *ClassRepository) ListInstances(ctx context.Context, f InstanceFilter) ([]model.ResolvedInstance, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT ci.id, c.id, ci.date,
			COALESCE(ci.name, c.name),
			COALESCE(ci.teacher_id, c.teacher_id), t.name,
			COALESCE(ci.location_id, c.location_id), l.name,
			COALESCE(ci.start_time, c.start_time) AS eff_start,
			COALESCE(ci.end_time, c.end_time),
			c.is_recurring,
			(ci.name IS NOT NULL OR ci.teacher_id IS NOT NULL OR ci.location_id IS NOT NULL
				OR ci.start_time IS NOT NULL OR ci.end_time IS NOT NULL)
		FROM class_instances ci
		JOIN classes c ON c.id = ci.class_id
		JOIN teachers t ON t.id = COALESCE(ci.teacher_id, c.teacher_id)
		JOIN locations l ON l.id = COALESCE(ci.location_id, c.location_id)
		WHERE c.studio_id = $1
			AND ci.date BETWEEN $2 AND $3
			AND ($4::uuid IS NULL OR COALESCE(ci.teacher_id, c.teacher_id) = $4)
			AND ($5::uuid IS NULL OR c.id = $5)
		ORDER BY ci.date, eff_start
	`, f.StudioID, f.From, f.To, f.TeacherID, f.ClassID)
	if err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var out []model.ResolvedInstance
	for rows.Next() {
		var inst model.ResolvedInstance
		var start, end pgtype.Time
		err := rows.Scan(
			&inst.ID, &inst.ClassID, &inst.Date,
			&inst.Name,
			&inst.TeacherID, &inst.TeacherName,
			&inst.LocationID, &inst.LocationName,
			&start, &end,
			&inst.IsRecurring, &inst.Overridden,
		)
		if err != nil {
			return nil, fmt.Errorf("scan instance: %w", err)
		}
		inst.StartTime, _ = model.TimeOfDayFromPG(start)
		inst.EndTime, _ = model.TimeOfDayFromPG(end)
		out = append(out, inst)
	}
	return out, rows.Err()
}

// GetInstance returns nil when the instance does not exist.
func (r *ClassRepository) GetInstance(ctx context.Context, id uuid.UUID) (*model.ClassInstance, error) {
	var inst model.ClassInstance
	var start, end pgtype.Time
	err := r.Pool().QueryRow(ctx, `
		SELECT id, class_id, date, name, teacher_id, location_id, start_time, end_time, created_at, updated_at
		FROM class_instances
		WHERE id = $1
	`, id).Scan(
		&inst.ID, &inst.ClassID, &inst.Date, &inst.Name, &inst.TeacherID, &inst.LocationID,
		&start, &end, &inst.CreatedAt, &inst.UpdatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instance: %w", err)
	}
	inst.StartTime = model.OptionalTimeOfDay(start)
	inst.EndTime = model.OptionalTimeOfDay(end)
	return &inst, nil
}

// InstanceDates lists the dates that currently have an instance row.
func (r *ClassRepository) InstanceDates(ctx context.Context, classID uuid.UUID) ([]time.Time, error) {
	return r.dates(ctx, `SELECT date FROM class_instances WHERE class_id = $1 ORDER BY date`, classID)
}

// ExceptionDates lists dates removed one by one, which stay removed.
func (r *ClassRepository) ExceptionDates(ctx context.Context, classID uuid.UUID) ([]time.Time, error) {
	return r.dates(ctx, `SELECT date FROM class_exceptions WHERE class_id = $1 ORDER BY date`, classID)
}

func (r *ClassRepository) dates(ctx context.Context, query string, classID uuid.UUID) ([]time.Time, error) {
	rows, err := r.Pool().Query(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("list dates: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan date: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// EditInstances writes overrides on the instances the single or future plan
// selects, and replaces the roster when the change carries one.
func (r *ClassRepository) EditInstances(ctx context.Context, plan schedule.Plan, ch model.ClassChanges) (int64, error) {
	var affected int64
	err := r.InTx(ctx, func(q base.Querier) error {
		var fn string
		switch plan.Scope {
		case schedule.ScopeSingle:
			fn = "modify_class_instance"
		case schedule.ScopeFuture:
			fn = "modify_future_class_instances"
		default:
			return fmt.Errorf("edit instances: unsupported scope %q", plan.Scope)
		}

		var n int32
		err := q.QueryRow(ctx, `SELECT `+fn+`($1, $2, $3, $4, $5, $6, $7)`,
			plan.ClassID, plan.Anchor, ch.Name, ch.TeacherID, ch.LocationID,
			model.PGOptional(ch.StartTime), model.PGOptional(ch.EndTime),
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("%s: %w", fn, err)
		}
		affected = int64(n)

		if ch.StudentIDs != nil {
			return replaceRoster(ctx, q, plan.ClassID, *ch.StudentIDs)
		}
		return nil
	})
	return affected, err
}

// EditTemplate saves the updated template, resets the changed overrides on
// every instance and applies diff to the stored instance dates.
func (r *ClassRepository) EditTemplate(ctx context.Context, c *model.Class, ch model.ClassChanges, diff schedule.Diff) (int64, error) {
	var affected int64
	err := r.InTx(ctx, func(q base.Querier) error {
		err := q.QueryRow(ctx, `
			UPDATE classes
			SET name = $1, teacher_id = $2, location_id = $3, start_time = $4, end_time = $5,
				day_of_week = $6, end_date = $7, updated_at = now()
			WHERE id = $8
			RETURNING updated_at
		`,
			c.Name, c.TeacherID, c.LocationID, c.StartTime.PG(), c.EndTime.PG(),
			weekdayArg(c.DayOfWeek), c.EndDate, c.ID,
		).Scan(&c.UpdatedAt)
		if err != nil {
			if base.IsNotFound(err) {
				return fmt.Errorf("class not found")
			}
			return fmt.Errorf("update class: %w", err)
		}

		if len(diff.Delete) > 0 {
			if _, err := q.Exec(ctx, `DELETE FROM class_instances WHERE class_id = $1 AND date = ANY($2)`, c.ID, diff.Delete); err != nil {
				return fmt.Errorf("delete stale instances: %w", err)
			}
		}
		if _, err := insertInstances(ctx, q, c.ID, diff.Create); err != nil {
			return err
		}

		var n int32
		err = q.QueryRow(ctx, `SELECT bulk_update_class_instances($1, $2, $3, $4, $5)`,
			c.ID, ch.Name != nil, ch.TeacherID != nil, ch.LocationID != nil, ch.StartTime != nil || ch.EndTime != nil,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("bulk_update_class_instances: %w", err)
		}
		affected = int64(n)

		if ch.StudentIDs != nil {
			return replaceRoster(ctx, q, c.ID, *ch.StudentIDs)
		}
		return nil
	})
	return affected, err
}

// DeleteOptions tunes a scoped delete.
type DeleteOptions struct {
	// WholeClass removes the template together with its instances.
	WholeClass bool
}

// DeleteInstances removes the instances the plan selects and returns how
// many were removed. Removed dates are remembered as exceptions unless the
// template goes too; a future delete moves the end date back instead.
func (r *ClassRepository) DeleteInstances(ctx context.Context, plan schedule.Plan, opts DeleteOptions) (int64, error) {
	var affected int64
	err := r.InTx(ctx, func(q base.Querier) error {
		var err error
		switch {
		case opts.WholeClass:
			affected, err = base.ExecAffected(ctx, q, `DELETE FROM class_instances WHERE class_id = $1`, plan.ClassID)
			if err != nil {
				return fmt.Errorf("delete instances: %w", err)
			}
			if _, err := q.Exec(ctx, `DELETE FROM classes WHERE id = $1`, plan.ClassID); err != nil {
				return fmt.Errorf("delete class: %w", err)
			}
			return nil

		case plan.Scope == schedule.ScopeSingle:
			if err := addExceptions(ctx, q, plan.ClassID, `date = $2`, plan.Anchor); err != nil {
				return err
			}
			affected, err = base.ExecAffected(ctx, q, `DELETE FROM class_instances WHERE class_id = $1 AND date = $2`, plan.ClassID, plan.Anchor)

		case plan.Scope == schedule.ScopeFuture:
			affected, err = base.ExecAffected(ctx, q, `DELETE FROM class_instances WHERE class_id = $1 AND date >= $2`, plan.ClassID, plan.Anchor)
			if err == nil {
				_, err = q.Exec(ctx, `UPDATE classes SET end_date = $1, updated_at = now() WHERE id = $2`, plan.TruncatedEnd(), plan.ClassID)
			}

		case plan.Scope == schedule.ScopeAll:
			if err := addExceptions(ctx, q, plan.ClassID, `TRUE`); err != nil {
				return err
			}
			affected, err = base.ExecAffected(ctx, q, `DELETE FROM class_instances WHERE class_id = $1`, plan.ClassID)

		default:
			return fmt.Errorf("delete instances: unsupported scope %q", plan.Scope)
		}
		if err != nil {
			return fmt.Errorf("delete %s instances: %w", plan.Scope, err)
		}
		return nil
	})
	return affected, err
}

// SyncInstances applies a reconciliation diff outside of any edit.
func (r *ClassRepository) SyncInstances(ctx context.Context, classID uuid.UUID, diff schedule.Diff) (created, deleted int64, err error) {
	err = r.InTx(ctx, func(q base.Querier) error {
		if len(diff.Delete) > 0 {
			deleted, err = base.ExecAffected(ctx, q, `DELETE FROM class_instances WHERE class_id = $1 AND date = ANY($2)`, classID, diff.Delete)
			if err != nil {
				return fmt.Errorf("delete stale instances: %w", err)
			}
		}
		created, err = insertInstances(ctx, q, classID, diff.Create)
		return err
	})
	return created, deleted, err
}

// EnrolledChildren maps class id to the names of the parent's children on
// its roster.
func (r *ClassRepository) EnrolledChildren(ctx context.Context, parentID uuid.UUID) (map[uuid.UUID][]string, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT cs.class_id, s.name
		FROM class_students cs
		JOIN students s ON s.id = cs.student_id
		WHERE s.parent_id = $1
		ORDER BY s.name
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list enrolled children: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]string)
	for rows.Next() {
		var classID uuid.UUID
		var name string
		if err := rows.Scan(&classID, &name); err != nil {
			return nil, fmt.Errorf("scan enrolled child: %w", err)
		}
		out[classID] = append(out[classID], name)
	}
	return out, rows.Err()
}

func insertInstances(ctx context.Context, q base.Querier, classID uuid.UUID, dates []time.Time) (int64, error) {
	if len(dates) == 0 {
		return 0, nil
	}
	n, err := base.ExecAffected(ctx, q, `
		INSERT INTO class_instances (class_id, date)
		SELECT $1, d FROM unnest($2::date[]) AS d
		ON CONFLICT (class_id, date) DO NOTHING
	`, classID, dates)
	if err != nil {
		return 0, fmt.Errorf("create instances: %w", err)
	}
	return n, nil
}

func addExceptions(ctx context.Context, q base.Querier, classID uuid.UUID, cond string, args ...any) error {
	_, err := q.Exec(ctx, `
		INSERT INTO class_exceptions (class_id, date)
		SELECT class_id, date FROM class_instances
		WHERE class_id = $1 AND `+cond+`
		ON CONFLICT DO NOTHING
	`, append([]any{classID}, args...)...)
	if err != nil {
		return fmt.Errorf("record exceptions: %w", err)
	}
	return nil
}

func replaceRoster(ctx context.Context, q base.Querier, classID uuid.UUID, studentIDs []uuid.UUID) error {
	if _, err := q.Exec(ctx, `DELETE FROM class_students WHERE class_id = $1`, classID); err != nil {
		return fmt.Errorf("clear roster: %w", err)
	}
	if len(studentIDs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, `
		INSERT INTO class_students (class_id, student_id)
		SELECT $1, s FROM unnest($2::uuid[]) AS s
		ON CONFLICT DO NOTHING
	`, classID, studentIDs)
	if err != nil {
		return fmt.Errorf("set roster: %w", err)
	}
	return nil
}

func weekdayArg(d *time.Weekday) *int16 {
	if d == nil {
		return nil
	}
	v := int16(*d)
	return &v
}

func scanClass(row pgx.Row) (*model.Class, error) {
	var c model.Class
	var start, end pgtype.Time
	var day *int16
	err := row.Scan(
		&c.ID, &c.StudioID, &c.Name, &c.TeacherID, &c.LocationID, &start, &end,
		&c.IsRecurring, &day, &c.StartDate, &c.EndDate, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.StartTime, _ = model.TimeOfDayFromPG(start)
	c.EndTime, _ = model.TimeOfDayFromPG(end)
	if day != nil {
		wd := time.Weekday(*day)
		c.DayOfWeek = &wd
	}
	return &c, nil
}

func scanClasses(rows pgx.Rows) ([]model.Class, error) {
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}
