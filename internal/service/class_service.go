package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/calendar"
	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReferenceSource hands out the cached studio context of a session.
type ReferenceSource interface {
	ReferenceData(ctx context.Context, sess *session.Session) (*model.ReferenceData, error)
}

type ClassService struct {
	classes   ClassStore
	students  StudentStore
	reference ReferenceSource
	logger    *zap.Logger
	now       func() time.Time
}

func NewClassService(classes ClassStore, students StudentStore, reference ReferenceSource, logger *zap.Logger) *ClassService {
	return &ClassService{
		classes:   classes,
		students:  students,
		reference: reference,
		logger:    logger,
		now:       time.Now,
	}
}

// ClassInput describes a new class. Dates use the YYYY-MM-DD layout.
type ClassInput struct {
	Name        string          `json:"name" validate:"notblank,max=200"`
	TeacherID   uuid.UUID       `json:"teacher_id"`
	LocationID  uuid.UUID       `json:"location_id"`
	StartTime   model.TimeOfDay `json:"start_time"`
	EndTime     model.TimeOfDay `json:"end_time"`
	IsRecurring bool            `json:"is_recurring"`
	DayOfWeek   *time.Weekday   `json:"day_of_week" validate:"omitempty,min=0,max=6"`
	StartDate   string          `json:"start_date"`
	EndDate     string          `json:"end_date"`
	Date        string          `json:"date"`
	StudentIDs  []uuid.UUID     `json:"student_ids"`
}

// CreateClass stores the template with its roster and every occurrence.
func (s *ClassService) CreateClass(ctx context.Context, sess *session.Session, in ClassInput) (*model.Class, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can schedule classes")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	c := &model.Class{
		StudioID:    sess.StudioID,
		Name:        strings.TrimSpace(in.Name),
		TeacherID:   in.TeacherID,
		LocationID:  in.LocationID,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsRecurring: in.IsRecurring,
		StudentIDs:  distinctIDs(in.StudentIDs),
	}

	if in.IsRecurring {
		if in.DayOfWeek == nil {
			return nil, invalid("day_of_week", "please select a day of the week")
		}
		day := *in.DayOfWeek
		c.DayOfWeek = &day

		c.StartDate = schedule.DateOnly(s.now())
		if in.StartDate != "" {
			d, err := ParseDate("start_date", in.StartDate)
			if err != nil {
				return nil, err
			}
			c.StartDate = d
		}
		if in.EndDate == "" {
			return nil, invalid("end_date", "please select an end date")
		}
		end, err := ParseDate("end_date", in.EndDate)
		if err != nil {
			return nil, err
		}
		c.EndDate = end
	} else {
		if in.Date == "" {
			return nil, invalid("date", "please select a date")
		}
		d, err := ParseDate("date", in.Date)
		if err != nil {
			return nil, err
		}
		c.StartDate, c.EndDate = d, d
	}

	if err := s.checkClass(ctx, sess, c); err != nil {
		return nil, err
	}

	dates := schedule.AllDates(c)
	if len(dates) == 0 {
		return nil, invalid("day_of_week", "the class has no occurrence between its start and end dates")
	}
	if err := s.classes.Create(ctx, c, dates); err != nil {
		return nil, fmt.Errorf("create class: %w", err)
	}

	s.logger.Info("Class created",
		zap.String("class_id", c.ID.String()),
		zap.Bool("recurring", c.IsRecurring),
		zap.Int("instances", len(dates)))
	return c, nil
}

// checkClass validates a full template against the studio.
func (s *ClassService) checkClass(ctx context.Context, sess *session.Session, c *model.Class) error {
	if c.TeacherID == uuid.Nil {
		return invalid("teacher_id", "please select a teacher")
	}
	if c.LocationID == uuid.Nil {
		return invalid("location_id", "please select a location")
	}
	if !c.StartTime.Valid() || !c.EndTime.Valid() {
		return invalid("start_time", "times must be within the day")
	}
	if c.EndTime <= c.StartTime {
		return invalid("end_time", "end time must be after start time")
	}
	if c.IsRecurring {
		if c.EndDate.Before(c.StartDate) {
			return invalid("end_date", "end date cannot be before start date")
		}
		if c.EndDate.Sub(c.StartDate) > schedule.MaxRecurrenceSpan {
			return invalid("end_date", "a class cannot repeat for more than two years")
		}
	}

	if err := s.checkRefs(ctx, sess, &c.TeacherID, &c.LocationID); err != nil {
		return err
	}
	return s.checkStudents(ctx, sess, c.StudentIDs)
}

func (s *ClassService) checkRefs(ctx context.Context, sess *session.Session, teacherID, locationID *uuid.UUID) error {
	if teacherID == nil && locationID == nil {
		return nil
	}
	ref, err := s.reference.ReferenceData(ctx, sess)
	if err != nil {
		return err
	}
	if teacherID != nil && !hasTeacher(ref, *teacherID) {
		return invalid("teacher_id", "teacher does not belong to the studio")
	}
	if locationID != nil && !hasLocation(ref, *locationID) {
		return invalid("location_id", "location does not belong to the studio")
	}
	return nil
}

func (s *ClassService) checkStudents(ctx context.Context, sess *session.Session, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	ids = distinctIDs(ids)
	n, err := s.students.CountInStudio(ctx, sess.StudioID, ids)
	if err != nil {
		return fmt.Errorf("check students: %w", err)
	}
	if n != len(ids) {
		return invalid("student_ids", "every student must belong to the studio")
	}
	return nil
}

// ListClasses returns the studio's templates.
func (s *ClassService) ListClasses(ctx context.Context, sess *session.Session) ([]model.Class, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can list class templates")
	}
	return s.classes.ListByStudio(ctx, sess.StudioID)
}

// WeekCalendar returns the week containing day as seen by the session:
// owners see the studio, teachers their own classes and parents the
// classes their children attend.
func (s *ClassService) WeekCalendar(ctx context.Context, sess *session.Session, day time.Time) (schedule.Week, error) {
	start := schedule.WeekStart(day)
	filter := repository.InstanceFilter{
		StudioID: sess.StudioID,
		From:     start,
		To:       start.AddDate(0, 0, schedule.DaysInWeek-1),
	}

	var children map[uuid.UUID][]string
	switch sess.Role {
	case model.RoleOwner:
	case model.RoleTeacher:
		filter.TeacherID = &sess.ProfileID
	case model.RoleParent:
		var err error
		children, err = s.classes.EnrolledChildren(ctx, sess.ProfileID)
		if err != nil {
			return schedule.Week{}, fmt.Errorf("get enrolled children: %w", err)
		}
		if len(children) == 0 {
			return schedule.EmptyWeek(start), nil
		}
	default:
		return schedule.Week{}, fmt.Errorf("unhandled role %q", sess.Role)
	}

	instances, err := s.classes.ListInstances(ctx, filter)
	if err != nil {
		return schedule.Week{}, fmt.Errorf("get week: %w", err)
	}

	if children != nil {
		visible := instances[:0]
		for _, inst := range instances {
			names, ok := children[inst.ClassID]
			if !ok {
				continue
			}
			inst.EnrolledStudents = names
			visible = append(visible, inst)
		}
		instances = visible
	}

	return schedule.GroupWeek(instances, start), nil
}

// PreviewWeek places the studio templates on the week without reading
// stored occurrences, ignoring per-occurrence changes.
func (s *ClassService) PreviewWeek(ctx context.Context, sess *session.Session, day time.Time) (schedule.Week, error) {
	if sess.Role != model.RoleOwner {
		return schedule.Week{}, forbidden("only owners can preview the schedule")
	}
	classes, err := s.classes.ListByStudio(ctx, sess.StudioID)
	if err != nil {
		return schedule.Week{}, fmt.Errorf("list classes: %w", err)
	}
	return schedule.MaterializeWeek(classes, day), nil
}

// InstancesOn lists the session's occurrences on one day.
func (s *ClassService) InstancesOn(ctx context.Context, sess *session.Session, day time.Time) ([]model.ResolvedInstance, error) {
	week, err := s.WeekCalendar(ctx, sess, day)
	if err != nil {
		return nil, err
	}
	day = schedule.DateOnly(day)
	for _, d := range week.Days {
		if d.Date.Equal(day) {
			return d.Occurrences, nil
		}
	}
	return nil, nil
}

// RenderWeek draws the session's week as a PNG.
func (s *ClassService) RenderWeek(ctx context.Context, sess *session.Session, day time.Time) ([]byte, error) {
	week, err := s.WeekCalendar(ctx, sess, day)
	if err != nil {
		return nil, err
	}
	img, err := calendar.RenderWeek(week, s.now())
	if err != nil {
		return nil, fmt.Errorf("render week: %w", err)
	}
	return img, nil
}

// EditClass applies changes to the occurrences the scope selects and
// returns how many instance rows were affected.
func (s *ClassService) EditClass(
	ctx context.Context,
	sess *session.Session,
	classID uuid.UUID,
	date time.Time,
	rawScope string,
	ch model.ClassChanges,
) (int64, error) {
	if sess.Role != model.RoleOwner {
		return 0, forbidden("only owners can edit classes")
	}
	scope, err := schedule.ParseScope(rawScope)
	if err != nil {
		return 0, invalid("scope", "scope must be single, future or all")
	}
	if ch.Name != nil {
		name := strings.TrimSpace(*ch.Name)
		if name == "" {
			return 0, invalid("name", "name cannot be blank")
		}
		ch.Name = &name
	}
	if !ch.InstanceFieldsChanged() && !ch.ShapeChanged() && ch.StudentIDs == nil {
		return 0, invalid("changes", "nothing to change")
	}

	c, err := s.ownedClass(ctx, sess, classID)
	if err != nil {
		return 0, err
	}
	plan, err := resolvePlan(c, date, scope)
	if err != nil {
		return 0, err
	}

	if plan.Scope == schedule.ScopeAll {
		if !validRange(c.StartTime, c.EndTime, ch) {
			return 0, invalid("end_time", "end time must be after start time")
		}
	} else if ch.StartTime != nil || ch.EndTime != nil {
		if err := s.checkInstanceTimes(ctx, c, plan, ch); err != nil {
			return 0, err
		}
	}
	if err := s.checkRefs(ctx, sess, ch.TeacherID, ch.LocationID); err != nil {
		return 0, err
	}
	if ch.StudentIDs != nil {
		ids := distinctIDs(*ch.StudentIDs)
		ch.StudentIDs = &ids
		if err := s.checkStudents(ctx, sess, ids); err != nil {
			return 0, err
		}
	}

	var affected int64
	if plan.Scope == schedule.ScopeAll {
		affected, err = s.editTemplate(ctx, c, ch)
	} else {
		if ch.ShapeChanged() {
			return 0, invalid("scope", "the day and end date can only change for all occurrences")
		}
		affected, err = s.classes.EditInstances(ctx, plan, ch)
	}
	if err != nil {
		return 0, fmt.Errorf("edit class: %w", err)
	}

	s.logger.Info("Class edited",
		zap.String("class_id", c.ID.String()),
		zap.String("scope", string(plan.Scope)),
		zap.Int64("affected", affected))
	return affected, nil
}

// checkInstanceTimes applies the time changes to each selected occurrence's
// current times, overrides included, and rejects the edit if any of them
// would end before it starts.
func (s *ClassService) checkInstanceTimes(ctx context.Context, c *model.Class, plan schedule.Plan, ch model.ClassChanges) error {
	to := plan.Anchor
	if plan.Scope == schedule.ScopeFuture {
		to = c.EndDate
	}
	instances, err := s.classes.ListInstances(ctx, repository.InstanceFilter{
		StudioID: c.StudioID,
		ClassID:  &c.ID,
		From:     plan.Anchor,
		To:       to,
	})
	if err != nil {
		return fmt.Errorf("get instances: %w", err)
	}

	for _, inst := range instances {
		if !plan.Selects(inst.Date) {
			continue
		}
		if !validRange(inst.StartTime, inst.EndTime, ch) {
			return invalid("end_time", "end time must be after start time on %s", inst.Date.Format(time.DateOnly))
		}
	}
	return nil
}

func validRange(start, end model.TimeOfDay, ch model.ClassChanges) bool {
	if ch.StartTime != nil {
		start = *ch.StartTime
	}
	if ch.EndTime != nil {
		end = *ch.EndTime
	}
	return start.Valid() && end.Valid() && end > start
}

func (s *ClassService) editTemplate(ctx context.Context, c *model.Class, ch model.ClassChanges) (int64, error) {
	updated := *c
	if ch.EndDate != nil {
		end := schedule.DateOnly(*ch.EndDate)
		ch.EndDate = &end
	}
	ch.Apply(&updated)

	if updated.IsRecurring {
		if updated.EndDate.Before(updated.StartDate) {
			return 0, invalid("end_date", "end date cannot be before start date")
		}
		if updated.EndDate.Sub(updated.StartDate) > schedule.MaxRecurrenceSpan {
			return 0, invalid("end_date", "a class cannot repeat for more than two years")
		}
	}

	var diff schedule.Diff
	if ch.ShapeChanged() {
		existing, err := s.classes.InstanceDates(ctx, c.ID)
		if err != nil {
			return 0, fmt.Errorf("get instance dates: %w", err)
		}
		exceptions, err := s.classes.ExceptionDates(ctx, c.ID)
		if err != nil {
			return 0, fmt.Errorf("get exception dates: %w", err)
		}
		diff = schedule.Reconcile(&updated, existing, exceptions)
	}
	return s.classes.EditTemplate(ctx, &updated, ch, diff)
}

// DeleteClass removes the occurrences the scope selects and returns how
// many were removed. A delete that leaves nothing behind removes the
// template too unless keepTemplate is set.
func (s *ClassService) DeleteClass(
	ctx context.Context,
	sess *session.Session,
	classID uuid.UUID,
	date time.Time,
	rawScope string,
	keepTemplate bool,
) (int64, error) {
	if sess.Role != model.RoleOwner {
		return 0, forbidden("only owners can delete classes")
	}
	scope, err := schedule.ParseScope(rawScope)
	if err != nil {
		return 0, invalid("scope", "scope must be single, future or all")
	}

	c, err := s.ownedClass(ctx, sess, classID)
	if err != nil {
		return 0, err
	}
	plan, err := resolvePlan(c, date, scope)
	if err != nil {
		return 0, err
	}

	var opts repository.DeleteOptions
	if plan.CoversWholeClass(c) {
		if keepTemplate && c.IsRecurring {
			plan.Scope = schedule.ScopeAll
		} else {
			opts.WholeClass = true
		}
	}

	removed, err := s.classes.DeleteInstances(ctx, plan, opts)
	if err != nil {
		return 0, fmt.Errorf("delete class: %w", err)
	}

	s.logger.Info("Class deleted",
		zap.String("class_id", c.ID.String()),
		zap.String("scope", string(plan.Scope)),
		zap.Bool("template_removed", opts.WholeClass),
		zap.Int64("removed", removed))
	return removed, nil
}

// ReconcileAll brings the stored instances of every running recurring class
// in line with its template.
func (s *ClassService) ReconcileAll(ctx context.Context) (created, deleted int64, err error) {
	classes, err := s.classes.ListRecurring(ctx, schedule.DateOnly(s.now()))
	if err != nil {
		return 0, 0, fmt.Errorf("list recurring classes: %w", err)
	}

	for i := range classes {
		c := &classes[i]
		existing, err := s.classes.InstanceDates(ctx, c.ID)
		if err != nil {
			return created, deleted, fmt.Errorf("get instance dates: %w", err)
		}
		exceptions, err := s.classes.ExceptionDates(ctx, c.ID)
		if err != nil {
			return created, deleted, fmt.Errorf("get exception dates: %w", err)
		}

		diff := schedule.Reconcile(c, existing, exceptions)
		if diff.Empty() {
			continue
		}
		cr, del, err := s.classes.SyncInstances(ctx, c.ID, diff)
		if err != nil {
			return created, deleted, fmt.Errorf("sync class %s: %w", c.ID, err)
		}
		created += cr
		deleted += del
	}

	if created > 0 || deleted > 0 {
		s.logger.Info("Class instances reconciled",
			zap.Int64("created", created),
			zap.Int64("deleted", deleted))
	}
	return created, deleted, nil
}

func (s *ClassService) ownedClass(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.Class, error) {
	c, err := s.classes.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if c == nil || c.StudioID != sess.StudioID {
		return nil, notFound("class")
	}
	return c, nil
}

func resolvePlan(c *model.Class, date time.Time, scope schedule.Scope) (schedule.Plan, error) {
	plan, err := schedule.ResolveScope(c, date, scope)
	if err != nil {
		if errors.Is(err, schedule.ErrNoOccurrence) {
			return schedule.Plan{}, invalid("date", "the class does not take place on %s", schedule.DateOnly(date).Format(time.DateOnly))
		}
		return schedule.Plan{}, invalid("scope", "%s", err.Error())
	}
	return plan, nil
}

// ParseDate reads a YYYY-MM-DD value, reporting failures against field.
func ParseDate(field, value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, invalid(field, "%s must be a date like 2024-01-31", field)
	}
	return d, nil
}

func hasTeacher(ref *model.ReferenceData, id uuid.UUID) bool {
	for _, t := range ref.Teachers {
		if t.ID == id {
			return true
		}
	}
	return false
}

func hasLocation(ref *model.ReferenceData, id uuid.UUID) bool {
	for _, l := range ref.Locations {
		if l.ID == id {
			return true
		}
	}
	return false
}

func distinctIDs(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
