package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/export"
	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AttendanceService struct {
	classes    ClassStore
	attendance AttendanceStore
	reference  ReferenceSource
	logger     *zap.Logger
}

func NewAttendanceService(classes ClassStore, attendance AttendanceStore, reference ReferenceSource, logger *zap.Logger) *AttendanceService {
	return &AttendanceService{
		classes:    classes,
		attendance: attendance,
		reference:  reference,
		logger:     logger,
	}
}

// AttendanceSheet is the roster of one occurrence.
type AttendanceSheet struct {
	Instance model.ResolvedInstance `json:"instance"`
	Entries  []model.RosterEntry    `json:"entries"`
	ReadOnly bool                   `json:"read_only"`
}

// GetRoster returns the occurrence's roster, copying the class roster onto
// it the first time it is opened. Parents only see their own children.
func (s *AttendanceService) GetRoster(ctx context.Context, sess *session.Session, instanceID uuid.UUID) (*AttendanceSheet, error) {
	inst, class, err := s.visibleInstance(ctx, sess, instanceID)
	if err != nil {
		return nil, err
	}

	created, err := s.attendance.EnsureEnrollments(ctx, inst.ID, class.ID)
	if err != nil {
		return nil, fmt.Errorf("prepare roster: %w", err)
	}
	if created > 0 {
		s.logger.Info("Instance roster created",
			zap.String("instance_id", inst.ID.String()),
			zap.Int64("students", created))
	}

	entries, err := s.attendance.Roster(ctx, inst.ID)
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}

	sheet := &AttendanceSheet{
		Instance: s.describe(ctx, sess, inst, class),
		Entries:  entries,
		ReadOnly: sess.Role == model.RoleParent,
	}
	if sess.Role == model.RoleParent {
		own := make([]model.RosterEntry, 0, len(entries))
		for _, e := range entries {
			if e.ParentID == sess.ProfileID {
				own = append(own, e)
			}
		}
		if len(own) == 0 {
			return nil, forbidden("none of your children attend this class")
		}
		sheet.Entries = own
	}
	if sheet.Entries == nil {
		sheet.Entries = []model.RosterEntry{}
	}
	return sheet, nil
}

// SaveAttendance stores every mark or none of them.
func (s *AttendanceService) SaveAttendance(ctx context.Context, sess *session.Session, instanceID uuid.UUID, marks []model.AttendanceMark) error {
	if sess.Role == model.RoleParent {
		return forbidden("parents cannot take attendance")
	}
	if len(marks) == 0 {
		return invalid("marks", "nothing to save")
	}
	for i := range marks {
		if err := validateStruct(marks[i]); err != nil {
			return err
		}
		if _, err := model.ParseAttendanceStatus(string(marks[i].Status)); err != nil {
			return invalid("status", "status must be present, late, authorised or unauthorised")
		}
	}

	inst, _, err := s.visibleInstance(ctx, sess, instanceID)
	if err != nil {
		return err
	}

	entries, err := s.attendance.Roster(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("get roster: %w", err)
	}
	known := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		known[e.EnrollmentID] = struct{}{}
	}
	for _, m := range marks {
		if _, ok := known[m.EnrollmentID]; !ok {
			return invalid("enrollment_id", "student is not enrolled in this class")
		}
	}

	if err := s.attendance.SaveMarks(ctx, inst.ID, marks); err != nil {
		return fmt.Errorf("save attendance: %w", err)
	}

	s.logger.Info("Attendance saved",
		zap.String("instance_id", inst.ID.String()),
		zap.String("by", sess.UserID.String()),
		zap.Int("marks", len(marks)))
	return nil
}

// ExportAttendance renders the visible roster as a workbook.
func (s *AttendanceService) ExportAttendance(ctx context.Context, sess *session.Session, instanceID uuid.UUID) ([]byte, error) {
	sheet, err := s.GetRoster(ctx, sess, instanceID)
	if err != nil {
		return nil, err
	}
	data, err := export.AttendanceXLSX(sheet.Instance, sheet.Entries)
	if err != nil {
		return nil, fmt.Errorf("export attendance: %w", err)
	}
	return data, nil
}

// visibleInstance loads the occurrence and its class, rejecting other
// studios and teachers who do not teach it.
func (s *AttendanceService) visibleInstance(ctx context.Context, sess *session.Session, id uuid.UUID) (*model.ClassInstance, *model.Class, error) {
	inst, err := s.classes.GetInstance(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("get instance: %w", err)
	}
	if inst == nil {
		return nil, nil, notFound("class instance")
	}
	class, err := s.classes.GetByID(ctx, inst.ClassID)
	if err != nil {
		return nil, nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil || class.StudioID != sess.StudioID {
		return nil, nil, notFound("class instance")
	}

	if sess.Role == model.RoleTeacher {
		teacher := class.TeacherID
		if inst.TeacherID != nil {
			teacher = *inst.TeacherID
		}
		if teacher != sess.ProfileID {
			return nil, nil, forbidden("only the class teacher can take attendance")
		}
	}
	return inst, class, nil
}

// describe resolves the occurrence and fills in display names.
func (s *AttendanceService) describe(ctx context.Context, sess *session.Session, inst *model.ClassInstance, class *model.Class) model.ResolvedInstance {
	r := inst.Resolve(class)
	ref, err := s.reference.ReferenceData(ctx, sess)
	if err != nil {
		s.logger.Warn("Reference data unavailable", zap.Error(err))
		return r
	}
	for _, t := range ref.Teachers {
		if t.ID == r.TeacherID {
			r.TeacherName = t.Name
		}
	}
	for _, l := range ref.Locations {
		if l.ID == r.LocationID {
			r.LocationName = l.Name
		}
	}
	return r
}
