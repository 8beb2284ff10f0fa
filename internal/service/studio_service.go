package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StudioService serves the studio's reference data and its edits.
type StudioService struct {
	studios  StudioStore
	students StudentStore
	cache    *ReferenceCache
	logger   *zap.Logger
}

func NewStudioService(studios StudioStore, students StudentStore, cache *ReferenceCache, logger *zap.Logger) *StudioService {
	return &StudioService{
		studios:  studios,
		students: students,
		cache:    cache,
		logger:   logger,
	}
}

// ReferenceData returns the studio, its teachers and locations, loading
// them once per session.
func (s *StudioService) ReferenceData(ctx context.Context, sess *session.Session) (*model.ReferenceData, error) {
	if data, ok := s.cache.Get(sess.ID); ok {
		return data, nil
	}

	studio, err := s.studios.GetByID(ctx, sess.StudioID)
	if err != nil {
		return nil, fmt.Errorf("get studio: %w", err)
	}
	if studio == nil {
		return nil, notFound("studio")
	}
	teachers, err := s.studios.ListTeachers(ctx, sess.StudioID)
	if err != nil {
		return nil, fmt.Errorf("get teachers: %w", err)
	}
	locations, err := s.studios.ListLocations(ctx, sess.StudioID)
	if err != nil {
		return nil, fmt.Errorf("get locations: %w", err)
	}

	data := &model.ReferenceData{Studio: studio, Teachers: teachers, Locations: locations}
	s.cache.Put(sess.ID, sess.StudioID, data)
	return data, nil
}

// StudioInput is the editable part of the studio.
type StudioInput struct {
	Name    string `json:"name" validate:"notblank,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
	Email   string `json:"email" validate:"omitempty,email"`
}

func (s *StudioService) UpdateStudio(ctx context.Context, sess *session.Session, in StudioInput) (*model.Studio, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can edit the studio")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	studio := &model.Studio{
		ID:      sess.StudioID,
		OwnerID: sess.ProfileID,
		Name:    strings.TrimSpace(in.Name),
		Address: in.Address,
		Phone:   in.Phone,
		Email:   in.Email,
	}
	if err := s.studios.Update(ctx, studio); err != nil {
		return nil, fmt.Errorf("update studio: %w", err)
	}
	s.cache.InvalidateStudio(sess.StudioID)

	s.logger.Info("Studio updated", zap.String("studio_id", sess.StudioID.String()))
	return studio, nil
}

type LocationInput struct {
	Name        string `json:"name" validate:"notblank,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Address     string `json:"address" validate:"max=500"`
}

func (s *StudioService) CreateLocation(ctx context.Context, sess *session.Session, in LocationInput) (*model.Location, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can manage locations")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	loc := &model.Location{
		StudioID:    sess.StudioID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Address:     in.Address,
	}
	if err := s.studios.CreateLocation(ctx, loc); err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	s.cache.InvalidateStudio(sess.StudioID)
	return loc, nil
}

func (s *StudioService) DeleteLocation(ctx context.Context, sess *session.Session, id uuid.UUID) error {
	if sess.Role != model.RoleOwner {
		return forbidden("only owners can manage locations")
	}

	ok, err := s.studios.DeleteLocation(ctx, sess.StudioID, id)
	if errors.Is(err, repository.ErrInUse) {
		return fmt.Errorf("%w: location is used by classes", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	if !ok {
		return notFound("location")
	}
	s.cache.InvalidateStudio(sess.StudioID)
	return nil
}

func (s *StudioService) ListTeachers(ctx context.Context, sess *session.Session) ([]model.Teacher, error) {
	data, err := s.ReferenceData(ctx, sess)
	if err != nil {
		return nil, err
	}
	return data.Teachers, nil
}

func (s *StudioService) ListParents(ctx context.Context, sess *session.Session) ([]model.Parent, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can list parents")
	}
	return s.studios.ListParents(ctx, sess.StudioID)
}

// ListStudents returns the whole studio for owners and their own children
// for parents.
func (s *StudioService) ListStudents(ctx context.Context, sess *session.Session) ([]model.Student, error) {
	switch sess.Role {
	case model.RoleOwner:
		return s.students.ListByStudio(ctx, sess.StudioID)
	case model.RoleParent:
		return s.students.ListByParent(ctx, sess.ProfileID)
	case model.RoleTeacher:
		return nil, forbidden("teachers cannot list students")
	}
	return nil, fmt.Errorf("unhandled role %q", sess.Role)
}

type StudentInput struct {
	Name        string     `json:"name" validate:"notblank,max=200"`
	DateOfBirth *time.Time `json:"date_of_birth"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// AddStudent registers a child. Parents add their own children; owners
// name the parent.
func (s *StudioService) AddStudent(ctx context.Context, sess *session.Session, in StudentInput) (*model.Student, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.DateOfBirth != nil && in.DateOfBirth.After(time.Now()) {
		return nil, invalid("date_of_birth", "date of birth cannot be in the future")
	}

	student := &model.Student{
		StudioID:    sess.StudioID,
		Name:        strings.TrimSpace(in.Name),
		DateOfBirth: in.DateOfBirth,
	}

	switch sess.Role {
	case model.RoleParent:
		student.ParentID = sess.ProfileID
	case model.RoleOwner:
		if in.ParentID == nil {
			return nil, invalid("parent_id", "please select a parent")
		}
		parent, err := s.studios.GetParent(ctx, *in.ParentID)
		if err != nil {
			return nil, fmt.Errorf("get parent: %w", err)
		}
		if parent == nil || parent.StudioID != sess.StudioID {
			return nil, notFound("parent")
		}
		student.ParentID = parent.ID
	case model.RoleTeacher:
		return nil, forbidden("teachers cannot add students")
	default:
		return nil, fmt.Errorf("unhandled role %q", sess.Role)
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("add student: %w", err)
	}

	s.logger.Info("Student added",
		zap.String("student_id", student.ID.String()),
		zap.String("parent_id", student.ParentID.String()))
	return student, nil
}
