package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type StudentRepository struct {
	*base.Repository
}

func NewStudentRepository(b *base.Repository) *StudentRepository {
	return &StudentRepository{Repository: b}
}

func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	err := r.Pool().QueryRow(ctx, `
		INSERT INTO students (studio_id, parent_id, name, date_of_birth)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, s.StudioID, s.ParentID, s.Name, s.DateOfBirth).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (r *StudentRepository) ListByStudio(ctx context.Context, studioID uuid.UUID) ([]model.Student, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, studio_id, parent_id, name, date_of_birth
		FROM students
		WHERE studio_id = $1
		ORDER BY name
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return scanStudents(rows)
}

func (r *StudentRepository) ListByParent(ctx context.Context, parentID uuid.UUID) ([]model.Student, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, studio_id, parent_id, name, date_of_birth
		FROM students
		WHERE parent_id = $1
		ORDER BY name
	`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list parent students: %w", err)
	}
	return scanStudents(rows)
}

// CountInStudio reports how many of ids are students of the studio.
func (r *StudentRepository) CountInStudio(ctx context.Context, studioID uuid.UUID, ids []uuid.UUID) (int, error) {
	var n int
	err := r.Pool().QueryRow(ctx, `
		SELECT count(*) FROM students WHERE studio_id = $1 AND id = ANY($2)
	`, studioID, ids).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return n, nil
}

func scanStudents(rows pgx.Rows) ([]model.Student, error) {
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.StudioID, &s.ParentID, &s.Name, &s.DateOfBirth); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, s)
	}
	return students, rows.Err()
}
