package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
)

type StudioRepository struct {
	*base.Repository
}

func NewStudioRepository(b *base.Repository) *StudioRepository {
	return &StudioRepository{Repository: b}
}

// List returns every studio, for the sign-up picker.
func (r *StudioRepository) List(ctx context.Context) ([]model.Studio, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, owner_id, name, address, phone, email, updated_at
		FROM studios
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list studios: %w", err)
	}
	defer rows.Close()

	var studios []model.Studio
	for rows.Next() {
		var s model.Studio
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan studio: %w", err)
		}
		studios = append(studios, s)
	}
	return studios, rows.Err()
}

// GetByID returns nil when the studio does not exist.
func (r *StudioRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Studio, error) {
	var s model.Studio
	err := r.Pool().QueryRow(ctx, `
		SELECT id, owner_id, name, address, phone, email, updated_at
		FROM studios
		WHERE id = $1
	`, id).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Address, &s.Phone, &s.Email, &s.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get studio: %w", err)
	}
	return &s, nil
}

// Update overwrites the contact details of the studio.
func (r *StudioRepository) Update(ctx context.Context, s *model.Studio) error {
	err := r.Pool().QueryRow(ctx, `
		UPDATE studios
		SET name = $1, address = $2, phone = $3, email = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`, s.Name, s.Address, s.Phone, s.Email, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return fmt.Errorf("studio not found")
		}
		return fmt.Errorf("update studio: %w", err)
	}
	return nil
}

func (r *StudioRepository) ListTeachers(ctx context.Context, studioID uuid.UUID) ([]model.Teacher, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, user_id, studio_id, name, email
		FROM teachers
		WHERE studio_id = $1
		ORDER BY name
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list teachers: %w", err)
	}
	defer rows.Close()

	var teachers []model.Teacher
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.UserID, &t.StudioID, &t.Name, &t.Email); err != nil {
			return nil, fmt.Errorf("scan teacher: %w", err)
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

func (r *StudioRepository) ListParents(ctx context.Context, studioID uuid.UUID) ([]model.Parent, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, user_id, studio_id, name, email
		FROM parents
		WHERE studio_id = $1
		ORDER BY name
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list parents: %w", err)
	}
	defer rows.Close()

	var parents []model.Parent
	for rows.Next() {
		var p model.Parent
		if err := rows.Scan(&p.ID, &p.UserID, &p.StudioID, &p.Name, &p.Email); err != nil {
			return nil, fmt.Errorf("scan parent: %w", err)
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// GetParent returns nil when the parent does not exist.
func (r *StudioRepository) GetParent(ctx context.Context, id uuid.UUID) (*model.Parent, error) {
	var p model.Parent
	err := r.Pool().QueryRow(ctx, `
		SELECT id, user_id, studio_id, name, email
		FROM parents
		WHERE id = $1
	`, id).Scan(&p.ID, &p.UserID, &p.StudioID, &p.Name, &p.Email)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get parent: %w", err)
	}
	return &p, nil
}

func (r *StudioRepository) ListLocations(ctx context.Context, studioID uuid.UUID) ([]model.Location, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, studio_id, name, description, address
		FROM locations
		WHERE studio_id = $1
		ORDER BY name
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.StudioID, &l.Name, &l.Description, &l.Address); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (r *StudioRepository) CreateLocation(ctx context.Context, l *model.Location) error {
	err := r.Pool().QueryRow(ctx, `
		INSERT INTO locations (studio_id, name, description, address)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, l.StudioID, l.Name, l.Description, l.Address).Scan(&l.ID)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// DeleteLocation removes a location of the studio and reports whether it existed.
func (r *StudioRepository) DeleteLocation(ctx context.Context, studioID, id uuid.UUID) (bool, error) {
	n, err := base.ExecAffected(ctx, r.Pool(), `DELETE FROM locations WHERE id = $1 AND studio_id = $2`, id, studioID)
	if err != nil {
		if base.IsForeignKeyViolation(err) {
			return false, ErrInUse
		}
		return false, fmt.Errorf("delete location: %w", err)
	}
	return n > 0, nil
}
