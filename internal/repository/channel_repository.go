package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
)

type ChannelRepository struct {
	*base.Repository
}

func NewChannelRepository(b *base.Repository) *ChannelRepository {
	return &ChannelRepository{Repository: b}
}

// ChannelAudience selects the channels a profile can see.
type ChannelAudience struct {
	Role      model.Role
	StudioID  uuid.UUID
	ProfileID uuid.UUID
}

func (r *ChannelRepository) Create(ctx context.Context, ch *model.Channel) error {
	err := r.Pool().QueryRow(ctx, `
		INSERT INTO class_channels (class_id, name, description, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, ch.ClassID, ch.Name, ch.Description, ch.CreatedBy).Scan(&ch.ID, &ch.CreatedAt)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// ListVisible returns the studio's channels for owners, the channels of
// their classes for teachers and of their children's classes for parents.
func (r *ChannelRepository) ListVisible(ctx context.Context, a ChannelAudience) ([]model.Channel, error) {
	var filter string
	args := []any{a.StudioID}
	switch a.Role {
	case model.RoleOwner:
		filter = `TRUE`
	case model.RoleTeacher:
		filter = `c.teacher_id = $2`
		args = append(args, a.ProfileID)
	case model.RoleParent:
		filter = `EXISTS (
			SELECT 1 FROM class_students cs
			JOIN students s ON s.id = cs.student_id
			WHERE cs.class_id = c.id AND s.parent_id = $2)`
		args = append(args, a.ProfileID)
	default:
		return nil, fmt.Errorf("unhandled role %q", a.Role)
	}

	rows, err := r.Pool().Query(ctx, `
		SELECT ch.id, ch.class_id, c.name, ch.name, ch.description, ch.created_by, ch.created_at
		FROM class_channels ch
		JOIN classes c ON c.id = ch.class_id
		WHERE c.studio_id = $1 AND `+filter+`
		ORDER BY c.name, ch.name
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	var out []model.Channel
	for rows.Next() {
		var ch model.Channel
		if err := rows.Scan(&ch.ID, &ch.ClassID, &ch.ClassName, &ch.Name, &ch.Description, &ch.CreatedBy, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

func (r *ChannelRepository) ListPosts(ctx context.Context, channelID uuid.UUID) ([]model.ChannelPost, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, channel_id, author_id, content, created_at
		FROM channel_posts
		WHERE channel_id = $1
		ORDER BY created_at DESC
	`, channelID)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var out []model.ChannelPost
	for rows.Next() {
		var p model.ChannelPost
		if err := rows.Scan(&p.ID, &p.ChannelID, &p.AuthorID, &p.Content, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ChannelRepository) CreatePost(ctx context.Context, p *model.ChannelPost) error {
	err := r.Pool().QueryRow(ctx, `
		INSERT INTO channel_posts (channel_id, author_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, p.ChannelID, p.AuthorID, p.Content).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}
