package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(b *base.Repository) *UserRepository {
	return &UserRepository{Repository: b}
}

// Register creates the user and its role profile in one transaction. An
// owner without a studio gets the default one.
func (r *UserRepository) Register(ctx context.Context, user *model.User, profile *model.Profile) error {
	return r.InTx(ctx, func(q base.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO users (email, password_hash)
			VALUES ($1, $2)
			RETURNING id, created_at
		`, user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
		if err != nil {
			if base.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("create user: %w", err)
		}

		profile.UserID = user.ID
		switch profile.Role {
		case model.RoleOwner:
			return r.createOwner(ctx, q, profile)
		case model.RoleTeacher, model.RoleParent:
			if profile.StudioID == nil {
				return fmt.Errorf("create %s: studio is required", profile.Role)
			}
			query := fmt.Sprintf(`
				INSERT INTO %s (user_id, studio_id, name, email)
				VALUES ($1, $2, $3, $4)
				RETURNING id, created_at
			`, profile.Role.ProfileTable())
			err := q.QueryRow(ctx, query, profile.UserID, *profile.StudioID, profile.Name, profile.Email).
				Scan(&profile.ID, &profile.CreatedAt)
			if err != nil {
				return fmt.Errorf("create %s: %w", profile.Role, err)
			}
			return nil
		}
		return fmt.Errorf("unhandled role %q", profile.Role)
	})
}

func (r *UserRepository) createOwner(ctx context.Context, q base.Querier, profile *model.Profile) error {
	err := q.QueryRow(ctx, `
		INSERT INTO owners (user_id, name, email)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, profile.UserID, profile.Name, profile.Email).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("create owner: %w", err)
	}

	var studioID uuid.UUID
	err = q.QueryRow(ctx, `SELECT id FROM studios WHERE owner_id = $1 LIMIT 1`, profile.ID).Scan(&studioID)
	if err != nil && !base.IsNotFound(err) {
		return fmt.Errorf("check owner studio: %w", err)
	}
	if base.IsNotFound(err) {
		err = q.QueryRow(ctx, `
			INSERT INTO studios (owner_id, name, email)
			VALUES ($1, $2, $3)
			RETURNING id
		`, profile.ID, model.DefaultStudioName, profile.Email).Scan(&studioID)
		if err != nil {
			return fmt.Errorf("create default studio: %w", err)
		}
	}
	profile.StudioID = &studioID
	return nil
}

// GetByEmail returns nil when no user has the email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.Pool().QueryRow(ctx, `
		SELECT id, email, password_hash, telegram_chat_id, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.TelegramChatID, &user.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &user, nil
}

// FindProfile resolves the role of a user by checking owners, then
// teachers, then parents. Returns nil when the user has no profile.
func (r *UserRepository) FindProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	lookups := []struct {
		role  model.Role
		query string
	}{
		{model.RoleOwner, `
			SELECT o.id, o.user_id, s.id, o.name, o.email, o.created_at
			FROM owners o
			LEFT JOIN studios s ON s.owner_id = o.id
			WHERE o.user_id = $1
			ORDER BY s.updated_at
			LIMIT 1`},
		{model.RoleTeacher, `
			SELECT id, user_id, studio_id, name, email, created_at
			FROM teachers
			WHERE user_id = $1`},
		{model.RoleParent, `
			SELECT id, user_id, studio_id, name, email, created_at
			FROM parents
			WHERE user_id = $1`},
	}

	for _, l := range lookups {
		p := model.Profile{Role: l.role}
		err := r.Pool().QueryRow(ctx, l.query, userID).Scan(&p.ID, &p.UserID, &p.StudioID, &p.Name, &p.Email, &p.CreatedAt)
		if err == nil {
			return &p, nil
		}
		if !base.IsNotFound(err) {
			return nil, fmt.Errorf("find %s profile: %w", l.role, err)
		}
	}
	return nil, nil
}

// SetTelegramLinkCode stores a one-time code the user sends to the bot.
func (r *UserRepository) SetTelegramLinkCode(ctx context.Context, userID uuid.UUID, code string) error {
	n, err := base.ExecAffected(ctx, r.Pool(), `UPDATE users SET telegram_link_code = $1 WHERE id = $2`, code, userID)
	if err != nil {
		return fmt.Errorf("set telegram link code: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// LinkTelegram binds a chat to the user owning code and consumes the code.
// Returns nil when the code is unknown.
func (r *UserRepository) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	var user model.User
	err := r.Pool().QueryRow(ctx, `
		UPDATE users
		SET telegram_chat_id = $1, telegram_link_code = NULL
		WHERE telegram_link_code = $2
		RETURNING id, email, telegram_chat_id, created_at
	`, chatID, code).Scan(&user.ID, &user.Email, &user.TelegramChatID, &user.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("link telegram: %w", err)
	}
	return &user, nil
}

// GetByTelegramChatID returns nil when the chat is not linked.
func (r *UserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	err := r.Pool().QueryRow(ctx, `
		SELECT id, email, telegram_chat_id, created_at
		FROM users
		WHERE telegram_chat_id = $1
	`, chatID).Scan(&user.ID, &user.Email, &user.TelegramChatID, &user.CreatedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram chat: %w", err)
	}
	return &user, nil
}

// TelegramChats maps the linked users among ids to their chat.
func (r *UserRepository) TelegramChats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, telegram_chat_id
		FROM users
		WHERE id = ANY($1) AND telegram_chat_id IS NOT NULL
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("list telegram chats: %w", err)
	}
	defer rows.Close()

	chats := make(map[uuid.UUID]int64, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var chat int64
		if err := rows.Scan(&id, &chat); err != nil {
			return nil, fmt.Errorf("scan telegram chat: %w", err)
		}
		chats[id] = chat
	}
	return chats, rows.Err()
}

// DisplayName returns the profile name of a user, or "" when unknown.
func (r *UserRepository) DisplayName(ctx context.Context, userID uuid.UUID) (string, error) {
	var name string
	err := r.Pool().QueryRow(ctx, `SELECT name FROM user_directory WHERE user_id = $1 LIMIT 1`, userID).Scan(&name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("get display name: %w", err)
	}
	return name, nil
}
