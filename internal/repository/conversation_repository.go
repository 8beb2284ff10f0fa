package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository/base"
	"github.com/google/uuid"
)

type ConversationRepository struct {
	*base.Repository
}

func NewConversationRepository(b *base.Repository) *ConversationRepository {
	return &ConversationRepository{Repository: b}
}

// ListForUser returns the user's conversations, most recent activity first.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT c.id, c.created_by, c.last_message, c.last_message_at, c.created_at, cp.unread_count
		FROM conversation_participants cp
		JOIN conversations c ON c.id = cp.conversation_id
		WHERE cp.user_id = $1
		ORDER BY c.last_message_at DESC NULLS LAST, c.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var convs []model.Conversation
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.CreatedBy, &c.LastMessage, &c.LastMessageAt, &c.CreatedAt, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		index[c.ID] = len(convs)
		convs = append(convs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return convs, nil
	}

	ids := make([]uuid.UUID, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	parts, err := r.participants(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range parts {
		i := index[p.ConversationID]
		convs[i].Participants = append(convs[i].Participants, p)
	}
	return convs, nil
}

func (r *ConversationRepository) participants(ctx context.Context, convIDs []uuid.UUID) ([]model.Participant, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT cp.conversation_id, cp.user_id, COALESCE(d.name, ''), COALESCE(d.role, ''), cp.unread_count, cp.last_read_at
		FROM conversation_participants cp
		LEFT JOIN user_directory d ON d.user_id = cp.user_id
		WHERE cp.conversation_id = ANY($1)
		ORDER BY d.name
	`, convIDs)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var parts []model.Participant
	for rows.Next() {
		var p model.Participant
		var role string
		if err := rows.Scan(&p.ConversationID, &p.UserID, &p.Name, &role, &p.UnreadCount, &p.LastReadAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		p.Role = model.Role(role)
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// ParticipantIDs lists the users taking part in the conversation.
func (r *ConversationRepository) ParticipantIDs(ctx context.Context, convID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.Pool().Query(ctx, `SELECT user_id FROM conversation_participants WHERE conversation_id = $1`, convID)
	if err != nil {
		return nil, fmt.Errorf("list participant ids: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Messages lists the thread in chronological order.
func (r *ConversationRepository) Messages(ctx context.Context, convID uuid.UUID) ([]model.Message, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT id, conversation_id, sender_id, content, created_at, edited_at, is_deleted
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at, id
	`, convID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.CreatedAt, &m.EditedAt, &m.IsDeleted); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Send stores the message, updates the conversation preview and bumps the
// unread counter of the other participants of that conversation.
func (r *ConversationRepository) Send(ctx context.Context, m *model.Message) error {
	return r.InTx(ctx, func(q base.Querier) error {
		err := q.QueryRow(ctx, `
			INSERT INTO messages (conversation_id, sender_id, content)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, m.ConversationID, m.SenderID, m.Content).Scan(&m.ID, &m.CreatedAt)
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}

		_, err = q.Exec(ctx, `
			UPDATE conversations SET last_message = $1, last_message_at = $2 WHERE id = $3
		`, m.Content, m.CreatedAt, m.ConversationID)
		if err != nil {
			return fmt.Errorf("update conversation preview: %w", err)
		}

		_, err = q.Exec(ctx, `
			UPDATE conversation_participants
			SET unread_count = unread_count + 1
			WHERE conversation_id = $1 AND user_id <> $2
		`, m.ConversationID, m.SenderID)
		if err != nil {
			return fmt.Errorf("bump unread counters: %w", err)
		}
		return nil
	})
}

func (r *ConversationRepository) MarkRead(ctx context.Context, convID, userID uuid.UUID) error {
	if _, err := r.Pool().Exec(ctx, `SELECT mark_messages_as_read($1, $2)`, convID, userID); err != nil {
		return fmt.Errorf("mark_messages_as_read: %w", err)
	}
	return nil
}

// Create opens a conversation between createdBy and participants.
func (r *ConversationRepository) Create(ctx context.Context, createdBy uuid.UUID, participants []uuid.UUID) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.Pool().QueryRow(ctx, `SELECT create_conversation($1, $2)`, createdBy, participants).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create_conversation: %w", err)
	}
	return id, nil
}

// Contacts lists the people of the studio one can start a conversation with.
func (r *ConversationRepository) Contacts(ctx context.Context, studioID uuid.UUID) ([]model.Participant, error) {
	rows, err := r.Pool().Query(ctx, `
		SELECT user_id, name, role
		FROM user_directory
		WHERE studio_id = $1
		ORDER BY role, name
	`, studioID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var role string
		if err := rows.Scan(&p.UserID, &p.Name, &role); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		p.Role = model.Role(role)
		out = append(out, p)
	}
	return out, rows.Err()
}
