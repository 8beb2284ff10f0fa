package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/realtime"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxMessageLength = 5000

type MessagingService struct {
	conversations ConversationStore
	users         UserStore
	publisher     Publisher
	subscriber    Subscriber
	notifier      Notifier
	logger        *zap.Logger
}

func NewMessagingService(
	conversations ConversationStore,
	users UserStore,
	publisher Publisher,
	subscriber Subscriber,
	notifier Notifier,
	logger *zap.Logger,
) *MessagingService {
	return &MessagingService{
		conversations: conversations,
		users:         users,
		publisher:     publisher,
		subscriber:    subscriber,
		notifier:      notifier,
		logger:        logger,
	}
}

// ListConversations returns the user's conversations, latest activity first.
func (s *MessagingService) ListConversations(ctx context.Context, sess *session.Session) ([]model.Conversation, error) {
	convs, err := s.conversations.ListForUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("get conversations: %w", err)
	}
	if convs == nil {
		convs = []model.Conversation{}
	}
	return convs, nil
}

// ListMessages returns the thread in chronological order.
func (s *MessagingService) ListMessages(ctx context.Context, sess *session.Session, convID uuid.UUID) ([]model.Message, error) {
	if _, err := s.participants(ctx, sess, convID); err != nil {
		return nil, err
	}
	msgs, err := s.conversations.Messages(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.Message{}
	}
	return msgs, nil
}

// SendMessage stores the message and tells every participant that the
// conversation changed. Linked participants other than the sender get a
// Telegram notification.
func (s *MessagingService) SendMessage(ctx context.Context, sess *session.Session, convID uuid.UUID, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "message cannot be empty")
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, invalid("content", "message cannot be longer than %d characters", maxMessageLength)
	}

	members, err := s.participants(ctx, sess, convID)
	if err != nil {
		return nil, err
	}

	msg := &model.Message{ConversationID: convID, SenderID: sess.UserID, Content: content}
	if err := s.conversations.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.publish(ctx, realtime.MessagesTopic(convID), realtime.EventMessageCreated, convID)
	for _, id := range members {
		s.publish(ctx, realtime.ConversationsTopic(id), realtime.EventConversationUpdated, convID)
	}
	s.notifyOthers(ctx, sess, members, content)

	return msg, nil
}

// MarkAsRead resets the user's unread counter. Failures are only logged.
func (s *MessagingService) MarkAsRead(ctx context.Context, sess *session.Session, convID uuid.UUID) {
	if err := s.conversations.MarkRead(ctx, convID, sess.UserID); err != nil {
		s.logger.Warn("Failed to mark conversation as read",
			zap.String("conversation_id", convID.String()),
			zap.String("user_id", sess.UserID.String()),
			zap.Error(err))
		return
	}
	s.publish(ctx, realtime.ConversationsTopic(sess.UserID), realtime.EventConversationRead, convID)
}

// CreateConversation opens a conversation between the user and the given
// people of the same studio.
func (s *MessagingService) CreateConversation(ctx context.Context, sess *session.Session, participantIDs []uuid.UUID) (uuid.UUID, error) {
	members := distinctIDs(append([]uuid.UUID{sess.UserID}, participantIDs...))
	if len(members) < 2 {
		return uuid.Nil, invalid("participant_ids", "please select at least one other participant")
	}

	contacts, err := s.conversations.Contacts(ctx, sess.StudioID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("get contacts: %w", err)
	}
	inStudio := make(map[uuid.UUID]struct{}, len(contacts))
	for _, c := range contacts {
		inStudio[c.UserID] = struct{}{}
	}
	for _, id := range members[1:] {
		if _, ok := inStudio[id]; !ok {
			return uuid.Nil, invalid("participant_ids", "participants must belong to your studio")
		}
	}

	id, err := s.conversations.Create(ctx, sess.UserID, members)
	if err != nil {
		return uuid.Nil, fmt.Errorf("create conversation: %w", err)
	}
	for _, m := range members {
		s.publish(ctx, realtime.ConversationsTopic(m), realtime.EventConversationUpdated, id)
	}

	s.logger.Info("Conversation created",
		zap.String("conversation_id", id.String()),
		zap.Int("participants", len(members)))
	return id, nil
}

// Contacts lists the studio members the user can write to.
func (s *MessagingService) Contacts(ctx context.Context, sess *session.Session) ([]model.Participant, error) {
	all, err := s.conversations.Contacts(ctx, sess.StudioID)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	out := make([]model.Participant, 0, len(all))
	for _, c := range all {
		if c.UserID != sess.UserID {
			out = append(out, c)
		}
	}
	return out, nil
}

// WatchConversations streams changes to the user's conversation list.
func (s *MessagingService) WatchConversations(ctx context.Context, sess *session.Session) (*realtime.Subscription, error) {
	return s.subscriber.Subscribe(ctx, realtime.ConversationsTopic(sess.UserID))
}

// WatchMessages streams changes to one thread.
func (s *MessagingService) WatchMessages(ctx context.Context, sess *session.Session, convID uuid.UUID) (*realtime.Subscription, error) {
	if _, err := s.participants(ctx, sess, convID); err != nil {
		return nil, err
	}
	return s.subscriber.Subscribe(ctx, realtime.MessagesTopic(convID))
}

// participants returns the members of the conversation, failing unless the
// session user is one of them.
func (s *MessagingService) participants(ctx context.Context, sess *session.Session, convID uuid.UUID) ([]uuid.UUID, error) {
	ids, err := s.conversations.ParticipantIDs(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("get participants: %w", err)
	}
	if !slices.Contains(ids, sess.UserID) {
		return nil, notFound("conversation")
	}
	return ids, nil
}

func (s *MessagingService) publish(ctx context.Context, topic string, typ realtime.EventType, convID uuid.UUID) {
	ev := realtime.Event{Type: typ, ConversationID: convID}
	if err := s.publisher.Publish(ctx, topic, ev); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("topic", topic), zap.Error(err))
	}
}

func (s *MessagingService) notifyOthers(ctx context.Context, sess *session.Session, members []uuid.UUID, content string) {
	others := make([]uuid.UUID, 0, len(members))
	for _, id := range members {
		if id != sess.UserID {
			others = append(others, id)
		}
	}
	if len(others) == 0 {
		return
	}

	chats, err := s.users.TelegramChats(ctx, others)
	if err != nil {
		s.logger.Warn("Failed to look up telegram chats", zap.Error(err))
		return
	}
	text := fmt.Sprintf("New message from %s:\n%s", sess.Name, content)
	for userID, chatID := range chats {
		if err := s.notifier.Notify(ctx, chatID, text); err != nil {
			s.logger.Warn("Failed to notify participant",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
}
