package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChannelService struct {
	channels ChannelStore
	classes  ClassStore
	logger   *zap.Logger
}

func NewChannelService(channels ChannelStore, classes ClassStore, logger *zap.Logger) *ChannelService {
	return &ChannelService{channels: channels, classes: classes, logger: logger}
}

type ChannelInput struct {
	ClassID     uuid.UUID `json:"class_id"`
	Name        string    `json:"name" validate:"notblank,max=200"`
	Description string    `json:"description" validate:"max=1000"`
}

func (s *ChannelService) CreateChannel(ctx context.Context, sess *session.Session, in ChannelInput) (*model.Channel, error) {
	if sess.Role != model.RoleOwner {
		return nil, forbidden("only owners can create channels")
	}
	if in.ClassID == uuid.Nil {
		return nil, invalid("class_id", "please select a class")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	class, err := s.classes.GetByID(ctx, in.ClassID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	if class == nil || class.StudioID != sess.StudioID {
		return nil, notFound("class")
	}

	ch := &model.Channel{
		ClassID:     class.ID,
		ClassName:   class.Name,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedBy:   sess.UserID,
	}
	if err := s.channels.Create(ctx, ch); err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	s.logger.Info("Channel created",
		zap.String("channel_id", ch.ID.String()),
		zap.String("class_id", class.ID.String()))
	return ch, nil
}

// ListChannels returns the channels of the classes the session takes part in.
func (s *ChannelService) ListChannels(ctx context.Context, sess *session.Session) ([]model.Channel, error) {
	chs, err := s.channels.ListVisible(ctx, audience(sess))
	if err != nil {
		return nil, fmt.Errorf("get channels: %w", err)
	}
	if chs == nil {
		chs = []model.Channel{}
	}
	return chs, nil
}

func (s *ChannelService) ListPosts(ctx context.Context, sess *session.Session, channelID uuid.UUID) ([]model.ChannelPost, error) {
	if err := s.checkMember(ctx, sess, channelID); err != nil {
		return nil, err
	}
	posts, err := s.channels.ListPosts(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get posts: %w", err)
	}
	if posts == nil {
		posts = []model.ChannelPost{}
	}
	return posts, nil
}

// CreatePost publishes to a channel. Parents only read.
func (s *ChannelService) CreatePost(ctx context.Context, sess *session.Session, channelID uuid.UUID, content string) (*model.ChannelPost, error) {
	if sess.Role == model.RoleParent {
		return nil, forbidden("parents cannot post to channels")
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "post cannot be empty")
	}
	if err := s.checkMember(ctx, sess, channelID); err != nil {
		return nil, err
	}

	p := &model.ChannelPost{ChannelID: channelID, AuthorID: sess.UserID, Content: content}
	if err := s.channels.CreatePost(ctx, p); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func (s *ChannelService) checkMember(ctx context.Context, sess *session.Session, channelID uuid.UUID) error {
	chs, err := s.channels.ListVisible(ctx, audience(sess))
	if err != nil {
		return fmt.Errorf("get channels: %w", err)
	}
	for _, ch := range chs {
		if ch.ID == channelID {
			return nil
		}
	}
	return notFound("channel")
}

func audience(sess *session.Session) repository.ChannelAudience {
	return repository.ChannelAudience{Role: sess.Role, StudioID: sess.StudioID, ProfileID: sess.ProfileID}
}
