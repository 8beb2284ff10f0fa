package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/realtime"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/schedule"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
)

// Storage contracts the services depend on. The repository package
// implements them against PostgreSQL.

type UserStore interface {
	Register(ctx context.Context, user *model.User, profile *model.Profile) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	FindProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	SetTelegramLinkCode(ctx context.Context, userID uuid.UUID, code string) error
	LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error)
	GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error)
	TelegramChats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error)
}

type SessionStore interface {
	Save(ctx context.Context, sess *session.Session) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

type TokenIssuer interface {
	Issue(sess *session.Session) (string, error)
	Parse(raw string) (string, error)
}

type StudioStore interface {
	List(ctx context.Context) ([]model.Studio, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Studio, error)
	Update(ctx context.Context, s *model.Studio) error
	ListTeachers(ctx context.Context, studioID uuid.UUID) ([]model.Teacher, error)
	ListParents(ctx context.Context, studioID uuid.UUID) ([]model.Parent, error)
	GetParent(ctx context.Context, id uuid.UUID) (*model.Parent, error)
	ListLocations(ctx context.Context, studioID uuid.UUID) ([]model.Location, error)
	CreateLocation(ctx context.Context, l *model.Location) error
	DeleteLocation(ctx context.Context, studioID, id uuid.UUID) (bool, error)
}

type StudentStore interface {
	Create(ctx context.Context, s *model.Student) error
	ListByStudio(ctx context.Context, studioID uuid.UUID) ([]model.Student, error)
	ListByParent(ctx context.Context, parentID uuid.UUID) ([]model.Student, error)
	CountInStudio(ctx context.Context, studioID uuid.UUID, ids []uuid.UUID) (int, error)
}

type ClassStore interface {
	Create(ctx context.Context, c *model.Class, dates []time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Class, error)
	ListByStudio(ctx context.Context, studioID uuid.UUID) ([]model.Class, error)
	ListRecurring(ctx context.Context, since time.Time) ([]model.Class, error)
	ListInstances(ctx context.Context, f repository.InstanceFilter) ([]model.ResolvedInstance, error)
	GetInstance(ctx context.Context, id uuid.UUID) (*model.ClassInstance, error)
	InstanceDates(ctx context.Context, classID uuid.UUID) ([]time.Time, error)
	ExceptionDates(ctx context.Context, classID uuid.UUID) ([]time.Time, error)
	EditInstances(ctx context.Context, plan schedule.Plan, ch model.ClassChanges) (int64, error)
	EditTemplate(ctx context.Context, c *model.Class, ch model.ClassChanges, diff schedule.Diff) (int64, error)
	DeleteInstances(ctx context.Context, plan schedule.Plan, opts repository.DeleteOptions) (int64, error)
	SyncInstances(ctx context.Context, classID uuid.UUID, diff schedule.Diff) (created, deleted int64, err error)
	EnrolledChildren(ctx context.Context, parentID uuid.UUID) (map[uuid.UUID][]string, error)
}

type AttendanceStore interface {
	EnsureEnrollments(ctx context.Context, instanceID, classID uuid.UUID) (int64, error)
	Roster(ctx context.Context, instanceID uuid.UUID) ([]model.RosterEntry, error)
	SaveMarks(ctx context.Context, instanceID uuid.UUID, marks []model.AttendanceMark) error
}

type ConversationStore interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]model.Conversation, error)
	ParticipantIDs(ctx context.Context, convID uuid.UUID) ([]uuid.UUID, error)
	Messages(ctx context.Context, convID uuid.UUID) ([]model.Message, error)
	Send(ctx context.Context, m *model.Message) error
	MarkRead(ctx context.Context, convID, userID uuid.UUID) error
	Create(ctx context.Context, createdBy uuid.UUID, participants []uuid.UUID) (uuid.UUID, error)
	Contacts(ctx context.Context, studioID uuid.UUID) ([]model.Participant, error)
}

type InvoiceStore interface {
	Create(ctx context.Context, inv *model.Invoice) error
	List(ctx context.Context, studioID uuid.UUID, f model.InvoiceFilter) ([]model.Invoice, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	StatusCounts(ctx context.Context, studioID uuid.UUID) (map[model.InvoiceStatus]int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.InvoiceStatus) error
	MarkOverdue(ctx context.Context, today time.Time) (int64, error)
	PlanEnrollments(ctx context.Context, parentID uuid.UUID) ([]model.PlanEnrollment, error)
}

type ChannelStore interface {
	Create(ctx context.Context, ch *model.Channel) error
	ListVisible(ctx context.Context, a repository.ChannelAudience) ([]model.Channel, error)
	ListPosts(ctx context.Context, channelID uuid.UUID) ([]model.ChannelPost, error)
	CreatePost(ctx context.Context, p *model.ChannelPost) error
}

// Publisher fans change notifications out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, ev realtime.Event) error
}

// Subscriber opens live change streams.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (*realtime.Subscription, error)
}

// Notifier delivers a text to a linked Telegram chat.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, text string) error
}
