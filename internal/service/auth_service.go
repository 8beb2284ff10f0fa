package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Freeeeeet/studio_manager/internal/model"
	"github.com/Freeeeeet/studio_manager/internal/repository"
	"github.com/Freeeeeet/studio_manager/internal/session"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users    UserStore
	studios  StudioStore
	sessions SessionStore
	tokens   TokenIssuer
	cache    *ReferenceCache
	logger   *zap.Logger
}

func NewAuthService(
	users UserStore,
	studios StudioStore,
	sessions SessionStore,
	tokens TokenIssuer,
	cache *ReferenceCache,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		studios:  studios,
		sessions: sessions,
		tokens:   tokens,
		cache:    cache,
		logger:   logger,
	}
}

type SignUpInput struct {
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Name     string     `json:"name" validate:"notblank,max=200"`
	Role     string     `json:"role" validate:"required"`
	StudioID *uuid.UUID `json:"studio_id"`
}

// SignUp creates the account and its role profile. Owners get a studio of
// their own; teachers and parents join the studio they picked.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*model.Profile, error) {
	in.Email = strings.TrimSpace(in.Email)
	if strings.TrimSpace(in.Role) == "" {
		return nil, invalid("role", "please select a role")
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, invalid("role", "please select a role")
	}

	profile := &model.Profile{
		Role:  role,
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(in.Email),
	}
	if role.NeedsStudio() {
		if in.StudioID == nil {
			return nil, invalid("studio_id", "please select a studio")
		}
		studio, err := s.studios.GetByID(ctx, *in.StudioID)
		if err != nil {
			return nil, fmt.Errorf("get studio: %w", err)
		}
		if studio == nil {
			return nil, invalid("studio_id", "studio does not exist")
		}
		profile.StudioID = &studio.ID
	}

	existing, err := s.users.GetByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{Email: profile.Email, PasswordHash: string(hash)}
	err = s.users.Register(ctx, user, profile)
	if errors.Is(err, repository.ErrEmailTaken) {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	if role == model.RoleTeacher {
		s.cache.InvalidateStudio(*profile.StudioID)
	}

	s.logger.Info("User signed up",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(role)))
	return profile, nil
}

// SignIn checks the credentials, resolves the role and opens a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (string, *session.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, invalid("email", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	profile, err := s.users.FindProfile(ctx, user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("resolve role: %w", err)
	}
	if profile == nil {
		return "", nil, ErrRoleNotFound
	}

	sess := session.New(user, profile)
	if err := s.sessions.Save(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("open session: %w", err)
	}
	token, err := s.tokens.Issue(sess)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User signed in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(profile.Role)))
	return token, sess, nil
}

// Authenticate maps a bearer token to its live session.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*session.Session, error) {
	sid, err := s.tokens.Parse(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	sess, err := s.sessions.Get(ctx, sid)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// SignOut ends the session and releases what was cached for it.
func (s *AuthService) SignOut(ctx context.Context, sess *session.Session) error {
	s.cache.Drop(sess.ID)
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	s.logger.Info("User signed out", zap.String("user_id", sess.UserID.String()))
	return nil
}

// ListStudios feeds the studio picker of the sign-up form.
func (s *AuthService) ListStudios(ctx context.Context) ([]model.Studio, error) {
	return s.studios.List(ctx)
}

// CreateTelegramLink issues the code the user sends to the bot with /start.
func (s *AuthService) CreateTelegramLink(ctx context.Context, sess *session.Session) (string, error) {
	code := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	if err := s.users.SetTelegramLinkCode(ctx, sess.UserID, code); err != nil {
		return "", fmt.Errorf("create telegram link: %w", err)
	}
	return code, nil
}

// LinkTelegram binds chatID to the user who issued code.
func (s *AuthService) LinkTelegram(ctx context.Context, code string, chatID int64) (*model.User, error) {
	user, err := s.users.LinkTelegram(ctx, strings.ToUpper(strings.TrimSpace(code)), chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("link code")
	}
	s.logger.Info("Telegram linked", zap.String("user_id", user.ID.String()), zap.Int64("chat_id", chatID))
	return user, nil
}

// SessionForChat builds a transient session for a linked Telegram chat.
func (s *AuthService) SessionForChat(ctx context.Context, chatID int64) (*session.Session, error) {
	user, err := s.users.GetByTelegramChatID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, notFound("linked account")
	}
	profile, err := s.users.FindProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	if profile == nil {
		return nil, ErrRoleNotFound
	}
	return session.New(user, profile), nil
}
