package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/huddle-api/internal/dto"
	"github.com/noah-isme/huddle-api/internal/models"
	"github.com/noah-isme/huddle-api/internal/repository"
)

// UserService keeps workspace users, presence and status up to date.
type UserService interface {
	Sync(ctx context.Context, userID uint, name string) error
	List(ctx context.Context) ([]dto.UserResponse, error)
	UpdatePresence(ctx context.Context, userID uint, payload dto.PresenceRequest) (dto.UserResponse, error)
	Heartbeat(ctx context.Context, userID uint) (dto.UserResponse, error)
	UpdateStatus(ctx context.Context, userID uint, payload dto.StatusRequest) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewUserService constructs a user service.
func NewUserService(users repository.UserRepository, validate *validator.Validate, logger zerolog.Logger) UserService {
	return &userService{
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "user_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/huddle-api/internal/service/user"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Sync records the identity supplied by the token. A known user without a
// name claim is left as is.
func (s *userService) Sync(ctx context.Context, userID uint, name string) error {
	if userID == 0 {
		return validationError("user_id", "is required")
	}

	name = plainText(s.sanitizer, name)
	if name == "" {
		_, err := s.users.FindByID(ctx, userID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		name = fmt.Sprintf("User %d", userID)
	}

	user := models.User{
		ID:       userID,
		Name:     name,
		Presence: models.PresenceOnline,
		LastSeen: s.now(),
	}
	return s.users.Upsert(ctx, &user)
}

func (s *userService) List(ctx context.Context) ([]dto.UserResponse, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponseSlice(users), nil
}

func (s *userService) UpdatePresence(ctx context.Context, userID uint, payload dto.PresenceRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}
	if !models.IsValidPresence(payload.Presence) {
		return dto.UserResponse{}, validationError("presence", "must be online, away or offline")
	}
	return s.setPresence(ctx, userID, payload.Presence)
}

// Heartbeat marks the caller online and refreshes last seen.
func (s *userService) Heartbeat(ctx context.Context, userID uint) (dto.UserResponse, error) {
	return s.setPresence(ctx, userID, models.PresenceOnline)
}

func (s *userService) setPresence(ctx context.Context, userID uint, presence string) (dto.UserResponse, error) {
	ctx, span := s.tracer.Start(ctx, "users.presence", trace.WithAttributes(
		attribute.Int("user_id", int(userID)),
		attribute.String("presence", presence),
	))
	defer span.End()

	if err := s.users.UpdatePresence(ctx, userID, presence, s.now()); err != nil {
		return dto.UserResponse{}, translateStoreError(err, "user")
	}
	return s.reload(ctx, userID)
}

func (s *userService) UpdateStatus(ctx context.Context, userID uint, payload dto.StatusRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UserResponse{}, err
	}

	emoji := strings.TrimSpace(payload.StatusEmoji)
	if emoji != "" && !isSingleEmoji(emoji) {
		return dto.UserResponse{}, validationError("status_emoji", "must be a single emoji")
	}
	status := plainText(s.sanitizer, payload.Status)

	if err := s.users.UpdateStatus(ctx, userID, status, emoji); err != nil {
		return dto.UserResponse{}, translateStoreError(err, "user")
	}
	return s.reload(ctx, userID)
}

func (s *userService) reload(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, translateStoreError(err, "user")
	}
	return dto.NewUserResponse(user), nil
}
