package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// Room name bounds enforced at creation.
const (
	minRoomNameLength = 1
	maxRoomNameLength = 100
)

// CreateRoomInput carries the creation parameters. Zero values take
// defaults: language javascript, capacity DefaultParticipants.
type CreateRoomInput struct {
	Name            string
	Description     string
	Language        string
	IsPrivate       bool
	Password        string
	MaxParticipants int
}

// RoomService handles room lifecycle outside of live collaboration.
type RoomService struct {
	roomRepo repository.RoomRepository
}

func NewRoomService(roomRepo repository.RoomRepository) *RoomService {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	return &RoomService{roomRepo: roomRepo}
}

// CreateRoom validates the input and persists a new room owned by ownerID.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID string, in CreateRoomInput) (*domain.Room, error) {
	logCtx := logrus.WithField("owner_id", ownerID)

	name := strings.TrimSpace(in.Name)
	if len(name) < minRoomNameLength || len(name) > maxRoomNameLength {
		return nil, fmt.Errorf("%w: room name must be %d-%d characters", ErrInvalidInput, minRoomNameLength, maxRoomNameLength)
	}
	language := in.Language
	if language == "" {
		language = "javascript"
	}
	if !domain.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, language)
	}
	if in.IsPrivate && in.Password == "" {
		return nil, fmt.Errorf("%w: private rooms require a password", ErrInvalidInput)
	}

	maxParticipants := in.MaxParticipants
	if maxParticipants == 0 {
		maxParticipants = domain.DefaultParticipants
	}
	if maxParticipants < domain.MinParticipants {
		maxParticipants = domain.MinParticipants
	}
	if maxParticipants > domain.MaxParticipants {
		maxParticipants = domain.MaxParticipants
	}

	var passwordHash string
	if in.IsPrivate {
		hashBytes, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			logCtx.WithError(err).Error("Failed to hash room password")
			return nil, ErrInternalServer
		}
		passwordHash = string(hashBytes)
	}

	now := time.Now().UTC()
	room := &domain.Room{
		ID:              uuid.NewString(),
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		Language:        language,
		IsPrivate:       in.IsPrivate,
		PasswordHash:    passwordHash,
		MaxParticipants: maxParticipants,
		OwnerID:         ownerID,
		IsActive:        true,
		LastActivity:    now,
	}

	if err := s.roomRepo.Save(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to save new room to database")
		return nil, ErrInternalServer
	}

	logCtx.WithField("room_id", room.ID).Info("Room created successfully")
	return room, nil
}

// GetRoom returns metadata for one active room.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	logCtx := logrus.WithField("room_id", roomID)
	room, err := s.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			logCtx.Warn("GetRoom: room not found")
			return nil, ErrRoomNotFound
		}
		logCtx.WithError(err).Error("GetRoom: repository error")
		return nil, ErrInternalServer
	}
	if !room.IsActive {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// ListPublicRooms returns active public rooms, most recently active first.
func (s *RoomService) ListPublicRooms(ctx context.Context, limit int) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListPublic(ctx, repository.RoomQuery{Limit: limit})
	if err != nil {
		logrus.WithError(err).Error("ListPublicRooms: repository error")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// SearchRooms filters public rooms by a free-text term and optional
// language tag.
func (s *RoomService) SearchRooms(ctx context.Context, search, language string, limit int) ([]domain.Room, error) {
	if language != "" && !domain.IsSupportedLanguage(language) {
		return nil, fmt.Errorf("%w: unsupported language %q", ErrInvalidInput, language)
	}
	rooms, err := s.roomRepo.ListPublic(ctx, repository.RoomQuery{
		Search:   strings.TrimSpace(search),
		Language: language,
		Limit:    limit,
	})
	if err != nil {
		logrus.WithError(err).Error("SearchRooms: repository error")
		return nil, ErrInternalServer
	}
	return rooms, nil
}

// TrendingRooms returns the most recently active public rooms. Listing
// order already ranks by last_activity, so trending is a capped list.
func (s *RoomService) TrendingRooms(ctx context.Context, limit int) ([]domain.Room, error) {
	if limit <= 0 || limit > 20 {
		limit = 10
	}
	return s.ListPublicRooms(ctx, limit)
}
