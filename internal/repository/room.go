// Package repository defines the storage interfaces consumed by the service
// layer and the room coordinator. Implementations live under
// internal/infra.
package repository

import (
	"context"
	"time"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// RoomQuery narrows ListRooms results. Zero values mean "no filter".
type RoomQuery struct {
	Search   string // matches name or description, case-insensitive
	Language string
	Limit    int
}

// RoomRepository stores room metadata and the write-behind copy of the
// document. The coordinator is the only writer of content/version while a
// room is active; UpdateContent must therefore never move a room backwards.
type RoomRepository interface {
	// FindByID returns the room or ErrRoomNotFound.
	FindByID(ctx context.Context, id string) (*domain.Room, error)

	// Save creates the room if absent, otherwise updates it.
	Save(ctx context.Context, room *domain.Room) error

	// ListPublic returns active public rooms matching q, most recently
	// active first.
	ListPublic(ctx context.Context, q RoomQuery) ([]domain.Room, error)

	// UpdateContent persists an accepted document state. Implementations
	// guard with "content_version < ?" so a delayed write-behind task can
	// never clobber a newer accepted version.
	UpdateContent(ctx context.Context, id string, content string, version uint64, at time.Time) error

	// TouchActivity bumps last_activity.
	TouchActivity(ctx context.Context, id string, at time.Time) error

	// SetActive flips the is_active flag (room deactivation, not deletion).
	SetActive(ctx context.Context, id string, active bool) error

	// FindIdleBefore returns active rooms whose last_activity is older
	// than cutoff, for the periodic cleanup task.
	FindIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error)
}

// UserRepository stores registered users.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

// MessageRepository stores the append-only chat log.
type MessageRepository interface {
	Save(ctx context.Context, msg *domain.ChatMessage) error

	// ListRecent returns up to limit messages for the room in ascending
	// creation order (oldest of the window first).
	ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)
}

// ExecutionRepository stores execution job records.
type ExecutionRepository interface {
	Save(ctx context.Context, exec *domain.Execution) error
	FindByID(ctx context.Context, id string) (*domain.Execution, error)
	Update(ctx context.Context, exec *domain.Execution) error
}
