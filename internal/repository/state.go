package repository

import (
	"context"
	"time"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// StateRepository covers the hot-path caches and counters kept in Redis.
// Nothing here is authoritative: the coordinator owns live room state, the
// database owns history. Losing a key degrades to a database read.
type StateRepository interface {
	// === Recent chat window ===

	// PushRecentMessage appends msg to the room's recent-chat list and
	// trims it to the retained window.
	PushRecentMessage(ctx context.Context, roomID string, msg domain.ChatMessage) error

	// GetRecentMessages returns up to limit cached messages in ascending
	// order. Returns ErrNotFound when the room has no cached window.
	GetRecentMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error)

	// === Document snapshot cache ===

	// SetDocumentCache stores the latest accepted content/version for
	// dashboard-style reads that tolerate staleness.
	SetDocumentCache(ctx context.Context, roomID string, content string, version uint64, ttl time.Duration) error

	// GetDocumentCache returns the cached snapshot or ErrNotFound.
	GetDocumentCache(ctx context.Context, roomID string) (string, uint64, error)

	// CleanupRoomState removes all keys for a room (after deactivation).
	CleanupRoomState(ctx context.Context, roomID string) error

	// === Rate limiting ===

	// CheckRateLimit increments the counter for key and reports whether
	// the limit was exceeded within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
