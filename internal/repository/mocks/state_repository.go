package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// StateRepository is a mock of repository.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) PushRecentMessage(ctx context.Context, roomID string, msg domain.ChatMessage) error {
	args := m.Called(ctx, roomID, msg)
	return args.Error(0)
}

func (m *StateRepository) GetRecentMessages(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []domain.ChatMessage
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.ChatMessage)
	}
	return msgs, args.Error(1)
}

func (m *StateRepository) SetDocumentCache(ctx context.Context, roomID string, content string, version uint64, ttl time.Duration) error {
	args := m.Called(ctx, roomID, content, version, ttl)
	return args.Error(0)
}

func (m *StateRepository) GetDocumentCache(ctx context.Context, roomID string) (string, uint64, error) {
	args := m.Called(ctx, roomID)
	return args.String(0), args.Get(1).(uint64), args.Error(2)
}

func (m *StateRepository) CleanupRoomState(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
