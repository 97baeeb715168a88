package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// MessageRepository is a mock of repository.MessageRepository.
type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, roomID, limit)
	var msgs []domain.ChatMessage
	if args.Get(0) != nil {
		msgs = args.Get(0).([]domain.ChatMessage)
	}
	return msgs, args.Error(1)
}
