package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/tasks"
)

// ChatPersistHandler appends fanned-out chat messages to the durable log.
type ChatPersistHandler struct {
	msgRepo repository.MessageRepository
}

func NewChatPersistHandler(msgRepo repository.MessageRepository) *ChatPersistHandler {
	if msgRepo == nil {
		panic("MessageRepository cannot be nil for ChatPersistHandler")
	}
	return &ChatPersistHandler{msgRepo: msgRepo}
}

func (h *ChatPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ChatPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal chat persist payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":  t.Type(),
		"room_id":    payload.Message.RoomID,
		"message_id": payload.Message.ID,
	})

	if err := h.msgRepo.Save(ctx, &payload.Message); err != nil {
		// A redelivered task hits the primary key; that is success, not
		// an error worth retrying.
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Debug("Chat message already persisted")
			return nil
		}
		logCtx.WithError(err).Error("Failed to persist chat message")
		return fmt.Errorf("persist chat message %s: %w", payload.Message.ID, err)
	}

	logCtx.Debug("Chat message persisted")
	return nil
}
