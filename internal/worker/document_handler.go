package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/tasks"
)

// DocumentPersistHandler writes accepted document states behind the
// coordinator. The repository's version guard makes redelivery and
// reordering harmless.
type DocumentPersistHandler struct {
	roomRepo repository.RoomRepository
}

func NewDocumentPersistHandler(roomRepo repository.RoomRepository) *DocumentPersistHandler {
	if roomRepo == nil {
		panic("RoomRepository cannot be nil for DocumentPersistHandler")
	}
	return &DocumentPersistHandler{roomRepo: roomRepo}
}

func (h *DocumentPersistHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.DocumentPersistPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal document persist payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type": t.Type(),
		"room_id":   payload.RoomID,
		"version":   payload.Version,
	})

	if err := h.roomRepo.UpdateContent(ctx, payload.RoomID, payload.Content, payload.Version, payload.Accepted); err != nil {
		logCtx.WithError(err).Error("Failed to persist document state")
		return fmt.Errorf("persist document for room %s (v%d): %w", payload.RoomID, payload.Version, err)
	}

	logCtx.Debug("Document state persisted")
	return nil
}
