package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/tasks"
)

// defaultIdleAfter is how long a room may sit inactive before a sweep
// deactivates it.
const defaultIdleAfter = 24 * time.Hour

// RoomCleanupHandler deactivates rooms that have been idle past the
// threshold and still have no participants, then drops their cached
// state.
type RoomCleanupHandler struct {
	roomRepo    repository.RoomRepository
	state       repository.StateRepository
	coordinator *collab.Coordinator
}

func NewRoomCleanupHandler(roomRepo repository.RoomRepository, state repository.StateRepository, coordinator *collab.Coordinator) *RoomCleanupHandler {
	if roomRepo == nil || state == nil || coordinator == nil {
		panic("all dependencies must be non-nil for RoomCleanupHandler")
	}
	return &RoomCleanupHandler{
		roomRepo:    roomRepo,
		state:       state,
		coordinator: coordinator,
	}
}

func (h *RoomCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.RoomCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal room cleanup payload: %v: %w", err, asynq.SkipRetry)
	}
	idleAfter := payload.IdleAfter
	if idleAfter <= 0 {
		idleAfter = defaultIdleAfter
	}

	logCtx := logrus.WithField("task_type", t.Type())
	cutoff := time.Now().UTC().Add(-idleAfter)

	rooms, err := h.roomRepo.FindIdleBefore(ctx, cutoff)
	if err != nil {
		logCtx.WithError(err).Error("Failed to list idle rooms")
		return fmt.Errorf("list idle rooms: %w", err)
	}

	cleaned := 0
	for _, room := range rooms {
		// Occupied rooms get a pass no matter how old last_activity is;
		// the write-behind of it may simply be lagging.
		if h.coordinator.Registry().Count(room.ID) > 0 {
			continue
		}
		if err := h.roomRepo.SetActive(ctx, room.ID, false); err != nil {
			logCtx.WithError(err).WithField("room_id", room.ID).Warn("Failed to deactivate idle room")
			continue
		}
		h.coordinator.DeactivateRoom(room.ID)
		if err := h.state.CleanupRoomState(ctx, room.ID); err != nil {
			logCtx.WithError(err).WithField("room_id", room.ID).Warn("Failed to clean cached room state")
		}
		cleaned++
	}

	logCtx.WithFields(logrus.Fields{
		"candidates": len(rooms),
		"cleaned":    cleaned,
	}).Info("Idle room sweep finished")
	return nil
}
