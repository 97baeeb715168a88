// Package tasks defines the background task types exchanged between the
// API process and the asynq worker, plus the client-side queue adapter.
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// Task type identifiers. The worker registers a handler per type.
const (
	TypeDocumentPersist = "document:persist"
	TypeChatPersist     = "chat:persist"
	TypeExecutionRun    = "execution:run"
	TypeRoomCleanup     = "room:cleanup"
)

// DocumentPersistPayload carries one accepted document state. Version lets
// the handler's guarded update discard stale tasks that arrive late.
type DocumentPersistPayload struct {
	RoomID   string    `json:"room_id"`
	Content  string    `json:"content"`
	Version  uint64    `json:"version"`
	Accepted time.Time `json:"accepted"`
}

// ChatPersistPayload carries one chat message to append to the log.
type ChatPersistPayload struct {
	Message domain.ChatMessage `json:"message"`
}

// ExecutionRunPayload names the execution record the worker should run.
// The source and language live in the record, not the task.
type ExecutionRunPayload struct {
	ExecutionID string `json:"execution_id"`
}

// RoomCleanupPayload configures a periodic cleanup sweep.
type RoomCleanupPayload struct {
	IdleAfter time.Duration `json:"idle_after"`
}

func NewDocumentPersistTask(roomID, content string, version uint64, at time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(DocumentPersistPayload{
		RoomID:   roomID,
		Content:  content,
		Version:  version,
		Accepted: at,
	})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal document persist payload: %w", err)
	}
	return asynq.NewTask(TypeDocumentPersist, payload), nil
}

func NewChatPersistTask(msg domain.ChatMessage) (*asynq.Task, error) {
	payload, err := json.Marshal(ChatPersistPayload{Message: msg})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal chat persist payload: %w", err)
	}
	return asynq.NewTask(TypeChatPersist, payload), nil
}

func NewExecutionRunTask(executionID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExecutionRunPayload{ExecutionID: executionID})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal execution run payload: %w", err)
	}
	return asynq.NewTask(TypeExecutionRun, payload), nil
}

func NewRoomCleanupTask(idleAfter time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(RoomCleanupPayload{IdleAfter: idleAfter})
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal room cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeRoomCleanup, payload), nil
}

// AsynqQueue implements the coordinator's TaskQueue on an asynq client.
type AsynqQueue struct {
	client *asynq.Client
}

func NewAsynqQueue(client *asynq.Client) *AsynqQueue {
	if client == nil {
		panic("asynq client cannot be nil for AsynqQueue")
	}
	return &AsynqQueue{client: client}
}

// EnqueueDocumentPersist queues a guarded write of the accepted state.
// Retries are cheap: a stale retry is discarded by the version guard.
func (q *AsynqQueue) EnqueueDocumentPersist(ctx context.Context, roomID, content string, version uint64, at time.Time) error {
	task, err := NewDocumentPersistTask(roomID, content, version, at)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("tasks: enqueue document persist for room %s (v%d): %w", roomID, version, err)
	}
	return nil
}

func (q *AsynqQueue) EnqueueChatPersist(ctx context.Context, msg domain.ChatMessage) error {
	task, err := NewChatPersistTask(msg)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue("default"), asynq.MaxRetry(5))
	if err != nil {
		return fmt.Errorf("tasks: enqueue chat persist for message %s: %w", msg.ID, err)
	}
	return nil
}

func (q *AsynqQueue) EnqueueExecution(ctx context.Context, executionID string) error {
	task, err := NewExecutionRunTask(executionID)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(3), asynq.Timeout(2*time.Minute))
	if err != nil {
		return fmt.Errorf("tasks: enqueue execution %s: %w", executionID, err)
	}
	return nil
}
