package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/tasks"
)

// ExecutionHandler drives one execution job: mark running, call the
// remote runner, record the result, and report the terminal transition
// back to the room.
type ExecutionHandler struct {
	execRepo    repository.ExecutionRepository
	coordinator *collab.Coordinator
	runner      Runner
}

func NewExecutionHandler(execRepo repository.ExecutionRepository, coordinator *collab.Coordinator, runner Runner) *ExecutionHandler {
	if execRepo == nil || coordinator == nil || runner == nil {
		panic("all dependencies must be non-nil for ExecutionHandler")
	}
	return &ExecutionHandler{
		execRepo:    execRepo,
		coordinator: coordinator,
		runner:      runner,
	}
}

func (h *ExecutionHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.ExecutionRunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal execution run payload: %v: %w", err, asynq.SkipRetry)
	}

	logCtx := logrus.WithFields(logrus.Fields{
		"task_type":    t.Type(),
		"execution_id": payload.ExecutionID,
	})

	exec, err := h.execRepo.FindByID(ctx, payload.ExecutionID)
	if err != nil {
		logCtx.WithError(err).Error("Execution record not found")
		return fmt.Errorf("load execution %s: %v: %w", payload.ExecutionID, err, asynq.SkipRetry)
	}
	if exec.Status != domain.ExecutionQueued {
		// Redelivery after a completed run.
		logCtx.WithField("status", exec.Status).Debug("Execution already processed")
		return nil
	}

	now := time.Now().UTC()
	exec.Status = domain.ExecutionRunning
	exec.StartedAt = &now
	if err := h.execRepo.Update(ctx, exec); err != nil {
		logCtx.WithError(err).Warn("Failed to mark execution running")
	}

	result, runErr := h.runner.Run(ctx, exec)

	completed := time.Now().UTC()
	exec.CompletedAt = &completed
	if runErr != nil {
		logCtx.WithError(runErr).Error("Runner call failed")
		exec.Status = domain.ExecutionFailed
		exec.ErrorOutput = "execution service unavailable"
		exec.ExitCode = -1
	} else {
		exec.Output = result.Output
		exec.ErrorOutput = result.ErrorOutput
		exec.ExitCode = result.ExitCode
		exec.Duration = result.Duration
		if result.ExitCode == 0 {
			exec.Status = domain.ExecutionCompleted
		} else {
			exec.Status = domain.ExecutionFailed
		}
	}

	if err := h.execRepo.Update(ctx, exec); err != nil {
		logCtx.WithError(err).Error("Failed to record execution result")
		return fmt.Errorf("record result for execution %s: %w", exec.ID, err)
	}

	report := collab.ExecutionFinished{
		ExecutionID: exec.ID,
		Status:      exec.Status,
		Output:      exec.Output,
		ErrorOutput: exec.ErrorOutput,
		ExitCode:    exec.ExitCode,
		Duration:    exec.Duration,
	}
	if err := h.coordinator.ReportExecution(ctx, exec.RoomID, report); err != nil {
		// The result is recorded; failing to relay it is not worth a
		// rerun of the job.
		logCtx.WithError(err).Warn("Failed to report execution result to room")
	}

	logCtx.WithField("status", exec.Status).Info("Execution processed")
	return nil
}
