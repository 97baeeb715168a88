// Package worker runs the asynq consumer side: write-behind persistence
// of documents and chat, execution dispatch to the remote runner, and the
// periodic idle-room cleanup.
package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
	"github.com/tanishk-sarode/codechill-v2/internal/tasks"
)

// WorkerServer wraps the asynq server plus its registered handlers.
type WorkerServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logrus.Entry
}

// Deps collects everything the task handlers need.
type Deps struct {
	RoomRepo    repository.RoomRepository
	MessageRepo repository.MessageRepository
	ExecRepo    repository.ExecutionRepository
	State       repository.StateRepository
	Coordinator *collab.Coordinator
	Runner      Runner
}

// NewWorkerServer builds the consumer. Queue weights prioritize document
// persistence and executions over chat and cleanup.
func NewWorkerServer(redisOpt asynq.RedisClientOpt, deps Deps, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retryCount, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				logEntry.WithFields(logrus.Fields{
					"task_type": task.Type(),
					"retries":   retryCount,
					"max_retry": maxRetry,
				}).Errorf("Task failed: %v", err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeDocumentPersist, NewDocumentPersistHandler(deps.RoomRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeChatPersist, NewChatPersistHandler(deps.MessageRepo).ProcessTask)
	mux.HandleFunc(tasks.TypeExecutionRun, NewExecutionHandler(deps.ExecRepo, deps.Coordinator, deps.Runner).ProcessTask)
	mux.HandleFunc(tasks.TypeRoomCleanup, NewRoomCleanupHandler(deps.RoomRepo, deps.State, deps.Coordinator).ProcessTask)

	return &WorkerServer{
		server: server,
		mux:    mux,
		log:    logEntry,
	}
}

// Start runs the consumer loop. Call from its own goroutine.
func (ws *WorkerServer) Start() {
	ws.log.Info("Worker server starting...")
	if err := ws.server.Run(ws.mux); err != nil {
		if !errors.Is(err, asynq.ErrServerClosed) {
			ws.log.Fatalf("Could not run worker server: %v", err)
		}
		ws.log.Info("Worker server stopped.")
	}
}

// Shutdown drains in-flight tasks and stops the server.
func (ws *WorkerServer) Shutdown() {
	ws.log.Info("Shutting down worker server...")
	ws.server.Shutdown()
	ws.log.Info("Worker server shut down complete.")
}
