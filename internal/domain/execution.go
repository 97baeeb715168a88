package domain

import "time"

// Execution job states. Transitions are reported by the remote runner and
// only relayed by the sync core: queued -> running -> completed|failed.
const (
	ExecutionQueued    = "queued"
	ExecutionRunning   = "running"
	ExecutionCompleted = "completed"
	ExecutionFailed    = "failed"
)

// MaxSourceLength bounds the source code accepted for execution.
const MaxSourceLength = 64 * 1024

// Execution is a code-execution job associated with a room. The server
// never runs code itself; it records the job, hands it to the remote
// runner, and broadcasts the status transitions the runner reports.
type Execution struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	RoomID      string `gorm:"type:varchar(36);not null;index" json:"room_id"`
	RequesterID string `gorm:"type:varchar(36);not null;index" json:"user_id"`

	Language   string `gorm:"size:50;not null" json:"language"`
	SourceCode string `gorm:"type:text;not null" json:"source_code"`
	Input      string `gorm:"type:text" json:"input"`

	Status      string  `gorm:"size:20;not null;default:queued" json:"status"`
	Output      string  `gorm:"type:text" json:"output"`
	ErrorOutput string  `gorm:"type:text" json:"error_output"`
	ExitCode    int     `json:"exit_code"`
	Duration    float64 `json:"duration"` // seconds, as reported by the runner

	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
