package collab

import "github.com/tanishk-sarode/codechill-v2/internal/domain"

// Event is a server-to-client message: either a fan-out committed by a
// room's coordinator or a reply addressed to the requester. The transport
// adapter wraps each event in the wire envelope under its EventName.
type Event interface {
	EventName() string
}

// Sender delivers events to one connected participant. Implementations
// must not block; the hub client buffers and reports false when the
// client cannot keep up.
type Sender interface {
	Send(ev Event) bool
}

// RoomJoined is the join reply: the full current state the joiner needs
// to render the room without races.
type RoomJoined struct {
	RoomID         string               `json:"room_id"`
	Room           *domain.Room         `json:"room_data"`
	CurrentContent string               `json:"current_content"`
	ContentVersion uint64               `json:"content_version"`
	Participants   []domain.Participant `json:"participants"`
}

func (RoomJoined) EventName() string { return "room_joined" }

// UserJoined is fanned out to the other members when a participant joins.
type UserJoined struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	UserPicture string `json:"user_picture"`
	RoomID      string `json:"room_id"`
}

func (UserJoined) EventName() string { return "user_joined" }

// UserLeft is fanned out to the remaining members when a participant
// leaves or disconnects.
type UserLeft struct {
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	UserPicture string `json:"user_picture"`
	RoomID      string `json:"room_id"`
}

func (UserLeft) EventName() string { return "user_left" }

// CodeUpdated is fanned out to everyone except the author when a change
// proposal is accepted (the author already has the content locally and
// receives CodeChangeAck instead).
type CodeUpdated struct {
	Content        string                 `json:"content"`
	Version        uint64                 `json:"version"`
	UserID         string                 `json:"user_id"`
	CursorPosition *domain.CursorPosition `json:"cursor_position,omitempty"`
}

func (CodeUpdated) EventName() string { return "code_updated" }

// CodeChangeAck acknowledges an accepted proposal to its author.
type CodeChangeAck struct {
	Version uint64 `json:"version"`
	Success bool   `json:"success"`
}

func (CodeChangeAck) EventName() string { return "code_change_ack" }

// CodeConflict rejects a stale proposal, handing the author the
// authoritative state to rebase onto. Sent to the author only.
type CodeConflict struct {
	CurrentContent string `json:"current_content"`
	CurrentVersion uint64 `json:"current_version"`
}

func (CodeConflict) EventName() string { return "code_conflict" }

// CursorMoved is best-effort presence data fanned out to the other
// members. It is not versioned against the document.
type CursorMoved struct {
	UserID         string                 `json:"user_id"`
	CursorPosition domain.CursorPosition  `json:"cursor_position"`
	Selection      *domain.SelectionRange `json:"selection,omitempty"`
}

func (CursorMoved) EventName() string { return "cursor_moved" }

// NewMessage is fanned out to all members including the sender, so every
// client renders the same chat order.
type NewMessage struct {
	domain.ChatMessage
}

func (NewMessage) EventName() string { return "new_message" }

// ExecutionStarted announces a new execution job to the whole room.
type ExecutionStarted struct {
	ExecutionID string `json:"execution_id"`
	UserID      string `json:"user_id"`
	Language    string `json:"language"`
}

func (ExecutionStarted) EventName() string { return "execution_started" }

// ExecutionQueued acknowledges the job to its requester.
type ExecutionQueued struct {
	ExecutionID string `json:"execution_id"`
	Message     string `json:"message"`
}

func (ExecutionQueued) EventName() string { return "execution_queued" }

// ExecutionFinished relays a terminal status transition reported by the
// remote runner to the whole room.
type ExecutionFinished struct {
	ExecutionID string  `json:"execution_id"`
	Status      string  `json:"status"`
	Output      string  `json:"output,omitempty"`
	ErrorOutput string  `json:"error_output,omitempty"`
	ExitCode    int     `json:"exit_code"`
	Duration    float64 `json:"duration"`
}

func (e ExecutionFinished) EventName() string {
	if e.Status == domain.ExecutionFailed {
		return "execution_failed"
	}
	return "execution_completed"
}

// RoomState is the full snapshot reply for get_room_state.
type RoomState struct {
	Room           *domain.Room         `json:"room"`
	Content        string               `json:"content"`
	Version        uint64               `json:"version"`
	Participants   []domain.Participant `json:"participants"`
	RecentMessages []domain.ChatMessage `json:"recent_messages"`
}

func (RoomState) EventName() string { return "room_state" }
