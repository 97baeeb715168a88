// Package hub is the WebSocket transport adapter. It decodes the wire
// envelope, dispatches requests to the room coordinator, and pumps
// coordinator events back out to the connection.
package hub

import (
	"encoding/json"
	"fmt"

	"github.com/tanishk-sarode/codechill-v2/internal/collab"
	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// Envelope is the wire frame in both directions: a tag naming the event
// and a payload shaped by that tag.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client-to-server event tags.
const (
	EventJoinRoom     = "join_room"
	EventLeaveRoom    = "leave_room"
	EventCodeChange   = "code_change"
	EventCursorUpdate = "cursor_update"
	EventSendMessage  = "send_message"
	EventExecuteCode  = "execute_code"
	EventGetRoomState = "get_room_state"
)

// JoinRoomRequest asks to enter a room. Password is ignored for public
// rooms.
type JoinRoomRequest struct {
	RoomID   string `json:"room_id"`
	Password string `json:"password"`
}

// CodeChangeRequest proposes replacing the document content. Version is
// the version the client's copy was based on.
type CodeChangeRequest struct {
	Content        string                 `json:"content"`
	Version        uint64                 `json:"version"`
	CursorPosition *domain.CursorPosition `json:"cursor_position"`
}

// CursorUpdateRequest reports a cursor move without a content change.
type CursorUpdateRequest struct {
	CursorPosition domain.CursorPosition  `json:"cursor_position"`
	Selection      *domain.SelectionRange `json:"selection"`
}

// SendMessageRequest posts a chat message to the current room.
type SendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"message_type"`
}

// ExecuteCodeRequest asks to run code on the remote runner.
type ExecuteCodeRequest struct {
	SourceCode string `json:"source_code"`
	Language   string `json:"language"`
	Input      string `json:"input"`
}

// GetRoomStateRequest asks for a full state snapshot of a room.
type GetRoomStateRequest struct {
	RoomID string `json:"room_id"`
}

// ErrorEvent is the transport-level failure reply, addressed only to the
// requester.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string { return "error" }

// EncodeEvent wraps ev in the wire envelope.
func EncodeEvent(ev collab.Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("hub: marshal %s payload: %w", ev.EventName(), err)
	}
	frame, err := json.Marshal(Envelope{Event: ev.EventName(), Data: data})
	if err != nil {
		return nil, fmt.Errorf("hub: marshal %s envelope: %w", ev.EventName(), err)
	}
	return frame, nil
}
