package collab

import "errors"

// Failure taxonomy for room operations. All of these are reported only to
// the requesting participant, never broadcast to the room.
var (
	ErrRoomNotFound         = errors.New("collab: room not found")
	ErrRoomFull             = errors.New("collab: room is full")
	ErrInvalidPassword      = errors.New("collab: invalid room password")
	ErrNotInRoom            = errors.New("collab: user is not in the room")
	ErrExecutionUnavailable = errors.New("collab: execution worker unavailable")
	ErrInternal             = errors.New("collab: internal error")
)
