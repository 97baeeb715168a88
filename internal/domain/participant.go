package domain

import "time"

// Participant roles. Exactly one owner per room, assigned at creation.
const (
	RoleOwner       = "owner"
	RoleModerator   = "moderator"
	RoleParticipant = "participant"
)

// CursorPosition is an editor cursor location.
type CursorPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// SelectionRange is an optional editor selection.
type SelectionRange struct {
	Start CursorPosition `json:"start"`
	End   CursorPosition `json:"end"`
}

// Participant is the ephemeral, room-scoped presence of a connected user.
// It exists only while the connection is live and is never persisted.
// Cursor and Selection are mutated only by that participant's own updates.
type Participant struct {
	UserID    string          `json:"user_id"`
	Name      string          `json:"user_name"`
	Picture   string          `json:"user_picture"`
	Role      string          `json:"role"`
	Cursor    CursorPosition  `json:"cursor_position"`
	Selection *SelectionRange `json:"selection,omitempty"`
	JoinedAt  time.Time       `json:"joined_at"`
}
