// Package domain defines the data structures shared across the application:
// persisted models (Room, User, ChatMessage, Execution) and the ephemeral
// per-connection Participant.
package domain

import "time"

// User is a registered account on the platform.
type User struct {
	ID       string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username string `gorm:"type:varchar(191);uniqueIndex:idx_username;not null" json:"username"`
	Email    string `gorm:"type:varchar(191);uniqueIndex:idx_email" json:"email"`
	// Bcrypt hash, never the plaintext. Cleared before the user leaves the
	// service layer.
	Password string `gorm:"type:text;not null" json:"-"`
	Name     string `gorm:"size:255" json:"name"`
	Picture  string `gorm:"size:500" json:"picture"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
