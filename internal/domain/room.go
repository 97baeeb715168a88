package domain

import "time"

// Limits on room capacity. CreateRoom clamps requests into this range.
const (
	MinParticipants     = 2
	MaxParticipants     = 50
	DefaultParticipants = 10
)

// SupportedLanguages is the closed set of language tags a room may carry.
var SupportedLanguages = []string{
	"javascript", "typescript", "python", "go", "java", "cpp", "rust",
}

// IsSupportedLanguage reports whether tag is a member of SupportedLanguages.
func IsSupportedLanguage(tag string) bool {
	for _, l := range SupportedLanguages {
		if l == tag {
			return true
		}
	}
	return false
}

// Room is a collaborative coding session: one authoritative document,
// a bounded participant set, and optional password protection.
//
// ContentVersion is the single source of truth for optimistic-concurrency
// checks. It starts at 0 and is incremented exactly once per accepted
// content mutation. While a room is active the coordinator owns
// Content/ContentVersion; the row is a write-behind copy.
type Room struct {
	ID          string `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string `gorm:"size:255;not null;index" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Language    string `gorm:"size:50;not null;default:javascript" json:"language"`

	IsPrivate       bool   `gorm:"not null;default:false" json:"is_private"`
	PasswordHash    string `gorm:"size:255" json:"-"`
	MaxParticipants int    `gorm:"not null;default:10" json:"max_participants"`

	OwnerID string `gorm:"type:varchar(36);not null;index" json:"owner_id"`

	Content        string `gorm:"type:text" json:"-"`
	ContentVersion uint64 `gorm:"not null;default:0" json:"content_version"`

	IsActive bool `gorm:"not null;default:true" json:"is_active"`

	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	LastActivity time.Time `gorm:"index" json:"last_activity"`
}
