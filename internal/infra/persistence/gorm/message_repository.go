package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// GormMessageRepository is the GORM implementation of MessageRepository.
type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMessageRepository")
	}
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save chat message (id: %s, room: %s): %w", msg.ID, msg.RoomID, err)
	}
	return nil
}

// ListRecent returns the newest limit messages in ascending creation order.
// The inner query picks the window newest-first; the reorder puts the
// oldest of the window first, which is what a joining client renders.
func (r *GormMessageRepository) ListRecent(ctx context.Context, roomID string, limit int) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	sub := r.db.WithContext(ctx).
		Model(&domain.ChatMessage{}).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit)
	err := r.db.WithContext(ctx).
		Table("(?) AS recent", sub).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list recent messages for room %s: %w", roomID, err)
	}
	return msgs, nil
}
