package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// defaultListLimit bounds room listings when the caller does not set one.
const defaultListLimit = 50

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: find room by id %s: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	if err := r.db.WithContext(ctx).Save(room).Error; err != nil {
		if isDuplicateEntryError(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %s): %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) ListPublic(ctx context.Context, q repository.RoomQuery) ([]domain.Room, error) {
	limit := q.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}

	query := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("is_active = ? AND is_private = ?", true, false)
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		query = query.Where("name LIKE ? OR description LIKE ?", pattern, pattern)
	}
	if q.Language != "" {
		query = query.Where("language = ?", q.Language)
	}

	var rooms []domain.Room
	err := query.Order("last_activity DESC").Limit(limit).Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list public rooms: %w", err)
	}
	return rooms, nil
}

// UpdateContent writes an accepted document state. The version guard keeps
// out-of-order write-behind tasks from overwriting a newer version; a task
// that lost the race simply affects zero rows, which is not an error.
func (r *GormRoomRepository) UpdateContent(ctx context.Context, id string, content string, version uint64, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ? AND content_version < ?", id, version).
		Updates(map[string]interface{}{
			"content":         content,
			"content_version": version,
			"last_activity":   at,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: update content for room %s (v%d): %w", id, version, err)
	}
	return nil
}

func (r *GormRoomRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		Update("last_activity", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch activity for room %s: %w", id, err)
	}
	return nil
}

func (r *GormRoomRepository) SetActive(ctx context.Context, id string, active bool) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("id = ?", id).
		Update("is_active", active).Error
	if err != nil {
		return fmt.Errorf("gorm: set active=%t for room %s: %w", active, id, err)
	}
	return nil
}

func (r *GormRoomRepository) FindIdleBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND last_activity < ?", true, cutoff).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find idle rooms before %v: %w", cutoff, err)
	}
	return rooms, nil
}
