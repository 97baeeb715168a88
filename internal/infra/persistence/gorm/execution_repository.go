package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
	"github.com/tanishk-sarode/codechill-v2/internal/repository"
)

// GormExecutionRepository is the GORM implementation of ExecutionRepository.
type GormExecutionRepository struct {
	db *gorm.DB
}

func NewGormExecutionRepository(db *gorm.DB) *GormExecutionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormExecutionRepository")
	}
	return &GormExecutionRepository{db: db}
}

func (r *GormExecutionRepository) Save(ctx context.Context, exec *domain.Execution) error {
	if err := r.db.WithContext(ctx).Create(exec).Error; err != nil {
		return fmt.Errorf("gorm: save execution (id: %s): %w", exec.ID, err)
	}
	return nil
}

func (r *GormExecutionRepository) FindByID(ctx context.Context, id string) (*domain.Execution, error) {
	var exec domain.Execution
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&exec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrExecutionNotFound
		}
		return nil, fmt.Errorf("gorm: find execution by id %s: %w", id, err)
	}
	return &exec, nil
}

func (r *GormExecutionRepository) Update(ctx context.Context, exec *domain.Execution) error {
	if err := r.db.WithContext(ctx).Save(exec).Error; err != nil {
		return fmt.Errorf("gorm: update execution (id: %s): %w", exec.ID, err)
	}
	return nil
}
