package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tanishk-sarode/codechill-v2/internal/domain"
)

// ExecutionRepository is a mock of repository.ExecutionRepository.
type ExecutionRepository struct {
	mock.Mock
}

func (m *ExecutionRepository) Save(ctx context.Context, exec *domain.Execution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}

func (m *ExecutionRepository) FindByID(ctx context.Context, id string) (*domain.Execution, error) {
	args := m.Called(ctx, id)
	var exec *domain.Execution
	if args.Get(0) != nil {
		exec = args.Get(0).(*domain.Execution)
	}
	return exec, args.Error(1)
}

func (m *ExecutionRepository) Update(ctx context.Context, exec *domain.Execution) error {
	args := m.Called(ctx, exec)
	return args.Error(0)
}
