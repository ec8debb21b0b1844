package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/internal/repository"
)

// MockSnapshotRepository is a mock implementation of the SnapshotRepository interface.
type MockSnapshotRepository struct {
	mock.Mock
}

// SaveSnapshot mocks the SaveSnapshot method.
func (m *MockSnapshotRepository) SaveSnapshot(ctx context.Context, name, source string, g *graph.Graph) (*repository.Run, error) {
	args := m.Called(ctx, name, source, g)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Run), args.Error(1)
}

// LoadSnapshot mocks the LoadSnapshot method.
func (m *MockSnapshotRepository) LoadSnapshot(ctx context.Context, name string) (*graph.Graph, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*graph.Graph), args.Error(1)
}

// ListRuns mocks the ListRuns method.
func (m *MockSnapshotRepository) ListRuns(ctx context.Context) ([]*repository.Run, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Run), args.Error(1)
}

// DeleteRun mocks the DeleteRun method.
func (m *MockSnapshotRepository) DeleteRun(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// MockLeakReporter is a mock implementation of the LeakReporter interface.
type MockLeakReporter struct {
	mock.Mock
}

// LeakSummary mocks the LeakSummary method.
func (m *MockLeakReporter) LeakSummary(ctx context.Context, runName string) ([]repository.KindLeaks, error) {
	args := m.Called(ctx, runName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.KindLeaks), args.Error(1)
}
