package coordinator

import (
	"context"
	"sync"

	"github.com/ethpandaops/etlaudit/pkg/models"
	"github.com/ethpandaops/etlaudit/pkg/scheduler"
)

// MockService is a mock implementation of Service for testing
type MockService struct {
	mu sync.Mutex

	// Control behavior
	LoadFunc    func(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error)
	RebuildFunc func(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error)
	CachedFunc  func(ctx context.Context) ([]models.LoadRecord, error)

	// Track calls for assertions
	LoadCalls    int
	RebuildCalls int
	CachedCalls  int
}

// NewMockService creates a new mock coordinator service
func NewMockService() *MockService {
	return &MockService{}
}

// Load implements Service
func (m *MockService) Load(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error) {
	m.mu.Lock()
	m.LoadCalls++
	fn := m.LoadFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	return nil, nil, models.ErrNoRecords
}

// Rebuild implements Service
func (m *MockService) Rebuild(ctx context.Context) ([]models.LoadRecord, *scheduler.Result, error) {
	m.mu.Lock()
	m.RebuildCalls++
	fn := m.RebuildFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	return nil, nil, models.ErrNoRecords
}

// Cached implements Service
func (m *MockService) Cached(ctx context.Context) ([]models.LoadRecord, error) {
	m.mu.Lock()
	m.CachedCalls++
	fn := m.CachedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx)
	}

	return nil, models.ErrSnapshotNotFound
}

// Ensure MockService implements Service
var _ Service = (*MockService)(nil)
