package slack

import (
	"context"
	"sync"

	slackapi "github.com/slack-go/slack"
)

// MockHistoryClient is a mock implementation of HistoryClient for testing
type MockHistoryClient struct {
	mu sync.Mutex

	// Control behavior
	GetConversationHistoryFunc func(ctx context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error)

	// Track calls for assertions
	HistoryCalls []slackapi.GetConversationHistoryParameters
}

// NewMockHistoryClient creates a new mock history client
func NewMockHistoryClient() *MockHistoryClient {
	return &MockHistoryClient{
		HistoryCalls: make([]slackapi.GetConversationHistoryParameters, 0),
	}
}

// GetConversationHistoryContext implements HistoryClient
func (m *MockHistoryClient) GetConversationHistoryContext(ctx context.Context, params *slackapi.GetConversationHistoryParameters) (*slackapi.GetConversationHistoryResponse, error) {
	m.mu.Lock()
	m.HistoryCalls = append(m.HistoryCalls, *params)
	fn := m.GetConversationHistoryFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}

	return &slackapi.GetConversationHistoryResponse{}, nil
}

// Calls returns a copy of the recorded calls
func (m *MockHistoryClient) Calls() []slackapi.GetConversationHistoryParameters {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]slackapi.GetConversationHistoryParameters, len(m.HistoryCalls))
	copy(calls, m.HistoryCalls)

	return calls
}
