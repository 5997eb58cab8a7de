package services

import (
	"context"
	"sync"
	"time"

	"github.com/amirphl/ihancer-relay/utils"
)

// MockEnhancementProvider implements EnhancementProvider for testing and local runs
type MockEnhancementProvider struct {
	mu       sync.Mutex
	Response []byte
	Err      error
	Calls    []MockEnhanceCall
}

// MockEnhanceCall records one Enhance invocation
type MockEnhanceCall struct {
	Input    EnhanceInput
	CalledAt time.Time
}

// NewMockEnhancementProvider creates a mock provider that echoes the input image
// unless a canned response is set
func NewMockEnhancementProvider() *MockEnhancementProvider {
	return &MockEnhancementProvider{}
}

func (m *MockEnhancementProvider) Name() string { return "mock" }

func (m *MockEnhancementProvider) Enhance(ctx context.Context, in EnhanceInput) (*EnhanceResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, MockEnhanceCall{Input: in, CalledAt: utils.UTCNow()})
	if m.Err != nil {
		return nil, m.Err
	}
	data := m.Response
	if data == nil {
		data = in.Image
	}
	return &EnhanceResult{Data: data, ContentType: utils.EnhancedContentType, StatusCode: 200}, nil
}

// GetCalls returns all recorded calls
func (m *MockEnhancementProvider) GetCalls() []MockEnhanceCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockEnhanceCall(nil), m.Calls...)
}

// ClearCalls clears the recorded calls
func (m *MockEnhancementProvider) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}
