// Package mock provides a configurable client.Client for command tests
package mock

import (
	"context"
	"sync"

	"github.com/domainbrowser/searchjobs/internal/types"
	"github.com/domainbrowser/searchjobs/pkg/api/v1/client"
)

// MockClient implements the Client interface for testing
type MockClient struct {
	// Function fields that can be set to mock behavior
	CleanupFn         func(ctx context.Context, token string) (types.CleanupReport, error)
	HealthCheckFn     func(ctx context.Context) (map[string]string, error)
	SubmitSequenceFn  func(ctx context.Context, req types.SequenceRequest) (string, error)
	SubmitStructureFn func(ctx context.Context, req types.StructureRequest) (string, error)
	GetJobFn          func(ctx context.Context, id string) (types.StatusResponse, error)

	// Call tracking for verification
	mu                   sync.Mutex
	CleanupCalls         []string
	SubmitSequenceCalls  []types.SequenceRequest
	SubmitStructureCalls []types.StructureRequest
	GetJobCalls          []string
}

var _ client.Client = &MockClient{}

// Cleanup implements client.Client
func (m *MockClient) Cleanup(ctx context.Context, token string) (types.CleanupReport, error) {
	m.mu.Lock()
	m.CleanupCalls = append(m.CleanupCalls, token)
	m.mu.Unlock()
	if m.CleanupFn != nil {
		return m.CleanupFn(ctx, token)
	}
	return types.CleanupReport{}, nil
}

// HealthCheck implements client.Client
func (m *MockClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	if m.HealthCheckFn != nil {
		return m.HealthCheckFn(ctx)
	}
	return map[string]string{"status": "healthy"}, nil
}

// SubmitSequence implements client.Client
func (m *MockClient) SubmitSequence(ctx context.Context, req types.SequenceRequest) (string, error) {
	m.mu.Lock()
	m.SubmitSequenceCalls = append(m.SubmitSequenceCalls, req)
	m.mu.Unlock()
	if m.SubmitSequenceFn != nil {
		return m.SubmitSequenceFn(ctx, req)
	}
	return "", nil
}

// SubmitStructure implements client.Client
func (m *MockClient) SubmitStructure(ctx context.Context, req types.StructureRequest) (string, error) {
	m.mu.Lock()
	m.SubmitStructureCalls = append(m.SubmitStructureCalls, req)
	m.mu.Unlock()
	if m.SubmitStructureFn != nil {
		return m.SubmitStructureFn(ctx, req)
	}
	return "", nil
}

// GetJob implements client.Client
func (m *MockClient) GetJob(ctx context.Context, id string) (types.StatusResponse, error) {
	m.mu.Lock()
	m.GetJobCalls = append(m.GetJobCalls, id)
	m.mu.Unlock()
	if m.GetJobFn != nil {
		return m.GetJobFn(ctx, id)
	}
	return types.StatusResponse{JobID: id, Status: types.JobStatusPending}, nil
}
