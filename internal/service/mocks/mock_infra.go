package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockCacheStore is a mock implementation of cache.Store
type MockCacheStore struct {
	mock.Mock
}

func (m *MockCacheStore) GetBool(ctx context.Context, key string) (bool, bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *MockCacheStore) SetBool(ctx context.Context, key string, value bool, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheStore) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

// MockExportEnqueuer is a mock implementation of ExportEnqueuer
type MockExportEnqueuer struct {
	mock.Mock
}

func (m *MockExportEnqueuer) EnqueueExportProcess(ctx context.Context, exportID string) error {
	args := m.Called(ctx, exportID)
	return args.Error(0)
}
