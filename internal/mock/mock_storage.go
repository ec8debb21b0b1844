// Package mock provides testify mocks for the analyzer's interfaces.
package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockArtifactStore mocks storage.ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	args := m.Called(ctx, key, r, contentType)
	return args.Error(0)
}

func (m *MockArtifactStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactStore) URL(key string) string {
	return m.Called(key).String(0)
}

// ExpectPut expects key to be stored with contentType.
func (m *MockArtifactStore) ExpectPut(key, contentType string, err error) *mock.Call {
	return m.On("Put", mock.Anything, key, mock.Anything, contentType).Return(err)
}

// MockPublisher mocks render.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	args := m.Called(ctx, localPath)
	return args.String(0), args.Error(1)
}

// ExpectPublish expects localPath to be published at url.
func (m *MockPublisher) ExpectPublish(localPath, url string, err error) *mock.Call {
	return m.On("Publish", mock.Anything, localPath).Return(url, err)
}

// ExpectAnyPublish fails or succeeds every publish.
func (m *MockPublisher) ExpectAnyPublish(err error) *mock.Call {
	return m.On("Publish", mock.Anything, mock.Anything).Return("", err)
}
