// Package mocks provides mock implementations of core interfaces for testing.
package mocks

import (
	"context"
	"image"

	"github.com/stretchr/testify/mock"

	"slide-extractor/pkg/oss"
	"slide-extractor/pkg/video"
)

// MockSource is a mock implementation of video.Source
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Info() video.Info {
	args := m.Called()
	return args.Get(0).(video.Info)
}

func (m *MockSource) Frame(ctx context.Context, index int) (image.Image, error) {
	args := m.Called(ctx, index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(image.Image), args.Error(1)
}

func (m *MockSource) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockUploader is a mock implementation of oss.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath, key string) (*oss.UploadResult, error) {
	args := m.Called(ctx, localPath, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oss.UploadResult), args.Error(1)
}

// MockFetcher is a mock implementation of service.Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Download(ctx context.Context, rawURL, destDir string) (string, error) {
	args := m.Called(ctx, rawURL, destDir)
	return args.String(0), args.Error(1)
}

// MockDispatcher is a mock implementation of service.Dispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(taskId string) error {
	args := m.Called(taskId)
	return args.Error(0)
}
