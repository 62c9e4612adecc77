package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/lc/projset/internal/platform"
)

var _ platform.Platform = (*MockPlatform)(nil)

// MockPlatform is a mock implementation of the platform.Platform interface.
type MockPlatform struct {
	mock.Mock
}

// ExecutablePath mocks the ExecutablePath method.
func (m *MockPlatform) ExecutablePath() string {
	return m.Called().String(0)
}

// BundleResourceDir mocks the BundleResourceDir method.
func (m *MockPlatform) BundleResourceDir() string {
	return m.Called().String(0)
}

// ResourceDir mocks the ResourceDir method.
func (m *MockPlatform) ResourceDir() string {
	return m.Called().String(0)
}

// UserDataDir mocks the UserDataDir method.
func (m *MockPlatform) UserDataDir() string {
	return m.Called().String(0)
}

// HasFeature mocks the HasFeature method.
func (m *MockPlatform) HasFeature(tag string) bool {
	return m.Called(tag).Bool(0)
}

// HasRuntime mocks the HasRuntime method.
func (m *MockPlatform) HasRuntime(name string) bool {
	return m.Called(name).Bool(0)
}
