package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jindex/internal/repository"
)

// MockBuildRepository is a mock implementation of repository.BuildRepository.
type MockBuildRepository struct {
	mock.Mock
}

// CreateBuild mocks the CreateBuild method.
func (m *MockBuildRepository) CreateBuild(ctx context.Context, build *repository.Build) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

// FinishBuild mocks the FinishBuild method.
func (m *MockBuildRepository) FinishBuild(ctx context.Context, build *repository.Build) error {
	args := m.Called(ctx, build)
	return args.Error(0)
}

// SetPublished mocks the SetPublished method.
func (m *MockBuildRepository) SetPublished(ctx context.Context, id string, url string) error {
	args := m.Called(ctx, id, url)
	return args.Error(0)
}

// GetBuild mocks the GetBuild method.
func (m *MockBuildRepository) GetBuild(ctx context.Context, id string) (*repository.Build, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.Build), args.Error(1)
}

// ListBuilds mocks the ListBuilds method.
func (m *MockBuildRepository) ListBuilds(ctx context.Context, filter repository.BuildFilter) ([]*repository.Build, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.Build), args.Error(1)
}

// ExpectCreateBuild sets up an expectation for any CreateBuild call.
func (m *MockBuildRepository) ExpectCreateBuild(err error) *mock.Call {
	return m.On("CreateBuild", mock.Anything, mock.AnythingOfType("*repository.Build")).Return(err)
}

// ExpectFinishBuild sets up an expectation for a FinishBuild call that
// records status.
func (m *MockBuildRepository) ExpectFinishBuild(status repository.BuildStatus, err error) *mock.Call {
	return m.On("FinishBuild", mock.Anything, mock.MatchedBy(func(b *repository.Build) bool {
		return b.Status == status
	})).Return(err)
}

// ExpectSetPublished sets up an expectation for SetPublished.
func (m *MockBuildRepository) ExpectSetPublished(id string, err error) *mock.Call {
	return m.On("SetPublished", mock.Anything, id, mock.Anything).Return(err)
}
