package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"poll-service/internal/domain"
)

// MockPollRepository is a mock implementation of PollRepository
type MockPollRepository struct {
	mock.Mock
}

func (m *MockPollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	args := m.Called(ctx, poll)
	return args.Error(0)
}

func (m *MockPollRepository) CreateChoices(ctx context.Context, choices []*domain.Choice) error {
	args := m.Called(ctx, choices)
	return args.Error(0)
}

func (m *MockPollRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Poll), args.Error(1)
}

func (m *MockPollRepository) FindAll(ctx context.Context) ([]*domain.Poll, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Poll), args.Error(1)
}

func (m *MockPollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	args := m.Called(ctx, poll)
	return args.Error(0)
}

func (m *MockPollRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockPollRepository) TouchLastVote(ctx context.Context, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *MockPollRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPollRepository) PermanentDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPollRepository) FindChoiceless(ctx context.Context, olderThan time.Time) ([]*domain.Poll, error) {
	args := m.Called(ctx, olderThan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Poll), args.Error(1)
}

func (m *MockPollRepository) FindDormant(ctx context.Context, lastVoteBefore time.Time) ([]*domain.Poll, error) {
	args := m.Called(ctx, lastVoteBefore)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Poll), args.Error(1)
}

func pollWithID(id uuid.UUID) *domain.Poll {
	return &domain.Poll{BaseModel: domain.BaseModel{ID: id}}
}

func TestSweeperJob_DeletesChoicelessPolls(t *testing.T) {
	repo := new(MockPollRepository)
	orphanA := uuid.New()
	orphanB := uuid.New()

	repo.On("FindChoiceless", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{pollWithID(orphanA), pollWithID(orphanB)}, nil)
	repo.On("PermanentDelete", mock.Anything, orphanA).Return(nil)
	repo.On("PermanentDelete", mock.Anything, orphanB).Return(nil)
	repo.On("FindDormant", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{}, nil)

	job := NewSweeperJob(repo, zap.NewNop())
	job.Run()

	repo.AssertExpectations(t)
}

func TestSweeperJob_ContinuesPastDeleteFailure(t *testing.T) {
	repo := new(MockPollRepository)
	failing := uuid.New()
	healthy := uuid.New()

	repo.On("FindChoiceless", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{pollWithID(failing), pollWithID(healthy)}, nil)
	repo.On("PermanentDelete", mock.Anything, failing).Return(errors.New("db error"))
	repo.On("PermanentDelete", mock.Anything, healthy).Return(nil)
	repo.On("FindDormant", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{}, nil)

	job := NewSweeperJob(repo, zap.NewNop())
	job.Run()

	// The second poll is still deleted despite the first failure.
	repo.AssertCalled(t, "PermanentDelete", mock.Anything, healthy)
}

func TestSweeperJob_EndsDormantPolls(t *testing.T) {
	repo := new(MockPollRepository)
	dormant := uuid.New()

	repo.On("FindChoiceless", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{}, nil)
	repo.On("FindDormant", mock.Anything, mock.AnythingOfType("time.Time")).
		Return([]*domain.Poll{pollWithID(dormant)}, nil)
	repo.On("UpdateStatus", mock.Anything, dormant, domain.PollStatusEnded).Return(nil)

	job := NewSweeperJob(repo, zap.NewNop())
	job.Run()

	repo.AssertExpectations(t)
}

func TestSweeperJob_FindFailureAborts(t *testing.T) {
	repo := new(MockPollRepository)

	repo.On("FindChoiceless", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("db down"))
	repo.On("FindDormant", mock.Anything, mock.AnythingOfType("time.Time")).
		Return(nil, errors.New("db down"))

	job := NewSweeperJob(repo, zap.NewNop())
	job.Run()

	repo.AssertNotCalled(t, "PermanentDelete", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}
