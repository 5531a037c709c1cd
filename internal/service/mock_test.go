package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"poll-service/internal/domain"
	"poll-service/internal/realtime"
)

// MockPollRepository is a mock implementation of PollRepository
type MockPollRepository struct {
	CreateFunc          func(ctx context.Context, poll *domain.Poll) error
	CreateChoicesFunc   func(ctx context.Context, choices []*domain.Choice) error
	FindByIDFunc        func(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	FindAllFunc         func(ctx context.Context) ([]*domain.Poll, error)
	UpdateFunc          func(ctx context.Context, poll *domain.Poll) error
	UpdateStatusFunc    func(ctx context.Context, id uuid.UUID, status domain.PollStatus) error
	TouchLastVoteFunc   func(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDeleteFunc      func(ctx context.Context, id uuid.UUID) error
	PermanentDeleteFunc func(ctx context.Context, id uuid.UUID) error
	FindChoicelessFunc  func(ctx context.Context, olderThan time.Time) ([]*domain.Poll, error)
	FindDormantFunc     func(ctx context.Context, lastVoteBefore time.Time) ([]*domain.Poll, error)
}

func (m *MockPollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, poll)
	}
	return nil
}

func (m *MockPollRepository) CreateChoices(ctx context.Context, choices []*domain.Choice) error {
	if m.CreateChoicesFunc != nil {
		return m.CreateChoicesFunc(ctx, choices)
	}
	return nil
}

func (m *MockPollRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockPollRepository) FindAll(ctx context.Context) ([]*domain.Poll, error) {
	if m.FindAllFunc != nil {
		return m.FindAllFunc(ctx)
	}
	return nil, nil
}

func (m *MockPollRepository) Update(ctx context.Context, poll *domain.Poll) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, poll)
	}
	return nil
}

func (m *MockPollRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *MockPollRepository) TouchLastVote(ctx context.Context, id uuid.UUID, at time.Time) error {
	if m.TouchLastVoteFunc != nil {
		return m.TouchLastVoteFunc(ctx, id, at)
	}
	return nil
}

func (m *MockPollRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.SoftDeleteFunc != nil {
		return m.SoftDeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockPollRepository) PermanentDelete(ctx context.Context, id uuid.UUID) error {
	if m.PermanentDeleteFunc != nil {
		return m.PermanentDeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockPollRepository) FindChoiceless(ctx context.Context, olderThan time.Time) ([]*domain.Poll, error) {
	if m.FindChoicelessFunc != nil {
		return m.FindChoicelessFunc(ctx, olderThan)
	}
	return nil, nil
}

func (m *MockPollRepository) FindDormant(ctx context.Context, lastVoteBefore time.Time) ([]*domain.Poll, error) {
	if m.FindDormantFunc != nil {
		return m.FindDormantFunc(ctx, lastVoteBefore)
	}
	return nil, nil
}

// MockVoteRepository is a mock implementation of VoteRepository
type MockVoteRepository struct {
	CreateFunc               func(ctx context.Context, vote *domain.Vote) error
	FindByPollIDFunc         func(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error)
	FindByPollIDsFunc        func(ctx context.Context, pollIDs []uuid.UUID) ([]*domain.Vote, error)
	FindByPollAndVoterFunc   func(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	DeleteByPollAndVoterFunc func(ctx context.Context, pollID, voterID uuid.UUID) (int64, error)
	DeleteByVoterIDsFunc     func(ctx context.Context, voterIDs []uuid.UUID) (int64, error)
	CountByVoterIDsFunc      func(ctx context.Context, voterIDs []uuid.UUID) (int64, error)
	CountByPollIDFunc        func(ctx context.Context, pollID uuid.UUID) (int64, error)
}

func (m *MockVoteRepository) Create(ctx context.Context, vote *domain.Vote) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, vote)
	}
	return nil
}

func (m *MockVoteRepository) FindByPollID(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error) {
	if m.FindByPollIDFunc != nil {
		return m.FindByPollIDFunc(ctx, pollID)
	}
	return nil, nil
}

func (m *MockVoteRepository) FindByPollIDs(ctx context.Context, pollIDs []uuid.UUID) ([]*domain.Vote, error) {
	if m.FindByPollIDsFunc != nil {
		return m.FindByPollIDsFunc(ctx, pollIDs)
	}
	return nil, nil
}

func (m *MockVoteRepository) FindByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	if m.FindByPollAndVoterFunc != nil {
		return m.FindByPollAndVoterFunc(ctx, pollID, voterID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockVoteRepository) DeleteByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (int64, error) {
	if m.DeleteByPollAndVoterFunc != nil {
		return m.DeleteByPollAndVoterFunc(ctx, pollID, voterID)
	}
	return 0, nil
}

func (m *MockVoteRepository) DeleteByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error) {
	if m.DeleteByVoterIDsFunc != nil {
		return m.DeleteByVoterIDsFunc(ctx, voterIDs)
	}
	return 0, nil
}

func (m *MockVoteRepository) CountByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error) {
	if m.CountByVoterIDsFunc != nil {
		return m.CountByVoterIDsFunc(ctx, voterIDs)
	}
	return 0, nil
}

func (m *MockVoteRepository) CountByPollID(ctx context.Context, pollID uuid.UUID) (int64, error) {
	if m.CountByPollIDFunc != nil {
		return m.CountByPollIDFunc(ctx, pollID)
	}
	return 0, nil
}

// MockProfileRepository is a mock implementation of ProfileRepository
type MockProfileRepository struct {
	CreateFunc    func(ctx context.Context, profile *domain.Profile) error
	FindByIDFunc  func(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindByIDsFunc func(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error)
	FindBotsFunc  func(ctx context.Context) ([]*domain.Profile, error)
	CountBotsFunc func(ctx context.Context) (int64, error)
	DeleteFunc    func(ctx context.Context, id uuid.UUID) error
}

func (m *MockProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, profile)
	}
	return nil
}

func (m *MockProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *MockProfileRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	if m.FindByIDsFunc != nil {
		return m.FindByIDsFunc(ctx, ids)
	}
	return nil, nil
}

func (m *MockProfileRepository) FindBots(ctx context.Context) ([]*domain.Profile, error) {
	if m.FindBotsFunc != nil {
		return m.FindBotsFunc(ctx)
	}
	return nil, nil
}

func (m *MockProfileRepository) CountBots(ctx context.Context) (int64, error) {
	if m.CountBotsFunc != nil {
		return m.CountBotsFunc(ctx)
	}
	return 0, nil
}

func (m *MockProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPublisher records published change events
type MockPublisher struct {
	PublishChangeFunc func(ctx context.Context, event realtime.ChangeEvent) error
	Events            []realtime.ChangeEvent
}

func (m *MockPublisher) PublishChange(ctx context.Context, event realtime.ChangeEvent) error {
	m.Events = append(m.Events, event)
	if m.PublishChangeFunc != nil {
		return m.PublishChangeFunc(ctx, event)
	}
	return nil
}
