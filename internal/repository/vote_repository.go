package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"poll-service/internal/domain"
)

// VoteRepository defines the interface for vote data access
type VoteRepository interface {
	Create(ctx context.Context, vote *domain.Vote) error
	FindByPollID(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error)
	FindByPollIDs(ctx context.Context, pollIDs []uuid.UUID) ([]*domain.Vote, error)
	FindByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	DeleteByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (int64, error)
	DeleteByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error)
	CountByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error)
	CountByPollID(ctx context.Context, pollID uuid.UUID) (int64, error)
}

type voteRepositoryImpl struct {
	db *gorm.DB
}

// NewVoteRepository creates a new instance of VoteRepository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepositoryImpl{db: db}
}

// Create inserts a vote. The composite unique index on
// (poll_id, voter_id) rejects duplicates with gorm.ErrDuplicatedKey.
func (r *voteRepositoryImpl) Create(ctx context.Context, vote *domain.Vote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *voteRepositoryImpl) FindByPollID(ctx context.Context, pollID uuid.UUID) ([]*domain.Vote, error) {
	var votes []*domain.Vote
	err := r.db.WithContext(ctx).
		Where("poll_id = ?", pollID).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepositoryImpl) FindByPollIDs(ctx context.Context, pollIDs []uuid.UUID) ([]*domain.Vote, error) {
	if len(pollIDs) == 0 {
		return []*domain.Vote{}, nil
	}
	var votes []*domain.Vote
	err := r.db.WithContext(ctx).
		Where("poll_id IN ?", pollIDs).
		Order("created_at ASC").
		Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepositoryImpl) FindByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	var vote domain.Vote
	err := r.db.WithContext(ctx).
		First(&vote, "poll_id = ? AND voter_id = ?", pollID, voterID).Error
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

// DeleteByPollAndVoter removes a voter's vote on a poll and reports
// how many rows were removed (0 when the voter had not voted)
func (r *voteRepositoryImpl) DeleteByPollAndVoter(ctx context.Context, pollID, voterID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("poll_id = ? AND voter_id = ?", pollID, voterID).
		Delete(&domain.Vote{})
	return result.RowsAffected, result.Error
}

func (r *voteRepositoryImpl) DeleteByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error) {
	if len(voterIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("voter_id IN ?", voterIDs).
		Delete(&domain.Vote{})
	return result.RowsAffected, result.Error
}

func (r *voteRepositoryImpl) CountByVoterIDs(ctx context.Context, voterIDs []uuid.UUID) (int64, error) {
	if len(voterIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("voter_id IN ?", voterIDs).
		Count(&count).Error
	return count, err
}

func (r *voteRepositoryImpl) CountByPollID(ctx context.Context, pollID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Vote{}).
		Where("poll_id = ?", pollID).
		Count(&count).Error
	return count, err
}
