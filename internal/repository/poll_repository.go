package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"poll-service/internal/domain"
)

// PollRepository defines the interface for poll data access
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	CreateChoices(ctx context.Context, choices []*domain.Choice) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	FindAll(ctx context.Context) ([]*domain.Poll, error)
	Update(ctx context.Context, poll *domain.Poll) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error
	TouchLastVote(ctx context.Context, id uuid.UUID, at time.Time) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	PermanentDelete(ctx context.Context, id uuid.UUID) error
	FindChoiceless(ctx context.Context, olderThan time.Time) ([]*domain.Poll, error)
	FindDormant(ctx context.Context, lastVoteBefore time.Time) ([]*domain.Poll, error)
}

type pollRepositoryImpl struct {
	db *gorm.DB
}

// NewPollRepository creates a new instance of PollRepository
func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepositoryImpl{db: db}
}

func (r *pollRepositoryImpl) Create(ctx context.Context, poll *domain.Poll) error {
	return r.db.WithContext(ctx).Create(poll).Error
}

func (r *pollRepositoryImpl) CreateChoices(ctx context.Context, choices []*domain.Choice) error {
	if len(choices) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(choices).Error
}

// FindByID loads a poll with its choices in display order
func (r *pollRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&poll, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// FindAll returns every poll that is still visible to viewers,
// newest first. REMOVED polls are excluded; soft-deleted rows are
// excluded by gorm automatically.
func (r *pollRepositoryImpl) FindAll(ctx context.Context) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	err := r.db.WithContext(ctx).
		Preload("Choices", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("status <> ?", domain.PollStatusRemoved).
		Order("created_at DESC").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}

func (r *pollRepositoryImpl) Update(ctx context.Context, poll *domain.Poll) error {
	return r.db.WithContext(ctx).Save(poll).Error
}

func (r *pollRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PollStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.Poll{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// TouchLastVote refreshes the denormalized last_vote_at timestamp
// used for dormancy detection
func (r *pollRepositoryImpl) TouchLastVote(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.Poll{}).
		Where("id = ?", id).
		Update("last_vote_at", at).Error
}

func (r *pollRepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Poll{}, "id = ?", id).Error
}

// PermanentDelete removes the poll row and cascades to its choices
// and votes
func (r *pollRepositoryImpl) PermanentDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("poll_id = ?", id).Delete(&domain.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("poll_id = ?", id).Delete(&domain.Choice{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&domain.Poll{}, "id = ?", id).Error
	})
}

// FindChoiceless finds polls that ended up without any choices
// (failed second step of the two-step create)
func (r *pollRepositoryImpl) FindChoiceless(ctx context.Context, olderThan time.Time) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	err := r.db.WithContext(ctx).
		Where("created_at < ?", olderThan).
		Where("NOT EXISTS (SELECT 1 FROM choices WHERE choices.poll_id = polls.id)").
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}

// FindDormant finds ACTIVE polls whose last vote is older than the
// given cutoff (or that never received a vote and were created before it)
func (r *pollRepositoryImpl) FindDormant(ctx context.Context, lastVoteBefore time.Time) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.PollStatusActive).
		Where("(last_vote_at IS NOT NULL AND last_vote_at < ?) OR (last_vote_at IS NULL AND created_at < ?)",
			lastVoteBefore, lastVoteBefore).
		Find(&polls).Error
	if err != nil {
		return nil, err
	}
	return polls, nil
}
