package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"poll-service/internal/domain"
)

// ProfileRepository defines the interface for profile data access
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error)
	FindBots(ctx context.Context) ([]*domain.Profile, error)
	CountBots(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type profileRepositoryImpl struct {
	db *gorm.DB
}

// NewProfileRepository creates a new instance of ProfileRepository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepositoryImpl{db: db}
}

// Create inserts a profile. Username uniqueness is enforced by the
// unique index and surfaces as gorm.ErrDuplicatedKey.
func (r *profileRepositoryImpl) Create(ctx context.Context, profile *domain.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByIDs resolves profiles in one batched query
func (r *profileRepositoryImpl) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.Profile, error) {
	if len(ids) == 0 {
		return []*domain.Profile{}, nil
	}
	var profiles []*domain.Profile
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// FindBots returns the bot roster, most recently created first so
// deletion can target the newest bots
func (r *profileRepositoryImpl) FindBots(ctx context.Context) ([]*domain.Profile, error) {
	var profiles []*domain.Profile
	err := r.db.WithContext(ctx).
		Where("is_bot = ?", true).
		Order("created_at DESC").
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepositoryImpl) CountBots(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("is_bot = ?", true).
		Count(&count).Error
	return count, err
}

// Delete removes the profile row outright. Used by bot teardown,
// including cleanup of orphaned profile rows.
func (r *profileRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Unscoped().Delete(&domain.Profile{}, "id = ?", id).Error
}
