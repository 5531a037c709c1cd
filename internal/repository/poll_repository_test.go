package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"poll-service/internal/domain"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Profile{}, &domain.Poll{}, &domain.Choice{}, &domain.Vote{}))
	return db
}

func seedPoll(t *testing.T, db *gorm.DB, status domain.PollStatus, choices ...string) *domain.Poll {
	poll := &domain.Poll{
		CreatorID: uuid.New(),
		Question:  "Best language?",
		Status:    status,
	}
	require.NoError(t, db.Create(poll).Error)
	for i, text := range choices {
		require.NoError(t, db.Create(&domain.Choice{PollID: poll.ID, Text: text, Position: i}).Error)
	}
	return poll
}

func backdate(t *testing.T, db *gorm.DB, pollID uuid.UUID, createdAt time.Time) {
	require.NoError(t, db.Model(&domain.Poll{}).
		Where("id = ?", pollID).
		Update("created_at", createdAt).Error)
}

func TestPollRepository_FindByIDPreloadsChoicesInOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "Go", "Rust", "Zig")

	found, err := repo.FindByID(ctx, poll.ID)
	require.NoError(t, err)
	require.Len(t, found.Choices, 3)
	assert.Equal(t, "Go", found.Choices[0].Text)
	assert.Equal(t, "Rust", found.Choices[1].Text)
	assert.Equal(t, "Zig", found.Choices[2].Text)
}

func TestPollRepository_FindByIDNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPollRepository_FindAllExcludesRemovedAndDeleted(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	visible := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	seedPoll(t, db, domain.PollStatusRemoved, "A", "B")
	deleted := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	require.NoError(t, repo.SoftDelete(ctx, deleted.ID))

	polls, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, polls, 1)
	assert.Equal(t, visible.ID, polls[0].ID)
}

func TestPollRepository_PermanentDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	require.NoError(t, db.Create(&domain.Vote{PollID: poll.ID, VoterID: uuid.New(), Choice: "A"}).Error)

	require.NoError(t, repo.PermanentDelete(ctx, poll.ID))

	var pollCount, choiceCount, voteCount int64
	db.Unscoped().Model(&domain.Poll{}).Where("id = ?", poll.ID).Count(&pollCount)
	db.Unscoped().Model(&domain.Choice{}).Where("poll_id = ?", poll.ID).Count(&choiceCount)
	db.Unscoped().Model(&domain.Vote{}).Where("poll_id = ?", poll.ID).Count(&voteCount)
	assert.Zero(t, pollCount)
	assert.Zero(t, choiceCount)
	assert.Zero(t, voteCount)
}

func TestPollRepository_FindChoiceless(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)

	orphan := seedPoll(t, db, domain.PollStatusReview)
	backdate(t, db, orphan.ID, old)

	// Polls with choices or too recent are not returned.
	withChoices := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	backdate(t, db, withChoices.ID, old)
	seedPoll(t, db, domain.PollStatusReview)

	found, err := repo.FindChoiceless(ctx, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, orphan.ID, found[0].ID)
}

func TestPollRepository_FindDormant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	cutoff := time.Now().UTC().Add(-30 * 24 * time.Hour)
	ancient := cutoff.Add(-time.Hour)

	// Voted long ago
	stale := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	require.NoError(t, repo.TouchLastVote(ctx, stale.ID, ancient))

	// Never voted, created long ago
	silent := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	backdate(t, db, silent.ID, ancient)

	// Voted recently
	fresh := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	require.NoError(t, repo.TouchLastVote(ctx, fresh.ID, time.Now().UTC()))

	// Inactive polls are never dormant candidates
	ended := seedPoll(t, db, domain.PollStatusEnded, "A", "B")
	backdate(t, db, ended.ID, ancient)

	found, err := repo.FindDormant(ctx, cutoff)
	require.NoError(t, err)
	require.Len(t, found, 2)

	ids := []uuid.UUID{found[0].ID, found[1].ID}
	assert.Contains(t, ids, stale.ID)
	assert.Contains(t, ids, silent.ID)
	assert.NotContains(t, ids, fresh.ID)
	assert.NotContains(t, ids, ended.ID)
}

func TestPollRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPollRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	require.NoError(t, repo.UpdateStatus(ctx, poll.ID, domain.PollStatusEnded))

	found, err := repo.FindByID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PollStatusEnded, found.Status)
}
