package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"poll-service/internal/domain"
)

func TestVoteRepository_DuplicateVoteIsTranslated(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	voter := uuid.New()

	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: voter, Choice: "A"}))

	err := repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: voter, Choice: "B"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestVoteRepository_SameVoterDifferentPolls(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	pollA := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	pollB := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	voter := uuid.New()

	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: pollA.ID, VoterID: voter, Choice: "A"}))
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: pollB.ID, VoterID: voter, Choice: "B"}))
}

func TestVoteRepository_FindByPollIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	pollA := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	pollB := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	pollC := seedPoll(t, db, domain.PollStatusActive, "A", "B")

	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: pollA.ID, VoterID: uuid.New(), Choice: "A"}))
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: pollB.ID, VoterID: uuid.New(), Choice: "B"}))
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: pollC.ID, VoterID: uuid.New(), Choice: "A"}))

	votes, err := repo.FindByPollIDs(ctx, []uuid.UUID{pollA.ID, pollB.ID})
	require.NoError(t, err)
	assert.Len(t, votes, 2)

	// Empty input short-circuits without touching the database.
	votes, err = repo.FindByPollIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestVoteRepository_DeleteByPollAndVoter(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	voter := uuid.New()
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: voter, Choice: "A"}))

	rows, err := repo.DeleteByPollAndVoter(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	rows, err = repo.DeleteByPollAndVoter(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Zero(t, rows)
}

func TestVoteRepository_VoterScopedBulkOperations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewVoteRepository(db)
	ctx := context.Background()

	poll := seedPoll(t, db, domain.PollStatusActive, "A", "B")
	botA := uuid.New()
	botB := uuid.New()
	human := uuid.New()

	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: botA, Choice: "A"}))
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: botB, Choice: "B"}))
	require.NoError(t, repo.Create(ctx, &domain.Vote{PollID: poll.ID, VoterID: human, Choice: "A"}))

	count, err := repo.CountByVoterIDs(ctx, []uuid.UUID{botA, botB})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	deleted, err := repo.DeleteByVoterIDs(ctx, []uuid.UUID{botA, botB})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err = repo.CountByVoterIDs(ctx, []uuid.UUID{botA, botB})
	require.NoError(t, err)
	assert.Zero(t, count)

	// The human vote is untouched.
	total, err := repo.CountByPollID(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
