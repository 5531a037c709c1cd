package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"poll-service/internal/domain"
)

func testPoll(id uuid.UUID, choices ...string) *domain.Poll {
	poll := &domain.Poll{
		BaseModel: domain.BaseModel{ID: id},
		CreatorID: uuid.New(),
		Question:  "What for lunch?",
		Status:    domain.PollStatusActive,
	}
	for i, text := range choices {
		poll.Choices = append(poll.Choices, domain.Choice{
			PollID:   id,
			Text:     text,
			Position: i,
		})
	}
	return poll
}

func TestSnapshotService_GetPollWithResults(t *testing.T) {
	pollID := uuid.New()
	viewer := uuid.New()

	pollRepo := &MockPollRepository{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
			return testPoll(pollID, "Pizza", "Sushi"), nil
		},
	}
	voteRepo := &MockVoteRepository{
		FindByPollIDFunc: func(ctx context.Context, id uuid.UUID) ([]*domain.Vote, error) {
			return []*domain.Vote{
				{PollID: pollID, VoterID: viewer, Choice: "Pizza"},
				{PollID: pollID, VoterID: uuid.New(), Choice: "Pizza"},
				{PollID: pollID, VoterID: uuid.New(), Choice: "Sushi"},
			}, nil
		},
	}

	svc := NewSnapshotService(pollRepo, voteRepo, zap.NewNop())

	snapshot, err := svc.GetPollWithResults(context.Background(), pollID, &viewer)
	assert.NoError(t, err)
	assert.Equal(t, 3, snapshot.TotalVotes)
	assert.True(t, snapshot.HasVoted)
	assert.Equal(t, "Pizza", snapshot.VotedChoice)
	assert.Equal(t, "Pizza", snapshot.Results[0].Choice)
	assert.Equal(t, 67, snapshot.Results[0].Percentage)
}

func TestSnapshotService_AnonymousViewerNeverVoted(t *testing.T) {
	pollID := uuid.New()

	pollRepo := &MockPollRepository{
		FindByIDFunc: func(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
			return testPoll(pollID, "Yes", "No"), nil
		},
	}
	voteRepo := &MockVoteRepository{
		FindByPollIDFunc: func(ctx context.Context, id uuid.UUID) ([]*domain.Vote, error) {
			return []*domain.Vote{{PollID: pollID, VoterID: uuid.New(), Choice: "Yes"}}, nil
		},
	}

	svc := NewSnapshotService(pollRepo, voteRepo, zap.NewNop())

	snapshot, err := svc.GetPollWithResults(context.Background(), pollID, nil)
	assert.NoError(t, err)
	assert.False(t, snapshot.HasVoted)
	assert.Empty(t, snapshot.VotedChoice)
}

func TestSnapshotService_GetAllBatchesVoteQueries(t *testing.T) {
	pollA := uuid.New()
	pollB := uuid.New()
	batchCalls := 0

	pollRepo := &MockPollRepository{
		FindAllFunc: func(ctx context.Context) ([]*domain.Poll, error) {
			return []*domain.Poll{
				testPoll(pollA, "Yes", "No"),
				testPoll(pollB, "Red", "Blue"),
			}, nil
		},
	}
	voteRepo := &MockVoteRepository{
		FindByPollIDsFunc: func(ctx context.Context, pollIDs []uuid.UUID) ([]*domain.Vote, error) {
			batchCalls++
			assert.Len(t, pollIDs, 2)
			return []*domain.Vote{
				{PollID: pollA, VoterID: uuid.New(), Choice: "Yes"},
				{PollID: pollB, VoterID: uuid.New(), Choice: "Red"},
				{PollID: pollB, VoterID: uuid.New(), Choice: "Blue"},
			}, nil
		},
	}

	svc := NewSnapshotService(pollRepo, voteRepo, zap.NewNop())

	snapshots, err := svc.GetAllPollsWithResults(context.Background(), nil)
	assert.NoError(t, err)
	assert.Len(t, snapshots, 2)
	assert.Equal(t, 1, batchCalls)
	assert.Equal(t, 1, snapshots[0].TotalVotes)
	assert.Equal(t, 2, snapshots[1].TotalVotes)
}
